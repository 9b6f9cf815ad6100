package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/bootunpack/internal/config"
	"github.com/flemzord/bootunpack/pkg/app"
)

var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration and load every module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := app.Build(context.Background(), app.RunParams{
				ConfigPath: args[0],
				Version:    version,
				LogOutput:  io.Discard,
			})
			if err != nil {
				return err
			}
			defer inst.Close()
			defer inst.App.Release()

			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			ids := config.Resolve(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var (
		path           string
		force          bool
		nonInteractive bool
		opts           config.InitOptions
		domains        string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = app.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			opts.AllowDomains = splitList(domains)
			if !nonInteractive {
				if err := runInitForm(&opts); err != nil {
					return err
				}
			}
			if !tokenPattern.MatchString(opts.Token) {
				return errors.New("a valid bot token is required (--token)")
			}

			data, err := config.Render(opts)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			envPath, err := config.WriteDotEnv(path, opts.Token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", path)
			fmt.Fprintf(out, "Wrote %s (%s)\n", envPath, config.TokenEnvVar)
			fmt.Fprintf(out, "\nRun: bootunpack start --config %s\n", path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&path, "path", "p", "", "Where to write the configuration")
	f.BoolVar(&force, "force", false, "Overwrite an existing file")
	f.BoolVar(&nonInteractive, "non-interactive", false, "Use flag values without prompting")
	f.StringVar(&opts.Token, "token", "", "Telegram bot token")
	f.StringVar(&opts.ToolPath, "tool", "magiskboot", "Path to the magiskboot executable")
	f.IntVar(&opts.Workers, "workers", 6, "Number of concurrent unpack jobs")
	f.StringVar(&domains, "allow-domains", "", "Comma-separated download hosts to allow")
	f.BoolVar(&opts.History, "history", false, "Persist request history in SQLite")
	f.BoolVar(&opts.Gateway, "gateway", false, "Enable the HTTP status gateway")
	f.StringVar(&opts.GatewayBind, "gateway-bind", "127.0.0.1:8080", "Gateway listen address")
	return cmd
}

// runInitForm prompts for the values not given on the command line.
func runInitForm(opts *config.InitOptions) error {
	workers := strconv.Itoa(opts.Workers)
	domains := strings.Join(opts.AllowDomains, ",")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. Stored in .env next to the config.").
				EchoMode(huh.EchoModePassword).
				Value(&opts.Token).
				Validate(func(s string) error {
					if !tokenPattern.MatchString(strings.TrimSpace(s)) {
						return errors.New("expected <digits>:<secret>")
					}
					return nil
				}),
			huh.NewInput().
				Title("magiskboot path").
				Value(&opts.ToolPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Concurrent jobs").
				Value(&workers).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return errors.New("must be a positive integer")
					}
					return nil
				}),
			huh.NewInput().
				Title("Allowed download hosts").
				Description("Comma-separated. Leave empty to allow any host.").
				Value(&domains),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep request history in SQLite?").
				Value(&opts.History),
			huh.NewConfirm().
				Title("Enable the HTTP status gateway?").
				Value(&opts.Gateway),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("config init: %w", err)
	}

	opts.Token = strings.TrimSpace(opts.Token)
	opts.Workers, _ = strconv.Atoi(workers)
	opts.AllowDomains = splitList(domains)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
