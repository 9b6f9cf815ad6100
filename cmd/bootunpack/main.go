// Package main is the entry point for the bootunpack CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/pkg/app"

	// Compiled-in modules.
	_ "github.com/flemzord/bootunpack/internal/gateway"
	_ "github.com/flemzord/bootunpack/modules/channel/telegram"
	_ "github.com/flemzord/bootunpack/modules/history/sqlite"
	_ "github.com/flemzord/bootunpack/modules/unpack/magiskboot"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bootunpack",
		Short:         "Telegram bot that unpacks Android boot images with magiskboot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bootunpack %s (commit: %s, built: %s)\n", version, commit, date)
			namespaces := core.Namespaces()
			if len(namespaces) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, ns := range namespaces {
				fmt.Fprintf(out, "  %s:\n", ns)
				for _, mod := range core.GetModulesByNamespace(ns) {
					fmt.Fprintf(out, "    %s\n", mod.ID)
				}
			}
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := runParams(cmd)
			if err != nil {
				return err
			}
			return app.Run(params)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", "text", "Log format (text, json)")
	cmd.Flags().String("data-dir", "", "Persistent data directory")
}

// runParams reads the flags added by addRunFlags.
func runParams(cmd *cobra.Command) (app.RunParams, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return app.RunParams{}, fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return app.RunParams{}, fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}

	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		DataDir:    dataDir,
		LogLevel:   level,
		LogFormat:  format,
	}, nil
}
