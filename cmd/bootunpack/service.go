package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flemzord/bootunpack/pkg/app"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the bot as a system service",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := serviceParams(cmd)
			if err != nil {
				return err
			}
			return app.RunService(params)
		},
	}
	addRunFlags(run)
	cmd.AddCommand(run)

	for _, action := range app.ServiceActions {
		sub := &cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				params, err := serviceParams(cmd)
				if err != nil {
					return err
				}
				if err := app.ControlService(params, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s: done\n", action)
				return nil
			},
		}
		addRunFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

// serviceParams resolves the config path to an absolute one, since the
// service manager starts the process from another directory.
func serviceParams(cmd *cobra.Command) (app.RunParams, error) {
	params, err := runParams(cmd)
	if err != nil {
		return params, err
	}
	if params.ConfigPath == "" {
		resolved, err := app.ResolveConfigPath()
		if err != nil {
			return params, err
		}
		params.ConfigPath = resolved
	}
	abs, err := filepath.Abs(params.ConfigPath)
	if err != nil {
		return params, fmt.Errorf("resolving config path: %w", err)
	}
	params.ConfigPath = abs
	params.Workspace = filepath.Dir(abs)
	return params, nil
}
