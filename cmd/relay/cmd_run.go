package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"relay/pkg/protocol"
)

// newRunCmd creates the "relay run" subcommand: one request, driven to a
// terminal outcome, exit status reflecting the result.
func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <request...>",
		Short: "Run one request through the pipeline",
		Long:  "Starts a unit of work for the given request and drives it\nthrough every phase until it completes or blocks.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			request := strings.Join(args, " ")
			status, err := a.runner.RunOnce(cmd.Context(), request)
			if err != nil {
				return err
			}

			switch status.CurrentRole {
			case protocol.RoleCompleted:
				fmt.Fprintf(cmd.OutOrStdout(), "completed after %d attempts (context %s)\n",
					status.AttemptNumber, status.ContextID)
				return nil
			case protocol.RoleBlocked:
				return fmt.Errorf("blocked after %d attempts (context %s): needs intervention",
					status.AttemptNumber, status.ContextID)
			default:
				return fmt.Errorf("pipeline stopped at %s", status.CurrentRole)
			}
		},
	}
}

// newWatchCmd creates the "relay watch" subcommand: the long-running
// daemon that executes task files as they land in the tasks directory.
func newWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the tasks directory and run queued tasks",
		Long:  "Runs until interrupted. YAML task files dropped into the tasks\ndirectory are executed one at a time, oldest name first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("watching for tasks", "dir", a.cfg.Paths.TasksDir)
			return a.runner.Run(cmd.Context())
		},
	}
}
