package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/config"
	"relay/pkg/eventlog"
)

// logsConfig holds configuration for the logs command.
type logsConfig struct {
	tail      int
	eventType string
	contextID string
}

// newLogsCmd creates the "relay logs" subcommand.
func newLogsCmd(configPath *string) *cobra.Command {
	var lc logsConfig

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query the orchestrator event log",
		Long:  "Displays recent events from the event log, newest first.\nOptionally filter by event type or context id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			r, err := eventlog.NewReader(cfg.Paths.DB)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			defer r.Close()

			events, err := r.QueryEvents(cmd.Context(), eventlog.QueryOpts{
				ContextID: lc.contextID,
				EventType: lc.eventType,
				Limit:     lc.tail,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "no events")
				return nil
			}
			for _, e := range events {
				line := fmt.Sprintf("%s  %-14s %-36s %s -> %s",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.ContextID, e.FromRole, e.ToRole)
				if e.Message != "" {
					line += "  " + e.Message
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&lc.tail, "tail", 20, "number of recent events to show")
	cmd.Flags().StringVar(&lc.eventType, "type", "", "filter by event type (transition, blocked, auto_resolved, warning, report)")
	cmd.Flags().StringVar(&lc.contextID, "context", "", "filter by context id")

	return cmd
}
