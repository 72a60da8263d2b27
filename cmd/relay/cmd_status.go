package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/pkg/config"
	"relay/pkg/eventlog"
)

// newStatusCmd creates the "relay status" subcommand. It reads the event
// log instead of talking to a live process, so it works whether or not a
// runner is up.
func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent unit of work",
		Long:  "Displays the latest context's recent transitions from the event log.",
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

			ctx := cmd.Context()
			contextID, err := r.LatestContextID(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if contextID == "" {
				fmt.Fprintln(out, "no units of work recorded")
				return nil
			}

			events, err := r.QueryEvents(ctx, eventlog.QueryOpts{ContextID: contextID, Limit: 10})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "context: %s\n", contextID)
			if len(events) > 0 {
				fmt.Fprintf(out, "current role: %s\n\n", events[0].ToRole)
			}
			for _, e := range events {
				line := fmt.Sprintf("%s  %-14s %s -> %s",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.FromRole, e.ToRole)
				if e.Message != "" {
					line += "  " + e.Message
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
