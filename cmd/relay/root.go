package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/internal/appversion"
)

// newRootCmd creates the root relay command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Relay delivery pipeline orchestrator",
		Long:          "relay drives a unit of work through the delivery pipeline:\nplanning, design, build, review gates, testing, and security audit.",
		Version:       fmt.Sprintf("relay %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&configPath, "config", "relay.toml", "path to the relay config file")

	cmd.AddCommand(
		newRunCmd(&configPath),
		newWatchCmd(&configPath),
		newStatusCmd(&configPath),
		newLogsCmd(&configPath),
		newDashCmd(),
	)

	return cmd
}
