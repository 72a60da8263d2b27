// Package main implements the relay-dash interactive dashboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"relay/pkg/eventlog"
)

// snapshot is the robot-mode JSON shape.
type snapshot struct {
	ContextID   string           `json:"contextId"`
	CurrentRole string           `json:"currentRole"`
	Events      []eventlog.Event `json:"events"`
}

// robotMode outputs a JSON snapshot of the latest unit of work instead
// of starting the TUI, for scripting and agents.
func robotMode(dbPath string) ([]byte, error) {
	ctx := context.Background()
	events, contextID, err := fetchLatest(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	s := snapshot{ContextID: contextID, Events: events}
	if len(events) > 0 {
		s.CurrentRole = events[0].ToRole
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func main() {
	robot := flag.Bool("robot", false, "print a JSON snapshot and exit")
	dbPath := flag.String("db", defaultDBPath(), "path to the relay event log database")
	flag.Parse()

	if *robot {
		data, err := robotMode(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	p := tea.NewProgram(newModel(*dbPath), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}

// defaultDBPath returns the event log path from env or default.
func defaultDBPath() string {
	if v := os.Getenv("RELAY_DB"); v != "" {
		return v
	}
	return "relay.db"
}
