package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"relay/pkg/config"
	"relay/pkg/eventlog"
	"relay/pkg/orchestrator"
	"relay/pkg/report"
	"relay/pkg/runner"
)

// app bundles everything a pipeline-driving subcommand needs.
type app struct {
	cfg     config.Config
	orch    *orchestrator.Orchestrator
	runner  *runner.Runner
	log     *eventlog.Writer
	metrics *runner.Metrics
	logger  *slog.Logger
}

// buildApp assembles the orchestrator, agent, event log, and runner from
// the config file. Interactive terminals get the prompt gate; everything
// else escalates to the manager's tmux pane and parks in Blocked.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	log, err := eventlog.Open(cfg.Paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	tmux := orchestrator.NewTmuxNotifier(cfg.Tmux.Session, cfg.Tmux.Pane, nil)

	var gate orchestrator.InterventionGate = tmux
	if isatty.IsTerminal(os.Stdin.Fd()) {
		gate = &orchestrator.PromptGate{In: os.Stdin, Out: os.Stderr}
	}

	orch := orchestrator.New(orchestrator.Config{
		Thresholds: cfg.OrchestratorThresholds(),
		Floors:     cfg.Floors(),
		Classifier: cfg.Classifier(),
		Modes:      tmux,
		Gate:       gate,
		Report:     report.New(cfg.Paths.ReportDir, cfg.Paths.Artifacts),
	})

	agent := &runner.ClaudeAgent{Model: "sonnet"}
	metrics := runner.NewMetrics()

	r := runner.New(runner.Config{
		TasksDir: cfg.Paths.TasksDir,
		Logger:   logger,
	}, orch, agent, log, metrics)

	a := &app{cfg: cfg, orch: orch, runner: r, log: log, metrics: metrics, logger: logger}
	a.serveMetrics()
	return a, nil
}

// serveMetrics exposes the Prometheus endpoint when configured.
func (a *app) serveMetrics() {
	if a.cfg.Metrics.Listen == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(a.cfg.Metrics.Listen); err != nil {
			a.logger.Warn("metrics endpoint failed", "listen", a.cfg.Metrics.Listen, "error", err)
		}
	}()
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.log.Close()
}
