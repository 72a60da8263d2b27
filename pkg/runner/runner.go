// Package runner drives the pipeline end to end: it watches the tasks
// directory for externally defined units of work, runs each one through
// the orchestrator by invoking a role agent per phase, and persists
// every committed transition to the event log.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"relay/pkg/eventlog"
	"relay/pkg/orchestrator"
	"relay/pkg/protocol"
	"relay/pkg/taskfile"
)

// Config wires the runner.
type Config struct {
	TasksDir string

	// PollInterval is the pure-polling cadence when fsnotify is
	// unavailable (default 10s).
	PollInterval time.Duration

	// FallbackPollInterval is the safety-net poll while fsnotify is
	// active (default 60s).
	FallbackPollInterval time.Duration

	// MaxDecisionErrors aborts a task after this many consecutive
	// rejected routings (default 3). Without it an agent that keeps
	// emitting unusable payloads would spin forever.
	MaxDecisionErrors int

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.FallbackPollInterval <= 0 {
		c.FallbackPollInterval = 60 * time.Second
	}
	if c.MaxDecisionErrors <= 0 {
		c.MaxDecisionErrors = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Runner executes queued tasks one at a time. The orchestrator owns a
// single unit of work, so there is no task-level concurrency to manage.
type Runner struct {
	cfg   Config
	orch  *orchestrator.Orchestrator
	agent RoleAgent
	log   *eventlog.Writer
}

// New creates a runner and subscribes the event log, metrics, and
// structured logging to the orchestrator's event stream.
func New(cfg Config, orch *orchestrator.Orchestrator, agent RoleAgent, log *eventlog.Writer, metrics *Metrics) *Runner {
	cfg = cfg.withDefaults()
	r := &Runner{cfg: cfg, orch: orch, agent: agent, log: log}

	orch.Subscribe(func(ev orchestrator.Event) {
		contextID := ""
		if ev.Context != nil {
			contextID = ev.Context.ID
		}
		cfg.Logger.Info("orchestrator event",
			"type", string(ev.Type),
			"from", string(ev.From),
			"to", string(ev.To),
			"context", contextID,
			"message", ev.Message,
		)
		if log != nil {
			if err := log.Append(context.Background(), string(ev.Type), ev.From, ev.To, contextID, ev.Message); err != nil {
				cfg.Logger.Warn("event log append failed", "error", err)
			}
		}
		if metrics != nil {
			metrics.Observe(ev)
		}
	})
	return r
}

// Run watches the tasks directory and executes tasks as they appear,
// until ctx is cancelled. fsnotify gives latency, the ticker is the
// safety net, and pure polling covers platforms where the watcher
// cannot start.
func (r *Runner) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.TasksDir, 0o755); err != nil {
		return fmt.Errorf("create tasks dir: %w", err)
	}

	// Drain anything queued before we started watching.
	r.drain(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.cfg.Logger.Warn("fsnotify unavailable, polling", "error", err)
		return r.runPoll(ctx)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(r.cfg.TasksDir); err != nil {
		r.cfg.Logger.Warn("watch failed, polling", "error", err)
		return r.runPoll(ctx)
	}

	fallback := time.NewTicker(r.cfg.FallbackPollInterval)
	defer fallback.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-watcher.Events:
			r.drain(ctx)
		case werr := <-watcher.Errors:
			if werr != nil {
				r.cfg.Logger.Warn("watcher error", "error", werr)
			}
		case <-fallback.C:
			r.drain(ctx)
		}
	}
}

func (r *Runner) runPoll(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain executes every queued task file, oldest name first. Each file is
// renamed with a result suffix when done so a crash cannot re-run
// completed work.
func (r *Runner) drain(ctx context.Context) {
	paths, err := taskfile.Discover(r.cfg.TasksDir)
	if err != nil {
		r.cfg.Logger.Warn("task discovery failed", "error", err)
		return
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		outcome, err := r.runTask(ctx, path)
		if err != nil {
			r.cfg.Logger.Error("task failed", "task", path, "error", err)
			outcome = "failed"
		}
		if err := os.Rename(path, path+"."+outcome); err != nil {
			r.cfg.Logger.Warn("task rename failed", "task", path, "error", err)
		}
	}
}

// runTask drives one unit of work from Planner to a terminal outcome.
// It returns the outcome suffix for the task file.
func (r *Runner) runTask(ctx context.Context, path string) (string, error) {
	task, err := taskfile.Load(path)
	if err != nil {
		return "", err
	}

	hctx := task.Context()
	r.cfg.Logger.Info("task starting", "task", task.ID, "context", hctx.ID)

	// A previous task may have left the orchestrator at Completed or
	// Blocked; each task gets a fresh machine.
	r.orch.Reset()
	if err := r.orch.StartWith(ctx, hctx); err != nil {
		return "", fmt.Errorf("start task %s: %w", task.ID, err)
	}

	decisionErrors := 0
	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		role := r.orch.CurrentRole()
		switch role {
		case protocol.RoleCompleted:
			r.persistFailures(hctx)
			r.cfg.Logger.Info("task completed", "task", task.ID, "attempts", hctx.AttemptNumber)
			return "done", nil
		case protocol.RoleBlocked:
			r.persistFailures(hctx)
			r.cfg.Logger.Warn("task blocked, needs intervention", "task", task.ID)
			return "blocked", nil
		}

		p, err := r.agent.Complete(ctx, role, hctx)
		if err != nil {
			return "", fmt.Errorf("agent at %s: %w", role, err)
		}

		if err := r.orch.HandleRoleCompletion(ctx, p); err != nil {
			// These errors leave the state unchanged; give the agent
			// a bounded number of chances to produce a usable payload.
			var inv *protocol.InvalidTransitionError
			var val *protocol.ValidationError
			var design *protocol.DesignIncompleteError
			if errors.As(err, &inv) || errors.As(err, &val) || errors.As(err, &design) {
				decisionErrors++
				r.cfg.Logger.Warn("routing rejected, retrying role",
					"task", task.ID, "role", string(role), "error", err, "attempt", decisionErrors)
				if decisionErrors >= r.cfg.MaxDecisionErrors {
					return "", fmt.Errorf("task %s stuck at %s: %w", task.ID, role, err)
				}
				continue
			}
			return "", err
		}
		decisionErrors = 0
	}
}

// persistFailures snapshots the context's failure history into the
// event log. Best-effort.
func (r *Runner) persistFailures(hctx *protocol.HandoffContext) {
	if r.log == nil || len(hctx.FailureHistory) == 0 {
		return
	}
	if err := r.log.RecordFailures(context.Background(), hctx); err != nil {
		r.cfg.Logger.Warn("failure snapshot failed", "context", hctx.ID, "error", err)
	}
}

// RunOnce executes the request directly, without the tasks directory.
// The run subcommand uses it for one-shot invocations.
func (r *Runner) RunOnce(ctx context.Context, request string) (orchestrator.Status, error) {
	r.orch.Reset()
	if err := r.orch.Start(ctx, request); err != nil {
		return orchestrator.Status{}, err
	}
	hctx := r.orch.Context()

	decisionErrors := 0
	for {
		if ctx.Err() != nil {
			return r.orch.Status(), ctx.Err()
		}
		role := r.orch.CurrentRole()
		if role == protocol.RoleCompleted || role == protocol.RoleBlocked {
			r.persistFailures(hctx)
			return r.orch.Status(), nil
		}

		p, err := r.agent.Complete(ctx, role, hctx)
		if err != nil {
			return r.orch.Status(), fmt.Errorf("agent at %s: %w", role, err)
		}
		if err := r.orch.HandleRoleCompletion(ctx, p); err != nil {
			decisionErrors++
			if decisionErrors >= r.cfg.MaxDecisionErrors {
				return r.orch.Status(), fmt.Errorf("stuck at %s: %w", role, err)
			}
			continue
		}
		decisionErrors = 0
	}
}
