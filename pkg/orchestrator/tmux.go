package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"relay/pkg/protocol"
)

// CommandRunner abstracts subprocess execution for tmux integration so
// tests can fake it.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// TmuxNotifier posts orchestrator messages to the manager's tmux pane.
// It backs both the production mode switcher (renaming the session window
// to the active role) and the escalating intervention gate.
//
// Messages are delivered via set-buffer + paste-buffer so they are treated
// as completely literal text, preventing shell injection through tmux.
type TmuxNotifier struct {
	sessionName string
	paneTarget  string
	runner      CommandRunner
}

// NewTmuxNotifier creates a TmuxNotifier. Empty sessionName or paneTarget
// fall back to "relay" and "relay:0.1".
func NewTmuxNotifier(sessionName, paneTarget string, runner CommandRunner) *TmuxNotifier {
	if sessionName == "" {
		sessionName = "relay"
	}
	if paneTarget == "" {
		paneTarget = "relay:0.1"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &TmuxNotifier{sessionName: sessionName, paneTarget: paneTarget, runner: runner}
}

// SwitchActiveRole implements ModeSwitcher by renaming the session window
// after the active role, so the manager can see at a glance which persona
// is running.
func (t *TmuxNotifier) SwitchActiveRole(ctx context.Context, role protocol.Role) error {
	if _, err := t.runner.Run(ctx, "tmux", "has-session", "-t", t.sessionName); err != nil {
		return fmt.Errorf("tmux session %s not found: %w", t.sessionName, err)
	}
	if _, err := t.runner.Run(ctx, "tmux", "rename-window", "-t", t.sessionName, string(role)); err != nil {
		return fmt.Errorf("tmux rename-window: %w", err)
	}
	return nil
}

// Post sends msg to the manager's pane as literal text.
// Before sending, it verifies the tmux session exists: if the session is
// dead, tmux send-keys fails silently and escalations go undelivered.
func (t *TmuxNotifier) Post(ctx context.Context, msg string) error {
	if _, err := t.runner.Run(ctx, "tmux", "has-session", "-t", t.sessionName); err != nil {
		return fmt.Errorf("tmux session %s not found: %w", t.sessionName, err)
	}

	sanitized := sanitizeForTmux(msg)

	if _, err := t.runner.Run(ctx, "tmux", "set-buffer", "-b", "relay-escalate", sanitized); err != nil {
		return fmt.Errorf("tmux set-buffer: %w", err)
	}
	if _, err := t.runner.Run(ctx, "tmux", "paste-buffer", "-b", "relay-escalate", "-t", t.paneTarget, "-d"); err != nil {
		return fmt.Errorf("tmux paste-buffer to %s: %w", t.paneTarget, err)
	}
	if _, err := t.runner.Run(ctx, "tmux", "send-keys", "-t", t.paneTarget, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys Enter to %s: %w", t.paneTarget, err)
	}
	return nil
}

// Approve implements InterventionGate. The notifier has no reply channel,
// so it posts the escalation and denies: the pipeline parks in Blocked
// and the manager drives recovery explicitly.
func (t *TmuxNotifier) Approve(ctx context.Context, reason string, hctx *protocol.HandoffContext) (bool, error) {
	msg := protocol.FormatEscalation(protocol.EscBlocked, hctx.ID, reason, "pipeline blocked; recover via relay")
	if err := t.Post(ctx, msg); err != nil {
		return false, err
	}
	return false, nil
}

// sanitizeForTmux strips newlines so the message does not span multiple
// lines in the manager's terminal.
func sanitizeForTmux(msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	return msg
}
