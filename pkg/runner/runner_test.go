package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay/pkg/eventlog"
	"relay/pkg/orchestrator"
	"relay/pkg/protocol"
)

// scriptedAgent answers each role from a fixed table and records the
// sequence of roles it was asked to play.
type scriptedAgent struct {
	responses map[protocol.Role]func(hctx *protocol.HandoffContext) *protocol.HandoffPayload
	visited   []protocol.Role
}

func (a *scriptedAgent) Complete(_ context.Context, role protocol.Role, hctx *protocol.HandoffContext) (*protocol.HandoffPayload, error) {
	a.visited = append(a.visited, role)
	fn, ok := a.responses[role]
	if !ok {
		return nil, fmt.Errorf("unexpected role %s", role)
	}
	return fn(hctx), nil
}

func approval(set func(p *protocol.HandoffPayload, out *protocol.ReviewOutcome)) func(*protocol.HandoffContext) *protocol.HandoffPayload {
	return func(*protocol.HandoffContext) *protocol.HandoffPayload {
		p := &protocol.HandoffPayload{}
		set(p, &protocol.ReviewOutcome{Approved: protocol.FlagTrue})
		return p
	}
}

// happyAgent drives a no-UI task straight through the pipeline.
func happyAgent() *scriptedAgent {
	return &scriptedAgent{responses: map[protocol.Role]func(*protocol.HandoffContext) *protocol.HandoffPayload{
		protocol.RolePlanner: func(*protocol.HandoffContext) *protocol.HandoffPayload {
			return &protocol.HandoffPayload{Plan: &protocol.Plan{Summary: "rename config key", HasUI: protocol.FlagFalse}}
		},
		protocol.RoleBuilder: func(*protocol.HandoffContext) *protocol.HandoffPayload {
			return &protocol.HandoffPayload{Build: &protocol.BuildOutput{ChangedFiles: []string{"config.go"}}}
		},
		protocol.RoleCodeReview: approval(func(p *protocol.HandoffPayload, out *protocol.ReviewOutcome) { p.CodeReview = out }),
		protocol.RoleTester: func(*protocol.HandoffContext) *protocol.HandoffPayload {
			return &protocol.HandoffPayload{Test: &protocol.TestOutcome{TestsPassed: protocol.FlagTrue}}
		},
		protocol.RoleTestReview: approval(func(p *protocol.HandoffPayload, out *protocol.ReviewOutcome) { p.TestReview = out }),
		protocol.RoleSecurityAudit: func(*protocol.HandoffContext) *protocol.HandoffPayload {
			return &protocol.HandoffPayload{Security: &protocol.SecurityOutcome{SecurityPassed: protocol.FlagTrue}}
		},
		protocol.RoleFinalReview: approval(func(p *protocol.HandoffPayload, out *protocol.ReviewOutcome) { p.FinalReview = out }),
	}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(t *testing.T, agent RoleAgent) (*Runner, *orchestrator.Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	tasksDir := filepath.Join(dir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w, err := eventlog.Open(filepath.Join(dir, "relay.db"))
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	orch := orchestrator.New(orchestrator.Config{})
	r := New(Config{TasksDir: tasksDir, Logger: quietLogger()}, orch, agent, w, NewMetrics())
	return r, orch, tasksDir
}

func TestRunOnceHappyPath(t *testing.T) {
	agent := happyAgent()
	r, orch, _ := newTestRunner(t, agent)

	status, err := r.RunOnce(context.Background(), "rename the config key")
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if status.CurrentRole != protocol.RoleCompleted {
		t.Fatalf("final role = %s, want completed", status.CurrentRole)
	}

	want := []protocol.Role{
		protocol.RolePlanner, protocol.RoleBuilder, protocol.RoleCodeReview,
		protocol.RoleTester, protocol.RoleTestReview, protocol.RoleSecurityAudit,
		protocol.RoleFinalReview,
	}
	if len(agent.visited) != len(want) {
		t.Fatalf("visited %v, want %v", agent.visited, want)
	}
	for i, role := range want {
		if agent.visited[i] != role {
			t.Fatalf("visited[%d] = %s, want %s", i, agent.visited[i], role)
		}
	}
	if hctx := orch.Context(); hctx.Status != protocol.StatusCompleted {
		t.Fatalf("context status = %s", hctx.Status)
	}
}

func TestDrainExecutesAndRenamesTask(t *testing.T) {
	agent := happyAgent()
	r, orch, tasksDir := newTestRunner(t, agent)

	path := filepath.Join(tasksDir, "rename-key.yaml")
	if err := os.WriteFile(path, []byte("request: rename the config key\n"), 0o644); err != nil {
		t.Fatalf("write task: %v", err)
	}

	r.drain(context.Background())

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("task file must be renamed away, stat err = %v", err)
	}
	if _, err := os.Stat(path + ".done"); err != nil {
		t.Fatalf("done marker missing: %v", err)
	}
	if orch.CurrentRole() != protocol.RoleCompleted {
		t.Fatalf("role after drain = %s", orch.CurrentRole())
	}
	if hctx := orch.Context(); hctx.SpecTaskRef != "rename-key" {
		t.Fatalf("task ref = %q", hctx.SpecTaskRef)
	}
}

func TestDrainMarksBlockedTask(t *testing.T) {
	// Tests always fail; the default gate denies, so the third rejection
	// blocks the unit of work.
	agent := happyAgent()
	agent.responses[protocol.RoleTester] = func(*protocol.HandoffContext) *protocol.HandoffPayload {
		return &protocol.HandoffPayload{Test: &protocol.TestOutcome{TestsPassed: protocol.FlagFalse, Notes: "login flow broken"}}
	}
	r, orch, tasksDir := newTestRunner(t, agent)

	path := filepath.Join(tasksDir, "flaky.yaml")
	if err := os.WriteFile(path, []byte("request: fix the login flow\n"), 0o644); err != nil {
		t.Fatalf("write task: %v", err)
	}

	r.drain(context.Background())

	if _, err := os.Stat(path + ".blocked"); err != nil {
		t.Fatalf("blocked marker missing: %v", err)
	}
	if orch.CurrentRole() != protocol.RoleBlocked {
		t.Fatalf("role = %s, want blocked", orch.CurrentRole())
	}
	if len(orch.Context().FailureHistory) == 0 {
		t.Fatal("failure history must record the rejections")
	}
}

func TestDrainMarksUnparseableTaskFailed(t *testing.T) {
	r, _, tasksDir := newTestRunner(t, happyAgent())

	path := filepath.Join(tasksDir, "broken.yaml")
	if err := os.WriteFile(path, []byte("title: no request\n"), 0o644); err != nil {
		t.Fatalf("write task: %v", err)
	}

	r.drain(context.Background())

	if _, err := os.Stat(path + ".failed"); err != nil {
		t.Fatalf("failed marker missing: %v", err)
	}
}

// errAgent returns payloads the decision function refuses, to exercise
// the bounded retry on rejected routings.
type errAgent struct {
	calls int
}

func (a *errAgent) Complete(_ context.Context, role protocol.Role, _ *protocol.HandoffContext) (*protocol.HandoffPayload, error) {
	a.calls++
	if role == protocol.RolePlanner {
		return &protocol.HandoffPayload{Plan: &protocol.Plan{Summary: "x", HasUI: protocol.FlagFalse}}, nil
	}
	// Builder with no build output fails validation every time.
	return &protocol.HandoffPayload{}, nil
}

func TestRunOnceAbortsAfterRepeatedRoutingErrors(t *testing.T) {
	agent := &errAgent{}
	r, _, _ := newTestRunner(t, agent)

	if _, err := r.RunOnce(context.Background(), "do the thing"); err == nil {
		t.Fatal("stuck pipeline must abort with an error")
	}
	if agent.calls > 1+3 {
		t.Fatalf("agent called %d times, want at most 4", agent.calls)
	}
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
		check   func(t *testing.T, p *protocol.HandoffPayload)
	}{
		{
			name:   "bare json",
			output: `{"plan": {"summary": "s", "hasUI": "false"}}`,
			check: func(t *testing.T, p *protocol.HandoffPayload) {
				if p.Plan == nil || !p.Plan.HasUI.False() {
					t.Fatalf("plan = %+v", p.Plan)
				}
			},
		},
		{
			name:   "prose and fenced block",
			output: "Here is my review:\n```json\n{\"codeReview\": {\"approved\": true}}\n```\nDone.",
			check: func(t *testing.T, p *protocol.HandoffPayload) {
				if p.CodeReview == nil || !p.CodeReview.Approved.True() {
					t.Fatalf("code review = %+v", p.CodeReview)
				}
			},
		},
		{
			name:   "tolerant flag shapes",
			output: `{"testOutcome": {"testsPassed": 1}}`,
			check: func(t *testing.T, p *protocol.HandoffPayload) {
				if p.Test == nil || !p.Test.TestsPassed.True() {
					t.Fatalf("test outcome = %+v", p.Test)
				}
			},
		},
		{name: "no json", output: "I could not complete the task.", wantErr: true},
		{name: "malformed json", output: "{not json}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ExtractPayload(tt.output)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestRolePromptsCoverWorkingRoles(t *testing.T) {
	for _, role := range protocol.AllRoles() {
		switch role {
		case protocol.RoleIdle, protocol.RoleCompleted, protocol.RoleBlocked:
			if _, ok := roleInstructions[role]; ok {
				t.Fatalf("%s must not have a persona", role)
			}
		default:
			inst, ok := roleInstructions[role]
			if !ok {
				t.Fatalf("missing persona for %s", role)
			}
			if !strings.Contains(inst, "JSON") {
				t.Fatalf("%s persona must demand JSON output", role)
			}
		}
	}
}
