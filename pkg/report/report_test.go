package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay/pkg/protocol"
)

func completedContext() *protocol.HandoffContext {
	hctx := protocol.NewContext("add a login page")
	hctx.Status = protocol.StatusCompleted
	hctx.AttemptNumber = 6
	hctx.Plan = &protocol.Plan{Summary: "login page with session store", HasUI: protocol.FlagTrue}
	hctx.Build = &protocol.BuildOutput{
		ChangedFiles: []string{"web/login.go", "web/session.go"},
		RunCommand:   "make serve",
	}
	hctx.Test = &protocol.TestOutcome{
		TestsPassed: protocol.FlagTrue,
		Results: []protocol.TestResult{
			{Name: "login_flow", Passed: true},
			{Name: "session_expiry", Passed: true, Detail: "30m ttl"},
		},
	}
	hctx.Security = &protocol.SecurityOutcome{SecurityPassed: protocol.FlagTrue}
	return hctx
}

func TestGenerateWritesReportOnce(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, "")
	hctx := completedContext()

	if err := g.Generate(context.Background(), hctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(dir, "report-"+hctx.ID+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	body := string(data)
	for _, want := range []string{
		"## Plan", "login page with session store",
		"## Build", "`web/login.go`",
		"## Tests", "| login_flow | pass |",
		"## Security audit", "Passed: yes",
		"## Flow", "planner -> builder -> reviews -> completed",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q:\n%s", want, body)
		}
	}

	// Second generation for the same context must fail, not overwrite.
	if err := g.Generate(context.Background(), hctx); err == nil {
		t.Fatal("second generate must fail")
	}
}

func TestGenerateRendersFailureFlow(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, "")
	hctx := completedContext()
	hctx.RecordFailure(protocol.RoleTester, "test rejection", "timeout in auth_test")
	hctx.RecordFailure(protocol.RoleCodeReview, "code review rejection", "")

	if err := g.Generate(context.Background(), hctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report-"+hctx.ID+".md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "tester: test rejection (timeout in auth_test)") {
		t.Fatalf("failure flow missing:\n%s", body)
	}
	if !strings.Contains(body, "final: completed") {
		t.Fatalf("final state missing:\n%s", body)
	}
}

func TestGenerateEmbedsScreenshots(t *testing.T) {
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "artifacts")
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"after.png", "before.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(artifacts, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
	}

	g := New(dir, artifacts)
	hctx := completedContext()
	if err := g.Generate(context.Background(), hctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report-"+hctx.ID+".md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "## Screenshots") {
		t.Fatalf("screenshots section missing:\n%s", body)
	}
	if strings.Index(body, "before.png") < strings.Index(body, "after.png") {
		t.Fatal("screenshots not sorted by name")
	}
	if strings.Contains(body, "notes.txt") {
		t.Fatal("non-png artifact must not be embedded")
	}
}

func TestGenerateNilContext(t *testing.T) {
	g := New(t.TempDir(), "")
	if err := g.Generate(context.Background(), nil); err == nil {
		t.Fatal("nil context must error")
	}
}
