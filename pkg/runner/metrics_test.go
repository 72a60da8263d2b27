package runner

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"relay/pkg/orchestrator"
	"relay/pkg/protocol"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()

	m.Observe(orchestrator.Event{Type: orchestrator.EventTransition, From: protocol.RoleIdle, To: protocol.RolePlanner})
	m.Observe(orchestrator.Event{Type: orchestrator.EventTransition, From: protocol.RoleCodeReview, To: protocol.RoleBuilder})
	m.Observe(orchestrator.Event{Type: orchestrator.EventTransition, From: protocol.RoleCodeReview, To: protocol.RoleTester})
	m.Observe(orchestrator.Event{Type: orchestrator.EventTransition, From: protocol.RoleFinalReview, To: protocol.RoleCompleted})
	m.Observe(orchestrator.Event{Type: orchestrator.EventBlocked, From: protocol.RoleTester, To: protocol.RoleBlocked})
	m.Observe(orchestrator.Event{Type: orchestrator.EventAutoResolved, From: protocol.RoleDesignReview, To: protocol.RoleBuilder})
	m.Observe(orchestrator.Event{Type: orchestrator.EventWarning})

	if got := testutil.ToFloat64(m.completed); got != 1 {
		t.Fatalf("completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.blocked); got != 1 {
		t.Fatalf("blocked = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.autoResolved); got != 1 {
		t.Fatalf("auto resolved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.warnings); got != 1 {
		t.Fatalf("warnings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("idle", "planner")); got != 1 {
		t.Fatalf("idle->planner transitions = %v, want 1", got)
	}
	// Only the backward routing out of code review counts as a rejection.
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("code_review")); got != 1 {
		t.Fatalf("code review rejections = %v, want 1", got)
	}
	// Blocked entries count as transitions too.
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("tester", "blocked")); got != 1 {
		t.Fatalf("tester->blocked transitions = %v, want 1", got)
	}
}
