package orchestrator

import (
	"context"

	"relay/pkg/protocol"
)

// ModeSwitcher is told which role is now active after every committed
// transition. It is best-effort: a failure is surfaced as a warning
// event and never rolls back the transition.
type ModeSwitcher interface {
	SwitchActiveRole(ctx context.Context, role protocol.Role) error
}

// InterventionGate is asked to approve continuation when a test or
// security rejection threshold is breached. Approve may block until a
// human answers; there is no cancellation beyond ctx. A true result
// resumes the pipeline at Builder; false parks it in Blocked.
type InterventionGate interface {
	Approve(ctx context.Context, reason string, hctx *protocol.HandoffContext) (bool, error)
}

// ReportGenerator is invoked once, when a non-nested unit of work commits
// to Completed. A write failure is surfaced as a warning event, not a
// transition failure.
type ReportGenerator interface {
	Generate(ctx context.Context, hctx *protocol.HandoffContext) error
}

// NopModeSwitcher ignores role switches.
type NopModeSwitcher struct{}

// SwitchActiveRole implements ModeSwitcher.
func (NopModeSwitcher) SwitchActiveRole(context.Context, protocol.Role) error { return nil }

// DenyGate refuses every intervention request, parking the pipeline in
// Blocked for external recovery. It is the default when no human is
// wired in.
type DenyGate struct{}

// Approve implements InterventionGate.
func (DenyGate) Approve(context.Context, string, *protocol.HandoffContext) (bool, error) {
	return false, nil
}

// NopReportGenerator skips report generation.
type NopReportGenerator struct{}

// Generate implements ReportGenerator.
func (NopReportGenerator) Generate(context.Context, *protocol.HandoffContext) error { return nil }
