package orchestrator

import (
	"fmt"
	"strings"

	"relay/pkg/protocol"
)

// Default designer minimum-quality floors.
const (
	DefaultMinDesignElements   = 3
	DefaultMinDesignComponents = 2
)

// DesignFloors configures the designer handoff minimum-quality check.
type DesignFloors struct {
	// MinElements is the expected-element-count floor that passes the
	// check outright.
	MinElements int
	// MinComponents is the created-component floor for the fallback
	// path, which additionally requires real UI element mentions in
	// the notes.
	MinComponents int
}

func (f DesignFloors) withDefaults() DesignFloors {
	if f.MinElements <= 0 {
		f.MinElements = DefaultMinDesignElements
	}
	if f.MinComponents <= 0 {
		f.MinComponents = DefaultMinDesignComponents
	}
	return f
}

// decision is the outcome of the pure routing step: the candidate next
// role plus the bookkeeping the effect shell must apply. It carries no
// side effects itself.
type decision struct {
	next protocol.Role
	// gate names the rejection counter to increment, if this decision
	// routes backward from a guarded gate.
	gate rejectionGate
	// carryNotes is reviewer feedback to append to the context for the
	// builder to read.
	carryNotes string
	// designPassed marks a passing design review (sets the context flag
	// and resets the design counter).
	designPassed bool
	// resetAll resets every rejection counter (Blocked recovery).
	resetAll bool
	// reason is a short human-readable routing explanation for the
	// event log.
	reason string
}

// decide computes the candidate next role for a completed current role.
// It inspects the just-received payload, the merged context, and free
// text via the classifier. It is a pure function of its inputs: all
// mutation happens in the orchestrator's effect shell.
//
// The returned error is recoverable (e.g. a refused designer handoff);
// the caller must leave state unchanged.
func decide(current protocol.Role, hctx *protocol.HandoffContext, p *protocol.HandoffPayload, cls Classifier, floors DesignFloors) (decision, error) {
	switch current {
	case protocol.RolePlanner:
		return decidePlanner(hctx, p, cls)
	case protocol.RoleDesigner:
		return decideDesigner(hctx, cls, floors.withDefaults())
	case protocol.RoleDesignReview:
		return decideDesignReview(hctx, p, cls)
	case protocol.RoleBuilder:
		return decideBuilder(hctx, p)
	case protocol.RoleCodeReview:
		return decideCodeReview(p, cls)
	case protocol.RoleTester:
		return decideTester(hctx, p, cls)
	case protocol.RoleTestReview:
		return decideTestReview(hctx, p, cls)
	case protocol.RoleSecurityAudit:
		return decideSecurityAudit(hctx)
	case protocol.RoleFinalReview:
		return decideFinalReview(p, cls)
	case protocol.RoleBlocked:
		return decideBlockedRecovery(hctx)
	default:
		return decision{}, fmt.Errorf("no completion handling for role %s: %w", current, protocol.ErrNotActive)
	}
}

// decidePlanner routes to Designer when any design signal is present,
// otherwise to Builder. An explicit hasUI=false short-circuits straight
// to Builder regardless of every other signal.
func decidePlanner(hctx *protocol.HandoffContext, p *protocol.HandoffPayload, cls Classifier) (decision, error) {
	plan := hctx.Plan
	if plan == nil {
		return decision{}, &protocol.ValidationError{Role: protocol.RolePlanner, Missing: "plan"}
	}

	// Explicit-false override wins over every heuristic.
	if plan.HasUI.False() {
		return decision{next: protocol.RoleBuilder, reason: "explicit hasUI=false"}, nil
	}

	if plan.DesignToolRef != "" {
		return decision{next: protocol.RoleDesigner, reason: "design tool reference present"}, nil
	}
	if plan.NeedsDesign.True() || plan.HasUI.True() || plan.UseDesignTool.True() {
		return decision{next: protocol.RoleDesigner, reason: "explicit design flag"}, nil
	}

	freeText := strings.Join([]string{plan.Notes, p.Notes, hctx.OriginalRequest}, "\n")
	if cls.DesignNeeded(freeText) {
		return decision{next: protocol.RoleDesigner, reason: "design keywords in request"}, nil
	}
	return decision{next: protocol.RoleBuilder, reason: "no design signal"}, nil
}

// decideDesigner gates the handoff to DesignReview on a minimum-quality
// check; a handoff below the floor is refused and the designer must keep
// producing elements.
func decideDesigner(hctx *protocol.HandoffContext, cls Classifier, floors DesignFloors) (decision, error) {
	design := hctx.Design
	if design == nil {
		return decision{}, &protocol.ValidationError{Role: protocol.RoleDesigner, Missing: "design output"}
	}

	if design.ExpectedElementCount >= floors.MinElements {
		return decision{next: protocol.RoleDesignReview, reason: "element count meets floor"}, nil
	}
	if len(design.CreatedComponents) >= floors.MinComponents && cls.UIElementMentions(design.Notes) > 0 {
		return decision{next: protocol.RoleDesignReview, reason: "component fallback met"}, nil
	}
	return decision{}, &protocol.DesignIncompleteError{
		ElementCount: design.ExpectedElementCount,
		Components:   len(design.CreatedComponents),
		MinElements:  floors.MinElements,
	}
}

// decideDesignReview accepts approval from multiple payload shapes.
// Absence of explicit rejection plus any approval signal counts as pass.
// A passing review on a nested unit terminates the pipeline early.
func decideDesignReview(hctx *protocol.HandoffContext, p *protocol.HandoffPayload, cls Classifier) (decision, error) {
	out := p.DesignReview
	if reviewPassed(out, cls) {
		next := protocol.RoleBuilder
		reason := "design review passed"
		if hctx.Nested() {
			next = protocol.RoleCompleted
			reason = "design review passed; nested unit short-circuits"
		}
		return decision{next: next, designPassed: true, reason: reason}, nil
	}
	return decision{
		next:       protocol.RoleDesigner,
		gate:       gateDesignReview,
		carryNotes: reviewNotes(out),
		reason:     "design review rejected",
	}, nil
}

// decideBuilder routes to CodeReview once build output is present. A
// design-revision flag on the build output routes back to Designer
// instead.
func decideBuilder(hctx *protocol.HandoffContext, p *protocol.HandoffPayload) (decision, error) {
	if p.Build != nil && p.Build.NeedsDesignRevision.True() {
		return decision{next: protocol.RoleDesigner, reason: "builder requested design revision"}, nil
	}
	if hctx.Build == nil {
		return decision{}, &protocol.ValidationError{Role: protocol.RoleBuilder, Missing: "build output"}
	}
	return decision{next: protocol.RoleCodeReview, reason: "build output present"}, nil
}

// decideCodeReview: approved routes to Tester, explicit rejection back to
// Builder; the reviewer may instead force a full re-plan.
func decideCodeReview(p *protocol.HandoffPayload, cls Classifier) (decision, error) {
	out := p.CodeReview
	if out != nil && out.Replan.True() {
		return decision{next: protocol.RolePlanner, reason: "code reviewer forced re-plan"}, nil
	}
	if reviewRejected(out, cls) {
		return decision{
			next:       protocol.RoleBuilder,
			carryNotes: reviewNotes(out),
			reason:     "code review rejected",
		}, nil
	}
	return decision{next: protocol.RoleTester, reason: "code review approved"}, nil
}

// decideTester routes explicit failures (or failure language in the
// notes) back to Builder and a design-revision request to Designer;
// otherwise to TestReview.
func decideTester(hctx *protocol.HandoffContext, p *protocol.HandoffPayload, cls Classifier) (decision, error) {
	outcome := hctx.Test
	if outcome != nil && outcome.NeedsDesignRevision.True() {
		return decision{next: protocol.RoleDesigner, reason: "tester requested design revision"}, nil
	}
	if outcome != nil && outcome.TestsPassed.False() {
		return decision{
			next:       protocol.RoleBuilder,
			gate:       gateTest,
			carryNotes: outcome.Notes,
			reason:     "tests failed",
		}, nil
	}
	// No explicit flag: scan the free-text notes for failure language.
	if outcome == nil || !outcome.TestsPassed.IsSet() {
		notes := p.Notes
		if outcome != nil {
			notes = strings.Join([]string{notes, outcome.Notes}, "\n")
		}
		if cls.Failure(notes) {
			return decision{
				next:       protocol.RoleBuilder,
				gate:       gateTest,
				carryNotes: notes,
				reason:     "failure language in test notes",
			}, nil
		}
	}
	return decision{next: protocol.RoleTestReview, reason: "tests passed"}, nil
}

// decideTestReview routes rejection (explicit, inferred from a prior
// test failure, or read from the review notes) directly to Builder,
// carrying the reviewer's notes forward; approval advances to the
// security audit.
func decideTestReview(hctx *protocol.HandoffContext, p *protocol.HandoffPayload, cls Classifier) (decision, error) {
	out := p.TestReview
	priorFailure := hctx.Test != nil && hctx.Test.TestsPassed.False()
	if reviewRejected(out, cls) || priorFailure || (out != nil && cls.Failure(out.Notes)) {
		return decision{
			next:       protocol.RoleBuilder,
			gate:       gateTest,
			carryNotes: reviewNotes(out),
			reason:     "test review rejected",
		}, nil
	}
	return decision{next: protocol.RoleSecurityAudit, reason: "test review approved"}, nil
}

// decideSecurityAudit routes failure or an explicit reject recommendation
// back to Planner for re-scoping; otherwise forward to FinalReview.
func decideSecurityAudit(hctx *protocol.HandoffContext) (decision, error) {
	sec := hctx.Security
	if sec != nil {
		rejected := sec.SecurityPassed.False() || strings.EqualFold(strings.TrimSpace(sec.Recommendation), "reject")
		if rejected {
			return decision{
				next:       protocol.RolePlanner,
				gate:       gateSecurity,
				carryNotes: sec.Notes,
				reason:     "security audit failed",
			}, nil
		}
	}
	return decision{next: protocol.RoleFinalReview, reason: "security audit passed"}, nil
}

// decideFinalReview: explicit rejection forces a re-plan; anything else
// completes the pipeline.
func decideFinalReview(p *protocol.HandoffPayload, cls Classifier) (decision, error) {
	if reviewRejected(p.FinalReview, cls) {
		return decision{
			next:       protocol.RolePlanner,
			carryNotes: reviewNotes(p.FinalReview),
			reason:     "final review rejected",
		}, nil
	}
	return decision{next: protocol.RoleCompleted, reason: "final review passed"}, nil
}

// decideBlockedRecovery resets every counter and resumes where the
// carried test outcome points: an explicit pass re-enters at CodeReview,
// an explicit failure at Builder, and no signal defaults to CodeReview.
func decideBlockedRecovery(hctx *protocol.HandoffContext) (decision, error) {
	next := protocol.RoleCodeReview
	reason := "blocked recovery: default to code review"
	if hctx.Test != nil {
		switch {
		case hctx.Test.TestsPassed.True():
			next = protocol.RoleCodeReview
			reason = "blocked recovery: tests passing"
		case hctx.Test.TestsPassed.False():
			next = protocol.RoleBuilder
			reason = "blocked recovery: tests failing"
		}
	}
	return decision{next: next, resetAll: true, reason: reason}, nil
}

// reviewPassed reports whether a gate outcome counts as a pass: no
// explicit rejection plus any approval signal.
func reviewPassed(out *protocol.ReviewOutcome, cls Classifier) bool {
	if out == nil {
		return false
	}
	if reviewRejected(out, cls) {
		return false
	}
	if out.Approved.True() {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(out.Status)) {
	case "approved", "approve", "pass", "passed", "ok", "lgtm":
		return true
	}
	return cls.Approval(out.Notes)
}

// reviewRejected reports an explicit rejection: the flag, a rejecting
// status string, or rejection phrasing in the notes.
func reviewRejected(out *protocol.ReviewOutcome, cls Classifier) bool {
	if out == nil {
		return false
	}
	if out.Approved.False() {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(out.Status)) {
	case "rejected", "reject", "fail", "failed", "changes_requested":
		return true
	}
	return cls.Rejection(out.Notes)
}

func reviewNotes(out *protocol.ReviewOutcome) string {
	if out == nil {
		return ""
	}
	return out.Notes
}
