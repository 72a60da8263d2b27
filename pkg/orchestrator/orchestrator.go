// Package orchestrator implements the Relay workflow FSM — the engine
// that hands a unit of work between pipeline personas (planner, designer,
// builder, reviewers, tester, security auditor) until it reaches a
// terminal outcome.
//
// Routing authority lives in the pure decision function (decision.go);
// the static transition table is a validity check only. The retry guard
// converts repeated backward routing into a human escalation or an
// auto-resolution so no review loop can spin forever.
//
// The orchestrator owns one unit of work at a time. All public methods
// are serialized by an internal mutex: the handoff context is mutated in
// place and the mutex is its single-writer guarantee.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"relay/pkg/protocol"
)

// Config wires the orchestrator's policies and external hooks. Zero
// values get defaults from withDefaults.
type Config struct {
	Thresholds RetryThresholds
	Floors     DesignFloors

	// Classifier turns free-text notes into routing signals.
	// Defaults to NewKeywordClassifier().
	Classifier Classifier

	// Modes is told the active role after every committed transition
	// (best-effort). Defaults to NopModeSwitcher.
	Modes ModeSwitcher

	// Gate approves or denies continuation on a retry-threshold breach.
	// Defaults to DenyGate: block and wait for external recovery.
	Gate InterventionGate

	// Report runs once when a non-nested unit of work completes.
	// Defaults to NopReportGenerator.
	Report ReportGenerator
}

func (c Config) withDefaults() Config {
	c.Thresholds = c.Thresholds.withDefaults()
	c.Floors = c.Floors.withDefaults()
	if c.Classifier == nil {
		c.Classifier = NewKeywordClassifier()
	}
	if c.Modes == nil {
		c.Modes = NopModeSwitcher{}
	}
	if c.Gate == nil {
		c.Gate = DenyGate{}
	}
	if c.Report == nil {
		c.Report = NopReportGenerator{}
	}
	return c
}

// Orchestrator is the pipeline FSM. It owns the current role, the live
// handoff context, and the rejection counters.
type Orchestrator struct {
	mu        sync.Mutex
	cfg       Config
	current   protocol.Role
	hctx      *protocol.HandoffContext
	guard     retryGuard
	listeners []Listener
}

// New creates an idle orchestrator.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:     cfg,
		current: protocol.RoleIdle,
		guard:   newRetryGuard(cfg.Thresholds),
	}
}

// Subscribe registers an event listener. Listeners run synchronously on
// the calling goroutine of the method that commits the transition.
func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

// Start begins a new unit of work: Idle -> Planner. It fails with
// ErrAlreadyActive if a unit of work is already in flight.
func (o *Orchestrator) Start(ctx context.Context, originalRequest string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != protocol.RoleIdle {
		return fmt.Errorf("cannot start from %s: %w", o.current, protocol.ErrAlreadyActive)
	}
	o.hctx = protocol.NewContext(originalRequest)
	return o.commit(ctx, protocol.RolePlanner, false)
}

// StartWith begins a unit of work from a pre-populated context, used for
// externally defined tasks (batch / spec-driven execution).
func (o *Orchestrator) StartWith(ctx context.Context, hctx *protocol.HandoffContext) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != protocol.RoleIdle {
		return fmt.Errorf("cannot start from %s: %w", o.current, protocol.ErrAlreadyActive)
	}
	if hctx == nil {
		return protocol.ErrNoContext
	}
	o.hctx = hctx
	return o.commit(ctx, protocol.RolePlanner, false)
}

// HandleRoleCompletion merges a role's completion payload into the
// context, runs the decision function and the retry guard, and commits
// the resulting transition.
//
// Routing failures (invalid transition, failed validation, refused
// design handoff) return a typed error without a role change; the caller
// may retry with a better payload.
func (o *Orchestrator) HandleRoleCompletion(ctx context.Context, p *protocol.HandoffPayload) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == protocol.RoleIdle || o.current == protocol.RoleCompleted {
		return fmt.Errorf("completion for %s: %w", o.current, protocol.ErrNotActive)
	}
	if o.hctx == nil {
		return protocol.ErrNoContext
	}
	if p == nil {
		p = &protocol.HandoffPayload{}
	}

	o.hctx.Merge(p)
	o.hctx.AttemptNumber++

	d, err := decide(o.current, o.hctx, p, o.cfg.Classifier, o.cfg.Floors)
	if err != nil {
		return err
	}

	if d.resetAll {
		o.guard.resetAll()
	}
	if d.carryNotes != "" {
		o.hctx.AppendReviewerNotes(d.carryNotes)
	}

	if d.gate != gateNone {
		o.hctx.RecordFailure(o.current, d.reason, d.carryNotes)
		if _, breached := o.guard.record(d.gate); breached {
			if d.gate == gateDesignReview {
				return o.autoResolveDesignReview(ctx)
			}
			return o.escalate(ctx, d.gate)
		}
	}

	if d.designPassed {
		o.hctx.DesignReviewPassed = protocol.FlagTrue
		o.guard.resetDesignReview()
	}

	return o.commit(ctx, d.next, false)
}

// Transition is the direct, validated commit: explicit forced routing
// and recovery driving go through here.
func (o *Orchestrator) Transition(ctx context.Context, target protocol.Role) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.commit(ctx, target, false)
}

// Reset returns the orchestrator to Idle, dropping the context and
// clearing every rejection counter.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = protocol.RoleIdle
	o.hctx = nil
	o.guard.resetAll()
}

// ForceState overwrites the current role, bypassing the transition table,
// validation, and all side effects. Debugging and test escape hatch only.
func (o *Orchestrator) ForceState(role protocol.Role) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = role
}

// Status is a read-only snapshot of the orchestrator.
type Status struct {
	CurrentRole            protocol.Role `json:"currentRole"`
	IsActive               bool          `json:"isActive"`
	TestRejections         int           `json:"testRejections"`
	SecurityRejections     int           `json:"securityRejections"`
	DesignReviewRejections int           `json:"designReviewRejections"`
	HasContext             bool          `json:"hasContext"`
	ContextID              string        `json:"contextId,omitempty"`
	AttemptNumber          int           `json:"attemptNumber"`
}

// Status returns the current snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		CurrentRole:            o.current,
		IsActive:               o.current != protocol.RoleIdle && o.current != protocol.RoleCompleted,
		TestRejections:         o.guard.testRejections,
		SecurityRejections:     o.guard.securityRejections,
		DesignReviewRejections: o.guard.designReviewRejections,
		HasContext:             o.hctx != nil,
	}
	if o.hctx != nil {
		s.ContextID = o.hctx.ID
		s.AttemptNumber = o.hctx.AttemptNumber
	}
	return s
}

// Context returns the live handoff context, or nil when idle. Callers
// must treat it as read-only; the orchestrator is the single writer.
func (o *Orchestrator) Context() *protocol.HandoffContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hctx
}

// CurrentRole returns the current role.
func (o *Orchestrator) CurrentRole() protocol.Role {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// autoResolveDesignReview terminates a design-review loop that has no
// human in it by default: force the pass, note why, and advance. Nested
// units complete outright. Caller must hold o.mu.
func (o *Orchestrator) autoResolveDesignReview(ctx context.Context) error {
	note := fmt.Sprintf("design review auto-resolved after %d rejections", o.guard.designReviewRejections)
	o.hctx.DesignReviewPassed = protocol.FlagTrue
	o.hctx.AppendReviewerNotes(note)
	o.guard.resetDesignReview()

	target := protocol.RoleBuilder
	if o.hctx.Nested() {
		target = protocol.RoleCompleted
	}
	o.emit(Event{
		Type:    EventAutoResolved,
		From:    o.current,
		To:      target,
		Context: o.hctx,
		Message: note,
	})
	return o.commit(ctx, target, false)
}

// escalate handles a test/security threshold breach: record the failure,
// mark the context blocked, and ask the intervention gate. Approval
// resets the breached counter and forces a resume at Builder; denial
// commits Blocked directly, bypassing the transition table. Caller must
// hold o.mu; the gate may block the call until a human answers.
func (o *Orchestrator) escalate(ctx context.Context, gate rejectionGate) error {
	var reason string
	switch gate {
	case gateTest:
		reason = fmt.Sprintf("%d consecutive test rejections", o.guard.testRejections)
	case gateSecurity:
		reason = fmt.Sprintf("%d consecutive security rejections", o.guard.securityRejections)
	}

	o.hctx.RecordFailure(o.current, "retry threshold breached", reason)
	o.hctx.Status = protocol.StatusBlocked

	approved, err := o.cfg.Gate.Approve(ctx, reason, o.hctx)
	if err != nil {
		o.emit(Event{
			Type:    EventWarning,
			From:    o.current,
			To:      o.current,
			Context: o.hctx,
			Message: "intervention gate error: " + err.Error(),
		})
		approved = false
	}

	if approved {
		switch gate {
		case gateTest:
			o.guard.resetTest()
		case gateSecurity:
			o.guard.resetSecurity()
		}
		return o.commit(ctx, protocol.RoleBuilder, true)
	}
	return o.commit(ctx, protocol.RoleBlocked, true)
}

// commit is the single mutation point: it gates the transition, rewrites
// the context's edge fields, applies forward-progress counter resets,
// and runs the best-effort side effects. The transition itself is the
// unit of atomicity — side-effect failures never roll it back. Caller
// must hold o.mu.
func (o *Orchestrator) commit(ctx context.Context, target protocol.Role, forced bool) error {
	if !forced {
		// Planner is a deliberate escape valve for re-planning from
		// almost any gate; it bypasses the static table.
		if !CanTransition(o.current, target) && target != protocol.RolePlanner {
			return &protocol.InvalidTransitionError{From: o.current, To: target}
		}
		if err := ValidateForEntry(target, o.hctx); err != nil {
			return err
		}
	}

	prev := o.current
	o.current = target

	if o.hctx != nil {
		o.hctx.FromRole = prev
		o.hctx.ToRole = target
		switch target {
		case protocol.RoleCompleted:
			o.hctx.Status = protocol.StatusCompleted
		case protocol.RoleBlocked:
			o.hctx.Status = protocol.StatusBlocked
		default:
			o.hctx.Status = protocol.StatusInProgress
		}
	}

	// Qualifying forward progress resets the counters it vouches for.
	switch target {
	case protocol.RoleSecurityAudit:
		o.guard.resetTest()
	case protocol.RoleCompleted:
		o.guard.resetSecurity()
	}

	if err := o.cfg.Modes.SwitchActiveRole(ctx, target); err != nil {
		o.emit(Event{
			Type:    EventWarning,
			From:    prev,
			To:      target,
			Context: o.hctx,
			Message: "mode switch failed: " + err.Error(),
		})
	}

	evType := EventTransition
	if target == protocol.RoleBlocked {
		evType = EventBlocked
	}
	o.emit(Event{Type: evType, From: prev, To: target, Context: o.hctx})

	if target == protocol.RoleCompleted && o.hctx != nil && !o.hctx.Nested() {
		if err := o.cfg.Report.Generate(ctx, o.hctx); err != nil {
			o.emit(Event{
				Type:    EventWarning,
				From:    prev,
				To:      target,
				Context: o.hctx,
				Message: "report generation failed: " + err.Error(),
			})
		} else {
			o.emit(Event{Type: EventReport, From: prev, To: target, Context: o.hctx})
		}
	}
	return nil
}
