package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a handoff context.
type Status string

// Status constants.
const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// FailureRecord is one append-only entry in a context's failure history.
type FailureRecord struct {
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Details   string    `json:"details,omitempty"`
}

// HandoffContext is the shared, mutable record for one unit of work. It
// carries every role's output across the pipeline. Exactly one context is
// live per orchestrator instance whenever the current role is not Idle.
//
// The context is mutated in place and visible to every component without
// copying; the orchestrator's mutex is the single-writer guarantee.
type HandoffContext struct {
	ID            string `json:"id"`
	FromRole      Role   `json:"fromRole"`
	ToRole        Role   `json:"toRole"`
	Status        Status `json:"status"`
	AttemptNumber int    `json:"attemptNumber"`

	// OriginalRequest is the human task statement; the planner decision
	// scans it for design-related language.
	OriginalRequest string `json:"originalRequest,omitempty"`

	Plan               *Plan            `json:"plan,omitempty"`
	Design             *DesignOutput    `json:"design,omitempty"`
	DesignReviewPassed Flag             `json:"designReviewPassed,omitempty"`
	Build              *BuildOutput     `json:"buildOutput,omitempty"`
	Test               *TestOutcome     `json:"testOutcome,omitempty"`
	Security           *SecurityOutcome `json:"securityOutcome,omitempty"`

	CodeReviewApproval  *ReviewOutcome `json:"codeReviewApproval,omitempty"`
	TestReviewApproval  *ReviewOutcome `json:"testReviewApproval,omitempty"`
	FinalReviewApproval *ReviewOutcome `json:"finalReviewApproval,omitempty"`

	// ReviewerNotes accumulates gate feedback carried forward for the
	// builder to read on rejection.
	ReviewerNotes string `json:"reviewerNotes,omitempty"`

	// FailureHistory never shrinks.
	FailureHistory []FailureRecord `json:"failureHistory,omitempty"`

	// SpecTaskRef links to an externally defined unit of work (batch /
	// spec-driven execution).
	SpecTaskRef string `json:"specTaskRef,omitempty"`

	// ParentTaskID marks this unit of work as nested inside another.
	// A nested unit short-circuits to Completed after a passing design
	// review; the remaining phases belong to the parent's pipeline.
	// This is an ID, not a pointer: the parent must not be kept alive
	// by its children.
	ParentTaskID string `json:"parentTaskId,omitempty"`
}

// NewContext creates a fresh context for a unit of work.
func NewContext(originalRequest string) *HandoffContext {
	return &HandoffContext{
		ID:              uuid.New().String(),
		FromRole:        RoleIdle,
		ToRole:          RoleIdle,
		Status:          StatusInProgress,
		OriginalRequest: originalRequest,
	}
}

// Nested reports whether this unit of work runs inside a parent task.
func (c *HandoffContext) Nested() bool {
	return c.ParentTaskID != ""
}

// RecordFailure appends an entry to the failure history.
func (c *HandoffContext) RecordFailure(role Role, reason, details string) {
	c.FailureHistory = append(c.FailureHistory, FailureRecord{
		Role:      role,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Details:   details,
	})
}

// AppendReviewerNotes carries gate feedback forward into the context.
func (c *HandoffContext) AppendReviewerNotes(notes string) {
	if notes == "" {
		return
	}
	if c.ReviewerNotes != "" {
		c.ReviewerNotes += "\n"
	}
	c.ReviewerNotes += notes
}

// Merge folds a role-completion payload into the context. Non-nil payload
// sections replace the corresponding context fields; review outcomes are
// stored on their approval slots. Merge performs no routing.
func (c *HandoffContext) Merge(p *HandoffPayload) {
	if p == nil {
		return
	}
	if p.Plan != nil {
		c.Plan = p.Plan
	}
	if p.Design != nil {
		c.Design = p.Design
	}
	if p.Build != nil {
		c.Build = p.Build
	}
	if p.Test != nil {
		c.Test = p.Test
	}
	if p.Security != nil {
		c.Security = p.Security
	}
	if p.CodeReview != nil {
		c.CodeReviewApproval = p.CodeReview
	}
	if p.TestReview != nil {
		c.TestReviewApproval = p.TestReview
	}
	if p.FinalReview != nil {
		c.FinalReviewApproval = p.FinalReview
	}
}
