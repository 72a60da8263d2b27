package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for orchestrator lifecycle misuse.
var (
	// ErrAlreadyActive is returned by Start when a unit of work is in
	// flight and Reset has not been called.
	ErrAlreadyActive = errors.New("already active")

	// ErrNotActive is returned by HandleRoleCompletion when no unit of
	// work is in flight.
	ErrNotActive = errors.New("orchestrator not active")

	// ErrNoContext is returned when an operation requires a live
	// handoff context and none exists.
	ErrNoContext = errors.New("no handoff context")
)

// InvalidTransitionError reports a (from, to) pair absent from the static
// edge table. It enables typed discrimination via errors.As; state is
// untouched when it is returned.
type InvalidTransitionError struct {
	From Role
	To   Role
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// ValidationError reports a handoff context that is insufficient to enter
// a review or audit role. The commit is aborted with no state change.
type ValidationError struct {
	Role    Role
	Missing string // field or section the context lacks
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("context not valid for %s: missing %s", e.Role, e.Missing)
}

// DesignIncompleteError reports a designer handoff refused by the
// minimum-quality check. The caller must keep producing elements.
type DesignIncompleteError struct {
	ElementCount int
	Components   int
	MinElements  int
}

func (e *DesignIncompleteError) Error() string {
	return fmt.Sprintf("design handoff refused: %d elements, %d components (need %d elements)",
		e.ElementCount, e.Components, e.MinElements)
}
