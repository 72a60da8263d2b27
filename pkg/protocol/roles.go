// Package protocol defines the shared vocabulary of the Relay pipeline:
// the role set, handoff payloads, the live handoff context, tolerant
// boolean parsing, typed errors, escalation formatting, and the SQLite
// schema for the event log.
package protocol

// Role identifies a pipeline persona. The pipeline is a totally ordered
// sequence with branches: Planner optionally detours through Designer and
// DesignReview before Builder; every unit of work ends in Completed or
// parks in Blocked awaiting recovery.
type Role string

// Role constants, in pipeline order.
const (
	RoleIdle          Role = "idle"
	RolePlanner       Role = "planner"
	RoleDesigner      Role = "designer"
	RoleDesignReview  Role = "design_review"
	RoleBuilder       Role = "builder"
	RoleCodeReview    Role = "code_review"
	RoleTester        Role = "tester"
	RoleTestReview    Role = "test_review"
	RoleSecurityAudit Role = "security_audit"
	RoleFinalReview   Role = "final_review"
	RoleCompleted     Role = "completed"
	RoleBlocked       Role = "blocked"
)

// AllRoles returns the closed role set in pipeline order.
func AllRoles() []Role {
	return []Role{
		RoleIdle, RolePlanner, RoleDesigner, RoleDesignReview,
		RoleBuilder, RoleCodeReview, RoleTester, RoleTestReview,
		RoleSecurityAudit, RoleFinalReview, RoleCompleted, RoleBlocked,
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// Terminal reports whether r ends the pipeline. Blocked is not terminal:
// it waits for external recovery.
func (r Role) Terminal() bool {
	return r == RoleCompleted
}

// ReviewGate reports whether entering r requires a populated, valid
// handoff context (the review and audit roles).
func (r Role) ReviewGate() bool {
	switch r {
	case RoleDesignReview, RoleCodeReview, RoleTestReview, RoleSecurityAudit, RoleFinalReview:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
