package orchestrator

import "relay/pkg/protocol"

// transitionTable is the static set of allowed (source, target) edges.
// It is a validity check only: routing authority lives in the decision
// function (decision.go). Two deliberate escape hatches bypass it:
//
//   - Planner is reachable from almost any gate (re-planning valve),
//     special-cased in commit rather than listed here.
//   - Blocked is entered directly by the intervention path, never
//     through this table.
var transitionTable = map[protocol.Role][]protocol.Role{
	protocol.RoleIdle:    {protocol.RolePlanner},
	protocol.RolePlanner: {protocol.RoleDesigner, protocol.RoleBuilder},

	protocol.RoleDesigner: {protocol.RoleDesignReview},
	protocol.RoleDesignReview: {
		protocol.RoleBuilder,
		protocol.RoleDesigner,
		protocol.RoleCompleted, // nested unit short-circuit
	},

	protocol.RoleBuilder: {protocol.RoleCodeReview, protocol.RoleDesigner},
	protocol.RoleCodeReview: {
		protocol.RoleTester,
		protocol.RoleBuilder,
	},

	protocol.RoleTester: {
		protocol.RoleTestReview,
		protocol.RoleBuilder,
		protocol.RoleDesigner,
	},
	protocol.RoleTestReview: {
		protocol.RoleSecurityAudit,
		protocol.RoleBuilder,
	},

	protocol.RoleSecurityAudit: {protocol.RoleFinalReview, protocol.RoleBuilder},
	protocol.RoleFinalReview:   {protocol.RoleCompleted},

	// Recovery targets after an external caller unblocks the pipeline.
	protocol.RoleBlocked: {protocol.RoleCodeReview, protocol.RoleBuilder},
}

// CanTransition reports whether (from, to) is in the static edge table.
// It does not apply the Planner escape valve; callers that honor it must
// check the target separately.
func CanTransition(from, to protocol.Role) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidNextRoles returns the allowed targets for a role per the static
// table, excluding the escape hatches.
func ValidNextRoles(from protocol.Role) []protocol.Role {
	return transitionTable[from]
}
