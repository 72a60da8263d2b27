package orchestrator

import "relay/pkg/protocol"

// ValidateForEntry checks that a handoff context is sufficient to enter
// the target role. Only review and audit roles require a populated
// context; every other role accepts any context, including nil.
//
// A validation failure aborts the commit with no state change.
func ValidateForEntry(target protocol.Role, hctx *protocol.HandoffContext) error {
	if !target.ReviewGate() {
		return nil
	}
	if hctx == nil {
		return protocol.ErrNoContext
	}

	switch target {
	case protocol.RoleDesignReview:
		if hctx.Design == nil {
			return &protocol.ValidationError{Role: target, Missing: "design output"}
		}
		if hctx.Design.SpecsRef == "" && hctx.Design.ExpectedElementCount == 0 && len(hctx.Design.CreatedComponents) == 0 {
			return &protocol.ValidationError{Role: target, Missing: "design specs or components"}
		}
	case protocol.RoleCodeReview:
		if hctx.Build == nil {
			return &protocol.ValidationError{Role: target, Missing: "build output"}
		}
	case protocol.RoleTestReview:
		if hctx.Test == nil {
			return &protocol.ValidationError{Role: target, Missing: "test outcome"}
		}
	case protocol.RoleSecurityAudit:
		if hctx.Build == nil {
			return &protocol.ValidationError{Role: target, Missing: "build output"}
		}
	case protocol.RoleFinalReview:
		if hctx.Build == nil {
			return &protocol.ValidationError{Role: target, Missing: "build output"}
		}
		if hctx.Test == nil {
			return &protocol.ValidationError{Role: target, Missing: "test outcome"}
		}
	}
	return nil
}
