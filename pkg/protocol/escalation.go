package protocol

import "fmt"

// EscalationType classifies a structured escalation message.
type EscalationType string

// Escalation type constants for [RELAY] messages.
const (
	EscTestLoop     EscalationType = "TEST_LOOP"     // repeated test-gate rejections
	EscSecurityLoop EscalationType = "SECURITY_LOOP" // repeated security rejections
	EscBlocked      EscalationType = "BLOCKED"       // intervention denied, pipeline parked
	EscAutoResolve  EscalationType = "AUTO_RESOLVE"  // design review force-passed
	EscStatus       EscalationType = "STATUS"        // informational
)

// FormatEscalation produces a structured escalation message in the form:
//
//	[RELAY] <TYPE>: <context-id> — <summary>. <details>.
//
// If details is empty the trailing details clause is omitted.
func FormatEscalation(typ EscalationType, contextID, summary, details string) string {
	if details != "" {
		return fmt.Sprintf("[RELAY] %s: %s — %s. %s.", typ, contextID, summary, details)
	}
	return fmt.Sprintf("[RELAY] %s: %s — %s.", typ, contextID, summary)
}
