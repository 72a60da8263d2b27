package orchestrator

import "relay/pkg/protocol"

// EventType classifies orchestrator events.
type EventType string

// Event type constants.
const (
	EventTransition   EventType = "transition"    // a committed role change
	EventBlocked      EventType = "blocked"       // intervention denied, pipeline parked
	EventAutoResolved EventType = "auto_resolved" // design review force-passed after max retries
	EventWarning      EventType = "warning"       // best-effort side effect failed
	EventReport       EventType = "report"        // terminal report written
)

// Event is the message delivered synchronously to every listener after a
// committed transition or escalation.
type Event struct {
	Type    EventType
	From    protocol.Role
	To      protocol.Role
	Context *protocol.HandoffContext
	Message string
}

// Listener receives orchestrator events. Listeners run synchronously on
// the orchestrator goroutine; a panicking listener is recovered and
// skipped so it never aborts emission to the remaining listeners.
type Listener func(Event)

// emit delivers ev to every listener in subscription order.
func (o *Orchestrator) emit(ev Event) {
	for _, l := range o.listeners {
		deliver(l, ev)
	}
}

func deliver(l Listener, ev Event) {
	defer func() {
		// A faulty listener must not take down the pipeline.
		_ = recover()
	}()
	l(ev)
}
