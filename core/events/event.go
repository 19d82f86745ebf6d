package events

// Event describes a module event that can be forwarded to external
// observers.
type Event interface {
	EventType() string
}

// Emitter receives events produced by module engines. Emission is a side
// channel: implementations must not influence the outcome of the operation
// that produced the event.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
