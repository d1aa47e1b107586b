package ledger

// Event is a domain event emitted by a contract on a state transition. The
// event log is the sole notification channel to off-chain collaborators.
type Event interface {
	EventName() string
}

// EventLog is an append-only log of emitted events. Contracts append after
// their state mutations are final, so a failed call never leaves an event.
type EventLog struct {
	events []Event
}

// Emit appends an event to the log.
func (l *EventLog) Emit(ev Event) {
	l.events = append(l.events, ev)
}

// Len returns the number of events emitted so far.
func (l *EventLog) Len() int {
	return len(l.events)
}

// Since returns the events appended at or after position n, in order.
func (l *EventLog) Since(n int) []Event {
	if n < 0 {
		n = 0
	}
	if n >= len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-n)
	copy(out, l.events[n:])
	return out
}

// All returns every emitted event in order.
func (l *EventLog) All() []Event {
	return l.Since(0)
}
