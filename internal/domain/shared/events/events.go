package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates that emit domain events; the
// application layer drains it into the outbox after a successful save.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

// Drain returns the pending events and clears the recorder.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.PendingEvents()
	r.ClearEvents()
	return out
}
