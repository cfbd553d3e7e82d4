package hsm

// Event is an immutable occurrence fed into a state machine. Events are
// identified by name, carry an optional payload, and an integer priority
// used by priority-ordered queues (higher value dequeues first).
type Event struct {
	name     string
	priority int
	payload  any
}

// EventOption customizes event construction.
type EventOption func(*Event)

// WithPriority sets the event priority. Default is 0.
func WithPriority(priority int) EventOption {
	return func(e *Event) {
		e.priority = priority
	}
}

// WithPayload attaches an opaque payload to the event.
func WithPayload(payload any) EventOption {
	return func(e *Event) {
		e.payload = payload
	}
}

// NewEvent constructs an event. The event must not be mutated after it
// has been enqueued.
func NewEvent(name string, opts ...EventOption) *Event {
	e := &Event{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Name returns the event identifier.
func (e *Event) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Priority returns the event priority.
func (e *Event) Priority() int {
	if e == nil {
		return 0
	}
	return e.priority
}

// Payload returns the payload attached at construction, or nil.
func (e *Event) Payload() any {
	if e == nil {
		return nil
	}
	return e.payload
}
