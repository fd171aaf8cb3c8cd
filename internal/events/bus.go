package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(ProgressEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic, so dispatch on the concrete type
	switch e := ev.(type) {
	case JobQueuedEvent:
		event.Publish(b.dispatcher, e)
	case JobStartedEvent:
		event.Publish(b.dispatcher, e)
	case ProgressEvent:
		event.Publish(b.dispatcher, e)
	case JobFinishedEvent:
		event.Publish(b.dispatcher, e)
	case ProfilesReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e JobFinishedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(JobQueuedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProfilesReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
