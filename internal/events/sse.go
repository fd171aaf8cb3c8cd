package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
// Events are dropped when ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeJob is SubscribeToChannel restricted to one job's events.
func SubscribeJob[T JobEvent](bus *Bus, jobID string, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		if e.GetJobID() != jobID {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
}
