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

// Publish publishes an event to all subscribers. Unknown event types are dropped.
// Usage: bus.Publish(PTZCommandEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StreamStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case SubscribersChangedEvent:
		event.Publish(b.dispatcher, e)
	case TranscoderCrashedEvent:
		event.Publish(b.dispatcher, e)
	case PTZCommandEvent:
		event.Publish(b.dispatcher, e)
	case StreamStatsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; its parameter type selects the events it receives.
// Returns an unsubscribe function, a no-op for unrecognized handler types.
// Usage: unsub := bus.Subscribe(func(e StreamStateChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StreamStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SubscribersChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TranscoderCrashedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PTZCommandEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
