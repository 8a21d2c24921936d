package streaming

import (
	"log/slog"
	"sync"

	"github.com/smazurov/ptzrelay/internal/metrics"
)

// Broadcaster fans out transcoder output to the current subscriber set.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string]Subscriber
	logger  *slog.Logger
	onEvict func(id string, sub Subscriber, err error)
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]Subscriber),
		logger: logger,
	}
}

// SetOnEvict sets the callback invoked after a subscriber is removed for a failed delivery.
func (b *Broadcaster) SetOnEvict(fn func(id string, sub Subscriber, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEvict = fn
}

// Add inserts a subscriber. It receives chunks broadcast after this call returns.
func (b *Broadcaster) Add(id string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = sub
}

// Remove deletes a subscriber. The bool reports whether it was present.
func (b *Broadcaster) Remove(id string) (Subscriber, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	return sub, ok
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Broadcast delivers chunk to every subscriber present when it is called.
// Delivery happens outside the lock; a failing subscriber is evicted without
// affecting the others.
func (b *Broadcaster) Broadcast(chunk []byte) {
	type target struct {
		id  string
		sub Subscriber
	}

	b.mu.RLock()
	targets := make([]target, 0, len(b.subs))
	for id, sub := range b.subs {
		targets = append(targets, target{id, sub})
	}
	onEvict := b.onEvict
	b.mu.RUnlock()

	metrics.AddStreamChunk(len(chunk))

	for _, t := range targets {
		err := t.sub.Deliver(chunk)
		if err == nil {
			continue
		}
		if _, removed := b.Remove(t.id); !removed {
			continue
		}
		b.logger.Debug("Evicting subscriber", "subscriber_id", t.id, "error", err)
		if onEvict != nil {
			onEvict(t.id, t.sub, err)
		}
	}
}
