package streaming

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/metrics"
)

// Registry tracks subscribers and keeps the supervisor's demand count in step
// with the broadcaster's subscriber set.
type Registry struct {
	broadcaster *Broadcaster
	supervisor  *Supervisor
	events      EventPublisher
	logger      *slog.Logger
}

// NewRegistry wires a registry to its broadcaster and supervisor.
func NewRegistry(broadcaster *Broadcaster, supervisor *Supervisor, bus EventPublisher, logger *slog.Logger) *Registry {
	r := &Registry{
		broadcaster: broadcaster,
		supervisor:  supervisor,
		events:      bus,
		logger:      logger,
	}
	broadcaster.SetOnEvict(r.evicted)
	return r
}

// Register acknowledges sub, adds it to the subscriber set and returns its handle.
// The acknowledgement is queued before the subscriber can receive any chunk.
func (r *Registry) Register(sub Subscriber) (string, error) {
	if err := sub.Acknowledge(newStatusMessage(string(r.supervisor.State()))); err != nil {
		return "", err
	}
	if err := r.supervisor.Acquire(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	r.broadcaster.Add(id, sub)

	count := r.broadcaster.Len()
	r.logger.Info("Subscriber registered", "subscriber_id", id, "subscribers", count)
	r.publish(id, "joined", count)
	return id, nil
}

// Unregister removes a subscriber. Unknown or already evicted handles are ignored.
func (r *Registry) Unregister(id string) {
	if _, ok := r.broadcaster.Remove(id); !ok {
		return
	}
	r.supervisor.Release()

	count := r.broadcaster.Len()
	r.logger.Info("Subscriber unregistered", "subscriber_id", id, "subscribers", count)
	r.publish(id, "left", count)
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	return r.broadcaster.Len()
}

func (r *Registry) evicted(id string, sub Subscriber, err error) {
	sub.Close()
	r.supervisor.Release()
	metrics.IncStreamEvictions()

	count := r.broadcaster.Len()
	level := slog.LevelInfo
	if errors.Is(err, ErrSubscriberBacklogged) {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "Subscriber evicted", "subscriber_id", id, "reason", err, "subscribers", count)
	r.publish(id, "evicted", count)
}

func (r *Registry) publish(id, action string, count int) {
	if r.events == nil {
		return
	}
	r.events.Publish(events.SubscribersChangedEvent{
		SubscriberID: id,
		Action:       action,
		Count:        count,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}
