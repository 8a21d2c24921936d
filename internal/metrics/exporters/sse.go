package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes StreamStatsEvent while subscribers are connected.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	lastBytes uint64
	lastAt    time.Time
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.lastBytes = metrics.GetStreamSnapshot().Bytes
	s.lastAt = time.Now()
	s.wg.Add(1)
	go s.run()
}

// Stop stops the exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.publish(now)
		}
	}
}

func (s *SSEExporter) publish(now time.Time) {
	snap := metrics.GetStreamSnapshot()

	var rate float64
	if elapsed := now.Sub(s.lastAt).Seconds(); elapsed > 0 && snap.Bytes >= s.lastBytes {
		rate = float64(snap.Bytes-s.lastBytes) / elapsed
	}
	s.lastBytes, s.lastAt = snap.Bytes, now

	// idle relay: nothing worth streaming to dashboards
	if snap.Subscribers == 0 && rate == 0 {
		return
	}

	s.eventBus.Publish(events.StreamStatsEvent{
		State:          snap.State,
		Subscribers:    snap.Subscribers,
		BytesPerSecond: rate,
		ChunksTotal:    snap.Chunks,
		Restarts:       snap.Restarts,
		FPS:            metrics.GetTranscoderProgress().FPS,
		Timestamp:      now.UTC().Format(time.RFC3339),
	})
}
