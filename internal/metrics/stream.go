package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ptzrelay"

var streamStates = []string{"stopped", "starting", "running", "stopping"}

var (
	streamState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "state",
		Help:      "Transcoder lifecycle state, 1 for the current state",
	}, []string{"state"})

	streamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "subscribers",
		Help:      "Connected stream subscribers",
	})

	streamRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "restarts_total",
		Help:      "Transcoder restarts after unexpected exit",
	})

	streamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "bytes_total",
		Help:      "Bytes read from the transcoder",
	})

	streamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "chunks_total",
		Help:      "Output chunks broadcast to subscribers",
	})

	streamEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "evictions_total",
		Help:      "Subscribers removed after a failed delivery",
	})

	snapshotMu sync.RWMutex
	snapshot   StreamSnapshot
)

// StreamSnapshot mirrors the stream counters for in-process readers.
type StreamSnapshot struct {
	State       string
	Subscribers int
	Restarts    uint64
	Bytes       uint64
	Chunks      uint64
	Evictions   uint64
}

// SetStreamState marks state as current and clears the others.
func SetStreamState(state string) {
	for _, s := range streamStates {
		v := 0.0
		if s == state {
			v = 1
		}
		streamState.WithLabelValues(s).Set(v)
	}
	update(func(s *StreamSnapshot) { s.State = state })
}

func SetStreamSubscribers(n int) {
	streamSubscribers.Set(float64(n))
	update(func(s *StreamSnapshot) { s.Subscribers = n })
}

func IncStreamRestarts() {
	streamRestarts.Inc()
	update(func(s *StreamSnapshot) { s.Restarts++ })
}

// AddStreamChunk records one broadcast chunk of n bytes.
func AddStreamChunk(n int) {
	streamChunks.Inc()
	streamBytes.Add(float64(n))
	update(func(s *StreamSnapshot) {
		s.Chunks++
		s.Bytes += uint64(n)
	})
}

func IncStreamEvictions() {
	streamEvictions.Inc()
	update(func(s *StreamSnapshot) { s.Evictions++ })
}

// GetStreamSnapshot returns a copy of the current counters.
func GetStreamSnapshot() StreamSnapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

func update(fn func(*StreamSnapshot)) {
	snapshotMu.Lock()
	fn(&snapshot)
	snapshotMu.Unlock()
}
