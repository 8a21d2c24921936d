package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStreamSnapshot(t *testing.T) {
	before := GetStreamSnapshot()

	SetStreamState("running")
	SetStreamSubscribers(3)
	AddStreamChunk(100)
	AddStreamChunk(50)
	IncStreamRestarts()
	IncStreamEvictions()

	got := GetStreamSnapshot()
	if got.State != "running" || got.Subscribers != 3 {
		t.Errorf("snapshot = %+v", got)
	}
	if got.Bytes-before.Bytes != 150 || got.Chunks-before.Chunks != 2 {
		t.Errorf("bytes/chunks delta = %d/%d, want 150/2", got.Bytes-before.Bytes, got.Chunks-before.Chunks)
	}
	if got.Restarts-before.Restarts != 1 || got.Evictions-before.Evictions != 1 {
		t.Errorf("restarts/evictions delta = %d/%d", got.Restarts-before.Restarts, got.Evictions-before.Evictions)
	}
}

func TestSetStreamStateIsExclusive(t *testing.T) {
	SetStreamState("stopping")
	for _, s := range streamStates {
		want := 0.0
		if s == "stopping" {
			want = 1
		}
		if got := testutil.ToFloat64(streamState.WithLabelValues(s)); got != want {
			t.Errorf("state %s = %v, want %v", s, got, want)
		}
	}
}

func TestObservePTZCommand(t *testing.T) {
	before := testutil.ToFloat64(ptzCommands.WithLabelValues("stop", "device_error"))
	ObservePTZCommand("stop", "device_error", 5*time.Millisecond)
	if got := testutil.ToFloat64(ptzCommands.WithLabelValues("stop", "device_error")); got != before+1 {
		t.Errorf("commands_total = %v, want %v", got, before+1)
	}
}

func TestConcurrentChunks(t *testing.T) {
	before := GetStreamSnapshot().Chunks
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				AddStreamChunk(1)
			}
		}()
	}
	wg.Wait()

	if got := GetStreamSnapshot().Chunks - before; got != 1000 {
		t.Errorf("chunks delta = %d, want 1000", got)
	}
}
