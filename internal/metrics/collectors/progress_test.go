package collectors

import (
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/smazurov/ptzrelay/internal/metrics"
)

func skipOnMacOS(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("Unix socket path too long on macOS")
	}
}

func TestProgressCollector(t *testing.T) {
	skipOnMacOS(t)
	socketPath := filepath.Join(t.TempDir(), "progress.sock")

	collector := NewProgressCollector(socketPath)
	if err := collector.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer collector.Stop()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("failed to connect to socket: %v", err)
	}

	progress := "frame=120\nfps=14.98\ndrop_frames=3\nspeed=0.99x\nprogress=continue\n"
	if _, err := conn.Write([]byte(progress)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if metrics.GetTranscoderProgress().FPS != 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := metrics.GetTranscoderProgress()
	want := metrics.TranscoderProgress{FPS: 14.98, DroppedFrames: 3, Speed: 0.99}
	if got != want {
		t.Errorf("progress = %+v, want %+v", got, want)
	}
}

func TestProgressCollectorStopResets(t *testing.T) {
	skipOnMacOS(t)
	collector := NewProgressCollector(filepath.Join(t.TempDir(), "progress.sock"))
	if err := collector.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	metrics.SetTranscoderProgress(metrics.TranscoderProgress{FPS: 15})
	collector.Stop()
	collector.Stop()

	if got := metrics.GetTranscoderProgress(); got.FPS != 0 {
		t.Errorf("FPS after stop = %v, want 0", got.FPS)
	}
}

func TestParseProgress(t *testing.T) {
	got := parseProgress(map[string]string{"fps": "N/A", "speed": " 1.5x", "drop_frames": "0"})
	if got.FPS != 0 || got.Speed != 1.5 {
		t.Errorf("parseProgress() = %+v", got)
	}
}
