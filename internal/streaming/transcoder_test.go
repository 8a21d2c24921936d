package streaming

import (
	"bytes"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/ptzrelay/internal/ffmpeg"
)

func TestCommandSpawnerStreamsStdout(t *testing.T) {
	spawner, err := NewCommandSpawner(`sh -c "printf 'abc'; printf 'def'"`, testLogger())
	if err != nil {
		t.Fatalf("NewCommandSpawner() error = %v", err)
	}

	var mu sync.Mutex
	var buf bytes.Buffer
	proc, err := spawner.Spawn(func(chunk []byte) {
		mu.Lock()
		buf.Write(chunk)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	select {
	case <-proc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for transcoder exit")
	}

	mu.Lock()
	defer mu.Unlock()
	if buf.String() != "abcdef" {
		t.Errorf("output = %q", buf.String())
	}
	if proc.ExitCode() != 0 {
		t.Errorf("exit code = %d", proc.ExitCode())
	}
}

func TestCommandSpawnerRejectsEmpty(t *testing.T) {
	if _, err := NewCommandSpawner("   ", testLogger()); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestFFmpegSpawnerArgs(t *testing.T) {
	params := ffmpeg.DefaultParams()
	params.InputURL = "rtsp://cam/Streaming/Channels/101"

	spawner, err := NewFFmpegSpawner(params, false, "", testLogger())
	if err != nil {
		t.Fatalf("NewFFmpegSpawner() error = %v", err)
	}
	args := spawner.Args()
	if args[0] != "ffmpeg" || args[len(args)-1] != "-" {
		t.Errorf("unexpected args %v", args)
	}
	if !slices.Contains(args, "mjpeg") || slices.Contains(args, "-progress") {
		t.Errorf("unexpected args %v", args)
	}

	params.InputURL = ""
	if _, err := NewFFmpegSpawner(params, false, "", testLogger()); err == nil {
		t.Error("expected error without input URL")
	}
}

func TestSupervisorWithRealProcess(t *testing.T) {
	spawner, err := NewCommandSpawner(`sh -c "trap 'exit 0' INT TERM; while :; do printf x; sleep 0.05; done"`, testLogger())
	if err != nil {
		t.Fatalf("NewCommandSpawner() error = %v", err)
	}

	b := NewBroadcaster(testLogger())
	s := NewSupervisor(spawner, b.Broadcast, SupervisorOptions{
		GraceDelay:   time.Second,
		RestartDelay: time.Second,
		Logger:       testLogger(),
	})
	r := NewRegistry(b, s, nil, testLogger())

	sub := &recordingSubscriber{}
	if _, err := r.Register(sub); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	waitFor(t, "chunks", func() bool { return len(sub.received()) > 2 })

	s.Shutdown()
	if st := s.Status(); st.PID != 0 || st.LastExitCode == nil {
		t.Errorf("unexpected status after shutdown %+v", st)
	}
}
