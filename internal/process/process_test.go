package process

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcess(t *testing.T, command string) *Process {
	t.Helper()
	args, err := ParseCommand(command)
	if err != nil {
		t.Fatalf("ParseCommand(%q) error = %v", command, err)
	}
	p := NewProcess("test", args, testLogger())
	p.SetTimeouts(100*time.Millisecond, 100*time.Millisecond)
	return p
}

func waitDone(t *testing.T, p *Process, timeout time.Duration) int {
	t.Helper()
	select {
	case <-p.Done():
		return p.ExitCode()
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return -1
	}
}

func TestGracefulStop(t *testing.T) {
	p := newTestProcess(t, `sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`)
	p.SetTimeouts(500*time.Millisecond, 100*time.Millisecond)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if code := p.Stop(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess(t, `sh -c "trap '' INT; sleep 10"`)
	p.SetTimeouts(50*time.Millisecond, 500*time.Millisecond)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	if code := p.Stop(); code != 137 {
		t.Errorf("expected exit code 137, got %d", code)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stop took too long: %v", elapsed)
	}
}

func TestExitCode(t *testing.T) {
	p := newTestProcess(t, "sh -c 'exit 42'")
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if code := waitDone(t, p, time.Second); code != 42 {
		t.Errorf("expected exit code 42, got %d", code)
	}
}

func TestStopAfterExit(t *testing.T) {
	p := newTestProcess(t, "true")
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, p, time.Second)

	if code := p.Stop(); code != 0 {
		t.Errorf("Stop() after exit = %d, want 0", code)
	}
}

func TestStopBeforeStart(t *testing.T) {
	p := newTestProcess(t, "sleep 10")
	if code := p.Stop(); code != 0 {
		t.Errorf("Stop() before start = %d, want 0", code)
	}
}

func TestStartTwice(t *testing.T) {
	p := newTestProcess(t, "sleep 10")
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	if err := p.Start(); err != ErrAlreadyStarted {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartFailures(t *testing.T) {
	if err := NewProcess("empty", nil, testLogger()).Start(); err == nil {
		t.Error("expected error for empty command")
	}
	if err := NewProcess("missing", []string{"/nonexistent/command"}, testLogger()).Start(); err == nil {
		t.Error("expected error for nonexistent binary")
	}
}

func TestChunksPreserveOrder(t *testing.T) {
	var mu sync.Mutex
	var got bytes.Buffer

	p := newTestProcess(t, `sh -c "printf one; printf two; printf three"`)
	p.SetChunkHandler(func(chunk []byte) {
		mu.Lock()
		got.Write(chunk)
		mu.Unlock()
	})
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, p, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if got.String() != "onetwothree" {
		t.Errorf("stdout = %q, want %q", got.String(), "onetwothree")
	}
}

func TestStderrGoesThroughParser(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	p := newTestProcess(t, `sh -c "echo '[error] boom' 1>&2; echo plain 1>&2"`)
	p.SetLogParser(testLogger(), func(line string) (string, string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
		return "info", line
	})
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, p, time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "[error] boom" {
		t.Errorf("parsed lines = %v", lines)
	}
}

func TestRunContextCancellation(t *testing.T) {
	p := newTestProcess(t, "sleep 10")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan int, 1)
	go func() { done <- p.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("shutdown took too long: %v", elapsed)
	}
}

func TestRunReturnsExitCode(t *testing.T) {
	p := newTestProcess(t, "sh -c 'exit 3'")
	if code := p.Run(context.Background()); code != 3 {
		t.Errorf("Run() = %d, want 3", code)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`ffmpeg -i input.mp4`, []string{"ffmpeg", "-i", "input.mp4"}},
		{`echo hello\ world`, []string{"echo", "hello world"}},
		{`sh -c "trap '' INT; sleep 1"`, []string{"sh", "-c", "trap '' INT; sleep 1"}},
		{`printf ""`, []string{"printf", ""}},
		{"  a\tb  ", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.input)
		if err != nil {
			t.Errorf("ParseCommand(%q) error = %v", tt.input, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseCommand(%q) = %q, want %q", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseCommand(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}

	if _, err := ParseCommand(`echo "unclosed`); err == nil {
		t.Error("expected error for unclosed quote")
	}
}

func TestExitCodeFromError(t *testing.T) {
	if got := exitCodeFromError(nil); got != 0 {
		t.Errorf("exitCodeFromError(nil) = %d", got)
	}
	if got := exitCodeFromError(io.EOF); got != 1 {
		t.Errorf("exitCodeFromError(non-exit) = %d, want 1", got)
	}
}
