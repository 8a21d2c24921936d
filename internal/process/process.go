package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ChunkHandler receives stdout data in production order. The slice is owned by the handler.
type ChunkHandler func(chunk []byte)

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, gstreamer, etc.)
type LogParser func(line string) (level, msg string)

// ErrAlreadyStarted is returned when Start is called twice on the same Process.
var ErrAlreadyStarted = errors.New("process already started")

const chunkSize = 32 * 1024

// Process is a single run of a subprocess. It is not restartable; create a new one per spawn.
type Process struct {
	id              string
	args            []string
	logger          *slog.Logger
	outputLogger    *slog.Logger // logger for stderr lines (nil = use logger)
	logParser       LogParser    // parses stderr for log level (nil = info)
	onChunk         ChunkHandler
	gracefulTimeout time.Duration // SIGINT to SIGKILL
	killTimeout     time.Duration // SIGKILL to giving up

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
}

// NewProcess creates a process for args. Nothing runs until Start.
func NewProcess(id string, args []string, logger *slog.Logger) *Process {
	return &Process{
		id:              id,
		args:            args,
		logger:          logger,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		done:            make(chan struct{}),
	}
}

// SetLogParser sets the logger and parser applied to stderr lines.
func (p *Process) SetLogParser(logger *slog.Logger, parser LogParser) {
	p.outputLogger = logger
	p.logParser = parser
}

// SetChunkHandler sets the stdout consumer. Without one, stdout is discarded.
func (p *Process) SetChunkHandler(h ChunkHandler) {
	p.onChunk = h
}

// SetTimeouts overrides the graceful-stop and kill timeouts.
func (p *Process) SetTimeouts(graceful, kill time.Duration) {
	p.gracefulTimeout = graceful
	p.killTimeout = kill
}

// Args returns the argv the process runs.
func (p *Process) Args() []string {
	return p.args
}

// Start launches the subprocess without waiting for it.
func (p *Process) Start() error {
	if len(p.args) == 0 {
		return errors.New("empty command")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(p.args[0], p.args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.args[0], err)
	}
	p.cmd = cmd

	p.logger.Info("Process started", "id", p.id, "pid", cmd.Process.Pid, "binary", p.args[0])

	var output sync.WaitGroup
	output.Add(2)
	go func() {
		defer output.Done()
		p.streamChunks(stdout)
	}()
	go func() {
		defer output.Done()
		p.streamLog(stderr)
	}()

	// pipes must be drained before Wait closes them
	go func() {
		output.Wait()
		code := exitCodeFromError(cmd.Wait())
		p.mu.Lock()
		p.exitCode = code
		p.mu.Unlock()
		close(p.done)
	}()

	return nil
}

// Done is closed once the subprocess has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode is valid after Done is closed. Signal deaths report 128+signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// PID returns the subprocess pid, or 0 before Start.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Stop sends SIGINT to the process group, escalates to SIGKILL after the graceful
// timeout, and blocks until the process is gone. Returns the exit code.
func (p *Process) Stop() int {
	pid := p.PID()
	if pid == 0 {
		return 0
	}

	select {
	case <-p.done:
		return p.ExitCode()
	default:
	}

	p.logger.Info("Sending SIGINT to process", "id", p.id, "pid", pid)
	p.signalGroup(pid, syscall.SIGINT)

	select {
	case <-p.done:
		return p.ExitCode()
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
	p.signalGroup(pid, syscall.SIGKILL)

	select {
	case <-p.done:
		return p.ExitCode()
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "id", p.id, "pid", pid)
		return 128 + int(syscall.SIGKILL)
	}
}

// Run starts the process and blocks until it exits or ctx is cancelled.
func (p *Process) Run(ctx context.Context) int {
	if err := p.Start(); err != nil {
		p.logger.Error("Failed to start process", "id", p.id, "error", err)
		return 1
	}

	select {
	case <-ctx.Done():
		p.logger.Info("Context cancelled, shutting down process", "id", p.id)
		return p.Stop()
	case <-p.done:
		code := p.ExitCode()
		p.logger.Info("Process exited", "id", p.id, "exit_code", code)
		return code
	}
}

func (p *Process) signalGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Warn("Failed to signal process group", "pid", pid, "signal", sig.String(), "error", err)
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil, 128+signal for signal deaths, the exit status otherwise, 1 for non-exit errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return exitErr.ExitCode()
}

// streamChunks forwards raw stdout reads, each in a fresh slice.
func (p *Process) streamChunks(r io.Reader) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && p.onChunk != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.onChunk(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Warn("Error reading output", "id", p.id, "source", "stdout", "error", err)
			}
			return
		}
	}
}

// streamLog logs stderr lines at the level the parser reports.
func (p *Process) streamLog(r io.Reader) {
	logger := p.outputLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		level, msg := "info", scanner.Text()
		if p.logParser != nil {
			level, msg = p.logParser(msg)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "id", p.id, "source", "stderr", "error", err)
	}
}

// ParseCommand splits a command line into arguments.
// Single and double quotes group words; a backslash escapes the next rune.
func ParseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inArg := false
	quote := rune(0)

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			inArg = true
		case quote == 0 && (r == ' ' || r == '\t' || r == '\n'):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			inArg = true
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, errors.New("unclosed quote in command")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
