package streaming

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/metrics"
	"github.com/smazurov/ptzrelay/internal/process"
)

// Transcoder is one running transcoder subprocess.
type Transcoder interface {
	PID() int
	Done() <-chan struct{}
	ExitCode() int
	Stop() int
}

// Spawner starts a transcoder that writes its output to onChunk.
type Spawner interface {
	Spawn(onChunk process.ChunkHandler) (Transcoder, error)
}

// SpawnFunc adapts a function to Spawner.
type SpawnFunc func(onChunk process.ChunkHandler) (Transcoder, error)

func (f SpawnFunc) Spawn(onChunk process.ChunkHandler) (Transcoder, error) {
	return f(onChunk)
}

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SupervisorOptions configures the lifecycle delays.
type SupervisorOptions struct {
	GraceDelay   time.Duration // keep the transcoder alive this long after the last subscriber leaves
	RestartDelay time.Duration // fixed backoff before restarting after a crash
	Events       EventPublisher
	Logger       *slog.Logger
}

// Supervisor owns the single transcoder subprocess and starts, stops and
// restarts it according to subscriber demand. All state is guarded by mu;
// spawning and stopping happen outside it.
type Supervisor struct {
	spawner Spawner
	onChunk process.ChunkHandler
	grace   time.Duration
	backoff time.Duration
	events  EventPublisher
	logger  *slog.Logger

	mu           sync.Mutex
	state        process.State
	subscribers  int
	proc         Transcoder
	gen          uint64 // bumped whenever the current spawn is abandoned
	graceTimer   *time.Timer
	graceSeq     uint64
	restartTimer *time.Timer
	restartSeq   uint64
	closed       bool
	restarts     int
	startedAt    time.Time
	lastExit     *int

	wg sync.WaitGroup
}

// NewSupervisor creates a stopped supervisor. onChunk receives transcoder output.
func NewSupervisor(spawner Spawner, onChunk process.ChunkHandler, opts SupervisorOptions) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.SetStreamState(string(process.StateStopped))
	return &Supervisor{
		spawner: spawner,
		onChunk: onChunk,
		grace:   opts.GraceDelay,
		backoff: opts.RestartDelay,
		events:  opts.Events,
		logger:  logger,
		state:   process.StateStopped,
	}
}

// Acquire records a new subscriber, cancelling a pending idle stop and
// starting the transcoder if it is stopped.
func (s *Supervisor) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSupervisorClosed
	}
	s.subscribers++
	metrics.SetStreamSubscribers(s.subscribers)

	if s.cancelGraceLocked() {
		s.logger.Debug("Grace stop cancelled", "subscribers", s.subscribers)
	}
	s.startLocked()
	return nil
}

// Release records a departed subscriber. The last departure arms the grace timer.
func (s *Supervisor) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers == 0 {
		return
	}
	s.subscribers--
	metrics.SetStreamSubscribers(s.subscribers)
	if s.subscribers > 0 || s.closed {
		return
	}

	switch {
	case s.state == process.StateRunning:
		s.armGraceLocked()
	case s.restartTimer != nil:
		s.logger.Info("Pending restart cancelled, no subscribers left")
		s.cancelRestartLocked()
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() process.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status is a snapshot of the supervisor.
type Status struct {
	process.Info
	Subscribers    int
	GracePending   bool
	RestartPending bool
}

// Status returns a consistent snapshot of the supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Info: process.Info{
			ID:           "transcoder",
			State:        s.state,
			RestartCount: s.restarts,
		},
		Subscribers:    s.subscribers,
		GracePending:   s.graceTimer != nil,
		RestartPending: s.restartTimer != nil,
	}
	if s.proc != nil {
		st.PID = s.proc.PID()
		st.StartedAt = s.startedAt
	}
	if s.lastExit != nil {
		code := *s.lastExit
		st.LastExitCode = &code
	}
	return st
}

// Shutdown cancels both timers and stops the transcoder, returning once it is gone.
// Later Acquire calls fail with ErrSupervisorClosed.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	s.cancelGraceLocked()
	s.cancelRestartLocked()
	s.gen++

	proc := s.proc
	s.proc = nil
	switch {
	case proc != nil:
		s.setStateLocked(process.StateStopping)
	case s.state == process.StateStarting:
		// the spawn goroutine sees the new generation and stops what it started
		s.setStateLocked(process.StateStopped)
	}
	s.mu.Unlock()

	if proc != nil {
		s.logger.Info("Stopping transcoder for shutdown", "pid", proc.PID())
		code := proc.Stop()

		s.mu.Lock()
		s.lastExit = &code
		s.setStateLocked(process.StateStopped)
		s.mu.Unlock()
	}

	s.wg.Wait()
	s.logger.Info("Stream supervisor stopped")
}

// startLocked moves Stopped to Starting and spawns in the background.
// It is a no-op while starting, running, stopping or waiting to restart.
func (s *Supervisor) startLocked() {
	if s.closed || s.state != process.StateStopped || s.restartTimer != nil || s.subscribers == 0 {
		return
	}

	s.gen++
	gen := s.gen
	s.setStateLocked(process.StateStarting)

	s.wg.Add(1)
	go s.spawn(gen)
}

func (s *Supervisor) spawn(gen uint64) {
	defer s.wg.Done()

	proc, err := s.spawner.Spawn(s.onChunk)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if proc != nil {
			proc.Stop()
		}
		return
	}

	if err != nil {
		s.logger.Error("Failed to start transcoder", "error", err)
		s.setStateLocked(process.StateStopped)
		s.scheduleRestartLocked(-1)
		s.mu.Unlock()
		return
	}

	s.proc = proc
	s.startedAt = time.Now()
	s.setStateLocked(process.StateRunning)
	s.logger.Info("Transcoder running", "pid", proc.PID(), "subscribers", s.subscribers)

	// everyone left while we were starting
	if s.subscribers == 0 {
		s.armGraceLocked()
	}

	s.wg.Add(1)
	go s.watch(proc, gen)
	s.mu.Unlock()
}

// watch handles exits the supervisor did not ask for.
func (s *Supervisor) watch(proc Transcoder, gen uint64) {
	defer s.wg.Done()
	<-proc.Done()
	code := proc.ExitCode()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.proc != proc {
		return
	}

	s.proc = nil
	s.lastExit = &code
	s.cancelGraceLocked()
	s.setStateLocked(process.StateStopped)
	s.logger.Warn("Transcoder exited unexpectedly", "exit_code", code, "subscribers", s.subscribers)
	s.scheduleRestartLocked(code)
}

// scheduleRestartLocked arms the backoff timer if anyone is still watching.
// exitCode is -1 when the spawn itself failed.
func (s *Supervisor) scheduleRestartLocked(exitCode int) {
	restarting := s.subscribers > 0 && !s.closed
	if s.events != nil {
		ev := events.TranscoderCrashedEvent{
			ExitCode:   exitCode,
			Restarting: restarting,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		if restarting {
			ev.RestartIn = s.backoff.String()
		}
		s.events.Publish(ev)
	}
	if !restarting {
		return
	}

	s.restartSeq++
	seq := s.restartSeq
	s.restartTimer = time.AfterFunc(s.backoff, func() { s.restartExpired(seq) })
	s.logger.Info("Transcoder restart scheduled", "exit_code", exitCode, "delay", s.backoff)
}

func (s *Supervisor) restartExpired(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.restartSeq || s.restartTimer == nil {
		return
	}
	s.restartTimer = nil

	if s.closed || s.subscribers == 0 || s.state != process.StateStopped {
		return
	}
	s.restarts++
	metrics.IncStreamRestarts()
	s.logger.Info("Restarting transcoder", "attempt", s.restarts, "subscribers", s.subscribers)
	s.startLocked()
}

func (s *Supervisor) armGraceLocked() {
	if s.graceTimer != nil {
		return
	}
	s.graceSeq++
	seq := s.graceSeq
	s.graceTimer = time.AfterFunc(s.grace, func() { s.graceExpired(seq) })
	s.logger.Debug("Grace stop armed", "delay", s.grace)
}

func (s *Supervisor) cancelGraceLocked() bool {
	if s.graceTimer == nil {
		return false
	}
	s.graceTimer.Stop()
	s.graceTimer = nil
	s.graceSeq++
	return true
}

func (s *Supervisor) cancelRestartLocked() {
	if s.restartTimer == nil {
		return
	}
	s.restartTimer.Stop()
	s.restartTimer = nil
	s.restartSeq++
}

func (s *Supervisor) graceExpired(seq uint64) {
	s.mu.Lock()
	if seq != s.graceSeq || s.graceTimer == nil {
		s.mu.Unlock()
		return
	}
	s.graceTimer = nil

	if s.closed || s.subscribers > 0 || s.state != process.StateRunning || s.proc == nil {
		s.mu.Unlock()
		return
	}

	proc := s.proc
	s.proc = nil
	s.gen++
	s.setStateLocked(process.StateStopping)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.logger.Info("No subscribers after grace period, stopping transcoder", "pid", proc.PID())
	code := proc.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExit = &code
	if s.state == process.StateStopping {
		s.setStateLocked(process.StateStopped)
	}
	// someone arrived while we were stopping
	s.startLocked()
}

func (s *Supervisor) setStateLocked(to process.State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	metrics.SetStreamState(string(to))

	var pid int
	if s.proc != nil {
		pid = s.proc.PID()
	}
	s.logger.Debug("Stream state changed", "from", from, "to", to, "pid", pid)

	if s.events != nil {
		s.events.Publish(events.StreamStateChangedEvent{
			From:      string(from),
			To:        string(to),
			PID:       pid,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
