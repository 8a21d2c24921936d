package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/ptzrelay/internal/control"
	"github.com/smazurov/ptzrelay/internal/events"
)

const defaultCommandTimeout = 10 * time.Second

// ControlService is the command surface reachable over NATS.
type ControlService interface {
	Move(ctx context.Context, direction string, speed *int) (*control.MoveResult, error)
	Stop(ctx context.Context) (*control.CommandResult, error)
	GotoPreset(ctx context.Context, presetID *int) (*control.CommandResult, error)
}

// Bridge mirrors bus events to NATS and serves PTZ control requests.
type Bridge struct {
	url            string
	bus            *events.Bus
	control        ControlService
	commandTimeout time.Duration
	logger         *slog.Logger

	mu     sync.Mutex
	conn   *nats.Conn
	sub    *nats.Subscription
	unsubs []func()

	// in-flight control requests; stopping rejects new ones
	inflightMu sync.Mutex
	inflight   sync.WaitGroup
	stopping   bool
}

// NewBridge creates a bridge. control may be nil to only mirror events.
func NewBridge(url string, bus *events.Bus, ctl ControlService, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:            url,
		bus:            bus,
		control:        ctl,
		commandTimeout: defaultCommandTimeout,
		logger:         logger.With("component", "nats-bridge"),
	}
}

// Start connects, subscribes to the control subject and begins mirroring.
// Reconnects are handled by the client; events published while disconnected are dropped.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return errors.New("nats bridge already started")
	}
	b.inflightMu.Lock()
	b.stopping = false
	b.inflightMu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("ptzrelay"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect %s: %w", b.url, err)
	}

	if b.control != nil {
		sub, subErr := conn.Subscribe(SubjectControlPTZ, b.dispatchControl)
		if subErr != nil {
			conn.Close()
			return fmt.Errorf("subscribe %s: %w", SubjectControlPTZ, subErr)
		}
		b.sub = sub
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return fmt.Errorf("flush: %w", err)
	}
	b.conn = conn

	if b.bus != nil {
		b.unsubs = []func(){
			b.bus.Subscribe(func(e events.StreamStateChangedEvent) { b.publish(SubjectStreamState, e) }),
			b.bus.Subscribe(func(e events.SubscribersChangedEvent) { b.publish(SubjectStreamSubscribers, e) }),
			b.bus.Subscribe(func(e events.TranscoderCrashedEvent) { b.publish(SubjectStreamCrashed, e) }),
			b.bus.Subscribe(func(e events.StreamStatsEvent) { b.publish(SubjectStreamStats, e) }),
			b.bus.Subscribe(func(e events.PTZCommandEvent) { b.publish(SubjectPTZCommand, e) }),
		}
	}

	b.logger.Info("NATS bridge connected", "url", conn.ConnectedUrlRedacted())
	return nil
}

// Stop unsubscribes, waits for in-flight control requests to reply, then
// drains the connection so pending publishes are flushed.
func (b *Bridge) Stop() {
	b.inflightMu.Lock()
	b.stopping = true
	b.inflightMu.Unlock()

	b.mu.Lock()
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	b.mu.Unlock()

	// handlers publish events through b.mu, so wait without holding it
	b.inflight.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
		b.conn = nil
		b.logger.Info("NATS bridge stopped")
	}
}

// IsConnected reports whether the bridge currently has a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

func (b *Bridge) publish(subject string, v any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Debug("Failed to publish event", "subject", subject, "error", err)
	}
}

// dispatchControl runs each request on its own goroutine. nats.go delivers
// a subscription's messages one at a time, and a slow camera call must not
// hold up the requests behind it.
func (b *Bridge) dispatchControl(msg *nats.Msg) {
	b.inflightMu.Lock()
	if b.stopping {
		b.inflightMu.Unlock()
		return
	}
	b.inflight.Add(1)
	b.inflightMu.Unlock()

	go func() {
		defer b.inflight.Done()
		b.handleControl(msg)
	}()
}

func (b *Bridge) handleControl(msg *nats.Msg) {
	reply := b.execute(msg.Data)

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		b.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send control reply", "error", err)
	}
}

func (b *Bridge) execute(data []byte) ControlReply {
	req, err := UnmarshalControl(data)
	if err != nil {
		return ControlReply{Error: "invalid request: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.commandTimeout)
	defer cancel()

	b.logger.Debug("Control request", "action", req.Action, "direction", req.Direction)

	switch req.Action {
	case ActionMove:
		res, err := b.control.Move(ctx, req.Direction, req.Speed)
		if err != nil {
			return ControlReply{Error: err.Error()}
		}
		return ControlReply{Success: true, Message: "PTZ movement started", Response: res.DeviceBody}
	case ActionStop:
		res, err := b.control.Stop(ctx)
		if err != nil {
			return ControlReply{Error: err.Error()}
		}
		return ControlReply{Success: true, Message: "PTZ movement stopped", Response: res.DeviceBody}
	case ActionPreset:
		res, err := b.control.GotoPreset(ctx, req.PresetID)
		if err != nil {
			return ControlReply{Error: err.Error()}
		}
		return ControlReply{Success: true, Message: fmt.Sprintf("Moving to preset %d", res.PresetID), Response: res.DeviceBody}
	default:
		return ControlReply{Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}
