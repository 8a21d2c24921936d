// Package control validates camera commands and forwards each one to the device.
package control

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/metrics"
	"github.com/smazurov/ptzrelay/internal/ptz"
)

// DeviceClient is the subset of camera.Client the service calls.
type DeviceClient interface {
	MoveContinuous(ctx context.Context, v ptz.MotionVector) (*camera.Result, error)
	Stop(ctx context.Context) (*camera.Result, error)
	GotoPreset(ctx context.Context, id int) (*camera.Result, error)
	ListPresets(ctx context.Context) (*camera.Result, error)
	OpenMediaStream(ctx context.Context) (*camera.MediaStream, error)
}

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// MoveResult is returned by a successful Move.
type MoveResult struct {
	Direction  ptz.Direction
	Pan        int
	Tilt       int
	DeviceBody string
}

// CommandResult is returned by Stop and GotoPreset.
type CommandResult struct {
	PresetID   int
	DeviceBody string
}

// PresetList carries the raw device body plus whatever could be parsed from it.
type PresetList struct {
	DeviceBody string
	Presets    []camera.Preset
}

// Service issues exactly one device call per command. It holds no state
// between calls: no caching, queuing or batching.
type Service struct {
	device DeviceClient
	events EventPublisher
	logger *slog.Logger
}

// NewService creates a service. bus may be nil.
func NewService(device DeviceClient, bus EventPublisher) *Service {
	return &Service{
		device: device,
		events: bus,
		logger: logging.GetLogger("ptz"),
	}
}

// Move starts continuous motion. A nil speed uses ptz.DefaultSpeed.
// Invalid input returns *ptz.ValidationError without contacting the camera.
func (s *Service) Move(ctx context.Context, direction string, speed *int) (*MoveResult, error) {
	vector, err := ptz.Translate(direction, speed)
	if err != nil {
		s.finish("move", events.PTZCommandEvent{Direction: direction}, time.Time{}, err)
		return nil, err
	}

	start := time.Now()
	res, err := s.device.MoveContinuous(ctx, vector)
	s.finish("move", events.PTZCommandEvent{Direction: direction, Pan: vector.Pan, Tilt: vector.Tilt}, start, err)
	if err != nil {
		return nil, err
	}

	return &MoveResult{
		Direction:  ptz.Direction(direction),
		Pan:        vector.Pan,
		Tilt:       vector.Tilt,
		DeviceBody: res.Body,
	}, nil
}

// Stop halts all motion by sending the zero vector.
func (s *Service) Stop(ctx context.Context) (*CommandResult, error) {
	start := time.Now()
	res, err := s.device.Stop(ctx)
	s.finish("stop", events.PTZCommandEvent{}, start, err)
	if err != nil {
		return nil, err
	}
	return &CommandResult{DeviceBody: res.Body}, nil
}

// GotoPreset moves to a stored preset. A nil id means ptz.DefaultPresetID.
func (s *Service) GotoPreset(ctx context.Context, presetID *int) (*CommandResult, error) {
	id, err := ptz.ResolvePresetID(presetID)
	if err != nil {
		s.finish("goto-preset", events.PTZCommandEvent{}, time.Time{}, err)
		return nil, err
	}

	start := time.Now()
	res, err := s.device.GotoPreset(ctx, id)
	s.finish("goto-preset", events.PTZCommandEvent{PresetID: id}, start, err)
	if err != nil {
		return nil, err
	}
	return &CommandResult{PresetID: id, DeviceBody: res.Body}, nil
}

// ListPresets returns the device's preset list verbatim plus the parsed entries.
func (s *Service) ListPresets(ctx context.Context) (*PresetList, error) {
	start := time.Now()
	res, err := s.device.ListPresets(ctx)
	s.finish("list-presets", events.PTZCommandEvent{}, start, err)
	if err != nil {
		return nil, err
	}
	return &PresetList{DeviceBody: res.Body, Presets: camera.ParsePresets(res.Body)}, nil
}

// OpenStream opens the camera's own MJPEG preview for byte passthrough.
// The caller must close the returned body.
func (s *Service) OpenStream(ctx context.Context) (*camera.MediaStream, error) {
	start := time.Now()
	stream, err := s.device.OpenMediaStream(ctx)
	metrics.ObservePTZCommand("open-stream", resultLabel(err), time.Since(start))
	if err != nil {
		s.logger.Warn("Failed to open camera stream", "error", err)
		return nil, err
	}
	return stream, nil
}

// finish records metrics, logs and publishes the outcome of one command.
// A zero start means the command was rejected before any device call.
func (s *Service) finish(command string, ev events.PTZCommandEvent, start time.Time, err error) {
	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}
	result := resultLabel(err)
	metrics.ObservePTZCommand(command, result, elapsed)

	if err != nil {
		level := slog.LevelWarn
		if result == "rejected" {
			level = slog.LevelDebug
		}
		s.logger.Log(context.Background(), level, "PTZ command failed",
			"command", command, "result", result, "error", err)
	} else {
		s.logger.Debug("PTZ command sent", "command", command, "pan", ev.Pan, "tilt", ev.Tilt, "elapsed", elapsed)
	}

	if s.events == nil {
		return
	}
	ev.Command = command
	ev.Success = err == nil
	if err != nil {
		ev.Error = err.Error()
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	s.events.Publish(ev)
}

func resultLabel(err error) string {
	var validationErr *ptz.ValidationError
	var deviceErr *camera.DeviceError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validationErr):
		return "rejected"
	case errors.As(err, &deviceErr):
		return "device_error"
	default:
		return "transport_error"
	}
}
