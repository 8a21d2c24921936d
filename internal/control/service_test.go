package control

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/ptz"
)

type call struct {
	op     string
	vector ptz.MotionVector
	preset int
}

type fakeDevice struct {
	mu    sync.Mutex
	calls []call
	body  string
	err   error
}

func (f *fakeDevice) record(c call) (*camera.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	return &camera.Result{Status: http.StatusOK, Body: f.body}, nil
}

func (f *fakeDevice) MoveContinuous(_ context.Context, v ptz.MotionVector) (*camera.Result, error) {
	return f.record(call{op: "move", vector: v})
}

func (f *fakeDevice) Stop(context.Context) (*camera.Result, error) {
	return f.record(call{op: "stop", vector: ptz.Halt})
}

func (f *fakeDevice) GotoPreset(_ context.Context, id int) (*camera.Result, error) {
	return f.record(call{op: "goto", preset: id})
}

func (f *fakeDevice) ListPresets(context.Context) (*camera.Result, error) {
	return f.record(call{op: "list"})
}

func (f *fakeDevice) OpenMediaStream(context.Context) (*camera.MediaStream, error) {
	if _, err := f.record(call{op: "stream"}); err != nil {
		return nil, err
	}
	return &camera.MediaStream{ContentType: "multipart/x-mixed-replace", Body: io.NopCloser(strings.NewReader("data"))}, nil
}

func (f *fakeDevice) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type captureBus struct {
	mu     sync.Mutex
	events []events.PTZCommandEvent
}

func (b *captureBus) Publish(ev events.Event) {
	if c, ok := ev.(events.PTZCommandEvent); ok {
		b.mu.Lock()
		b.events = append(b.events, c)
		b.mu.Unlock()
	}
}

func intPtr(v int) *int { return &v }

func TestMove(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		speed     *int
		wantPan   int
		wantTilt  int
	}{
		{"default speed", "up", nil, 0, 50},
		{"diagonal", "up-left", intPtr(40), -40, 40},
		{"max speed", "down-right", intPtr(100), 100, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{body: "<ok/>"}
			svc := NewService(dev, nil)

			res, err := svc.Move(context.Background(), tt.direction, tt.speed)
			if err != nil {
				t.Fatalf("Move() error = %v", err)
			}
			if res.Pan != tt.wantPan || res.Tilt != tt.wantTilt || string(res.Direction) != tt.direction || res.DeviceBody != "<ok/>" {
				t.Errorf("unexpected result %+v", res)
			}
			calls := dev.recorded()
			if len(calls) != 1 || calls[0].vector != (ptz.MotionVector{Pan: tt.wantPan, Tilt: tt.wantTilt}) {
				t.Errorf("device calls = %+v", calls)
			}
		})
	}
}

func TestMoveValidationMakesNoDeviceCall(t *testing.T) {
	tests := []struct {
		direction string
		speed     *int
	}{
		{"diagonal-nowhere", intPtr(50)},
		{"up", intPtr(0)},
		{"left", intPtr(101)},
	}

	for _, tt := range tests {
		dev := &fakeDevice{}
		bus := &captureBus{}
		svc := NewService(dev, bus)

		_, err := svc.Move(context.Background(), tt.direction, tt.speed)
		var vErr *ptz.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Move(%q) error = %v, want ValidationError", tt.direction, err)
		}
		if n := len(dev.recorded()); n != 0 {
			t.Errorf("Move(%q) made %d device calls", tt.direction, n)
		}
		if len(bus.events) != 1 || bus.events[0].Success {
			t.Errorf("expected one failed command event, got %+v", bus.events)
		}
	}
}

func TestStopIgnoresPreviousMove(t *testing.T) {
	dev := &fakeDevice{}
	svc := NewService(dev, nil)
	ctx := context.Background()

	if _, err := svc.Move(ctx, "right", intPtr(80)); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	calls := dev.recorded()
	if len(calls) != 2 || calls[1].op != "stop" || calls[1].vector != ptz.Halt {
		t.Errorf("device calls = %+v", calls)
	}
}

func TestGotoPreset(t *testing.T) {
	dev := &fakeDevice{}
	svc := NewService(dev, nil)
	ctx := context.Background()

	res, err := svc.GotoPreset(ctx, nil)
	if err != nil {
		t.Fatalf("GotoPreset(nil) error = %v", err)
	}
	if res.PresetID != ptz.DefaultPresetID {
		t.Errorf("PresetID = %d, want %d", res.PresetID, ptz.DefaultPresetID)
	}

	if _, err := svc.GotoPreset(ctx, intPtr(7)); err != nil {
		t.Fatalf("GotoPreset(7) error = %v", err)
	}

	if _, err := svc.GotoPreset(ctx, intPtr(0)); err == nil {
		t.Error("expected validation error for preset 0")
	}

	calls := dev.recorded()
	if len(calls) != 2 || calls[0].preset != 34 || calls[1].preset != 7 {
		t.Errorf("device calls = %+v", calls)
	}
}

func TestDeviceErrorPropagates(t *testing.T) {
	devErr := &camera.DeviceError{Op: "goto-preset", Status: http.StatusUnauthorized, Body: "Unauthorized"}
	dev := &fakeDevice{err: devErr}
	bus := &captureBus{}
	svc := NewService(dev, bus)

	_, err := svc.GotoPreset(context.Background(), nil)
	var got *camera.DeviceError
	if !errors.As(err, &got) || got.Status != http.StatusUnauthorized {
		t.Fatalf("expected DeviceError 401, got %v", err)
	}
	if len(dev.recorded()) != 1 {
		t.Error("expected exactly one device call, no retry")
	}
	if len(bus.events) != 1 || bus.events[0].Success || bus.events[0].PresetID != 34 {
		t.Errorf("unexpected events %+v", bus.events)
	}
}

func TestListPresets(t *testing.T) {
	body := `<PTZPresetList><PTZPreset><id>2</id><presetName>Door</presetName><enabled>true</enabled></PTZPreset></PTZPresetList>`
	svc := NewService(&fakeDevice{body: body}, nil)

	list, err := svc.ListPresets(context.Background())
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	if list.DeviceBody != body {
		t.Error("expected raw body passthrough")
	}
	if len(list.Presets) != 1 || list.Presets[0] != (camera.Preset{ID: 2, Name: "Door", Enabled: true}) {
		t.Errorf("Presets = %+v", list.Presets)
	}
}

func TestListPresetsUnparseableBody(t *testing.T) {
	svc := NewService(&fakeDevice{body: "not xml"}, nil)
	list, err := svc.ListPresets(context.Background())
	if err != nil {
		t.Fatalf("ListPresets() error = %v", err)
	}
	if list.DeviceBody != "not xml" || len(list.Presets) != 0 {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestOpenStream(t *testing.T) {
	svc := NewService(&fakeDevice{}, nil)
	stream, err := svc.OpenStream(context.Background())
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	defer stream.Body.Close()
	data, _ := io.ReadAll(stream.Body)
	if string(data) != "data" {
		t.Errorf("body = %q", data)
	}

	transportErr := &camera.TransportError{Op: "open-stream", Cause: errors.New("connection refused")}
	svc = NewService(&fakeDevice{err: transportErr}, nil)
	if _, err := svc.OpenStream(context.Background()); !errors.Is(err, transportErr) {
		t.Errorf("OpenStream() error = %v", err)
	}
}

func TestResultLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ptz.NewValidationError("speed", "bad"), "rejected"},
		{&camera.DeviceError{Status: 500}, "device_error"},
		{&camera.TransportError{Cause: errors.New("dial")}, "transport_error"},
	}
	for _, tt := range tests {
		if got := resultLabel(tt.err); got != tt.want {
			t.Errorf("resultLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
