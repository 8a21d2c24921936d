package events

// Event type constants for kelindar/event.
const (
	TypeStreamStateChanged uint32 = iota + 1
	TypeSubscribersChanged
	TypeTranscoderCrashed
	TypePTZCommand
	TypeStreamStats
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStateChangedEvent is published on every transcoder state transition.
type StreamStateChangedEvent struct {
	From      string `json:"from" example:"starting" doc:"Previous state"`
	To        string `json:"to" example:"running" doc:"New state"`
	PID       int    `json:"pid,omitempty" example:"4242" doc:"Transcoder pid while running"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition time"`
}

func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// SubscribersChangedEvent reports a viewer joining or leaving the stream.
type SubscribersChangedEvent struct {
	SubscriberID string `json:"subscriber_id" example:"6f1c1d5e-1b1f-4b8e-9a55-0f2d1d8f5e21" doc:"Subscriber handle"`
	Action       string `json:"action" example:"joined" doc:"joined, left or evicted"`
	Count        int    `json:"count" example:"2" doc:"Subscribers after the change"`
	Timestamp    string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event time"`
}

func (e SubscribersChangedEvent) Type() uint32 { return TypeSubscribersChanged }

// TranscoderCrashedEvent is published when the transcoder exits while it was expected to run.
type TranscoderCrashedEvent struct {
	ExitCode   int    `json:"exit_code" example:"1" doc:"Transcoder exit code"`
	Restarting bool   `json:"restarting" example:"true" doc:"Whether a restart is scheduled"`
	RestartIn  string `json:"restart_in,omitempty" example:"3s" doc:"Backoff before restart"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Crash time"`
}

func (e TranscoderCrashedEvent) Type() uint32 { return TypeTranscoderCrashed }

// PTZCommandEvent records the outcome of one camera control command.
type PTZCommandEvent struct {
	Command   string `json:"command" example:"move" doc:"move, stop, goto-preset or list-presets"`
	Direction string `json:"direction,omitempty" example:"up-left" doc:"Direction for move commands"`
	Pan       int    `json:"pan" example:"-50" doc:"Pan velocity sent"`
	Tilt      int    `json:"tilt" example:"50" doc:"Tilt velocity sent"`
	PresetID  int    `json:"preset_id,omitempty" example:"34" doc:"Preset for goto-preset"`
	Success   bool   `json:"success" example:"true" doc:"Whether the camera accepted the command"`
	Error     string `json:"error,omitempty" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Command time"`
}

func (e PTZCommandEvent) Type() uint32 { return TypePTZCommand }

// StreamStatsEvent is a periodic summary of relay throughput.
type StreamStatsEvent struct {
	State          string  `json:"state" example:"running" doc:"Transcoder state"`
	Subscribers    int     `json:"subscribers" example:"2" doc:"Connected subscribers"`
	BytesPerSecond float64 `json:"bytes_per_second" example:"412000" doc:"Relay throughput over the last interval"`
	ChunksTotal    uint64  `json:"chunks_total" example:"9120" doc:"Chunks broadcast since start"`
	Restarts       uint64  `json:"restarts" example:"0" doc:"Transcoder restarts since start"`
	FPS            float64 `json:"fps" example:"15" doc:"Transcoder output FPS"`
	Timestamp      string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Sample time"`
}

func (e StreamStatsEvent) Type() uint32 { return TypeStreamStats }
