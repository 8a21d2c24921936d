package nats

import "encoding/json"

// Subjects used by the bridge.
const (
	SubjectPrefix            = "ptzrelay"
	SubjectStreamState       = SubjectPrefix + ".stream.state"
	SubjectStreamSubscribers = SubjectPrefix + ".stream.subscribers"
	SubjectStreamCrashed     = SubjectPrefix + ".stream.crashed"
	SubjectStreamStats       = SubjectPrefix + ".stream.stats"
	SubjectPTZCommand        = SubjectPrefix + ".ptz.command"
	SubjectControlPTZ        = SubjectPrefix + ".control.ptz"
)

// Control actions.
const (
	ActionMove   = "move"
	ActionStop   = "stop"
	ActionPreset = "preset"
)

// ControlRequest is a PTZ command received on SubjectControlPTZ.
type ControlRequest struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
	Speed     *int   `json:"speed,omitempty"`
	PresetID  *int   `json:"preset_id,omitempty"`
}

// ControlReply answers a ControlRequest.
type ControlReply struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Response string `json:"response,omitempty"`
}

// UnmarshalControl deserializes a ControlRequest from JSON.
func UnmarshalControl(data []byte) (ControlRequest, error) {
	var r ControlRequest
	err := json.Unmarshal(data, &r)
	return r, err
}
