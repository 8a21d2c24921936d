// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/ffmpeg"
	"github.com/smazurov/ptzrelay/internal/process"
	"github.com/smazurov/ptzrelay/internal/version"
)

// MoveBody is the body of a move request. Values are validated by the control service.
type MoveBody struct {
	Direction string `json:"direction,omitempty" example:"up-left" doc:"One of up, down, left, right, up-left, up-right, down-left, down-right"`
	Speed     *int   `json:"speed,omitempty" example:"50" doc:"Speed from 1 to 100, default 50"`
}

// MoveRequest starts continuous motion.
type MoveRequest struct {
	Body MoveBody
}

// MoveData is returned when the camera accepted a move.
type MoveData struct {
	Success   bool   `json:"success" example:"true"`
	Direction string `json:"direction" example:"up-left"`
	Pan       int    `json:"pan" example:"-50"`
	Tilt      int    `json:"tilt" example:"50"`
	Message   string `json:"message" example:"PTZ movement started"`
	Response  string `json:"response" doc:"Raw device response body"`
}

// MoveResponse wraps MoveData.
type MoveResponse struct {
	Body MoveData
}

// PresetBody is the optional body of a preset request.
type PresetBody struct {
	PresetID *int `json:"presetId,omitempty" example:"34" doc:"Preset to recall, default 34 (back to origin)"`
}

// PresetRequest recalls a stored preset.
type PresetRequest struct {
	Body *PresetBody `required:"false"`
}

// CommandData is returned by stop and preset.
type CommandData struct {
	Success  bool   `json:"success" example:"true"`
	PresetID int    `json:"presetId,omitempty" example:"34"`
	Message  string `json:"message" example:"PTZ movement stopped"`
	Response string `json:"response" doc:"Raw device response body"`
}

// CommandResponse wraps CommandData.
type CommandResponse struct {
	Body CommandData
}

// PresetsData lists the camera presets.
type PresetsData struct {
	Success  bool            `json:"success" example:"true"`
	Presets  []camera.Preset `json:"presets" doc:"Presets parsed from the device list, empty if unparseable"`
	Response string          `json:"response" doc:"Raw PTZPresetList XML"`
}

// PresetsResponse wraps PresetsData.
type PresetsResponse struct {
	Body PresetsData
}

// StreamStatusData reports the transcoder supervisor.
type StreamStatusData struct {
	process.Info
	Subscribers    int  `json:"subscribers" example:"2"`
	GracePending   bool `json:"grace_pending" doc:"An idle stop is scheduled"`
	RestartPending bool `json:"restart_pending" doc:"A crash restart is scheduled"`
}

// StreamStatusResponse wraps StreamStatusData.
type StreamStatusResponse struct {
	Body StreamStatusData
}

// HealthData is the health check body.
type HealthData struct {
	Message  string `json:"message" example:"PTZ Control API"`
	Status   string `json:"status" example:"running"`
	CameraIP string `json:"camera_ip" example:"192.168.1.64"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionResponse carries build metadata.
type VersionResponse struct {
	Body version.Info
}

// OptionsData lists the transcoder options that can be set in config.
type OptionsData struct {
	Options []ffmpeg.Option `json:"options"`
	Enabled []string        `json:"enabled" doc:"Options active in the running configuration"`
}

// OptionsResponse wraps OptionsData.
type OptionsResponse struct {
	Body OptionsData
}

// LogLevelRequest changes one module's log level at runtime.
type LogLevelRequest struct {
	Module string `path:"module" example:"streaming" doc:"Logger module name"`
	Body   struct {
		Level string `json:"level" example:"debug" doc:"debug, info, warn or error"`
	}
}

// LogLevelResponse confirms a level change.
type LogLevelResponse struct {
	Body struct {
		Module string `json:"module" example:"streaming"`
		Level  string `json:"level" example:"debug"`
	}
}
