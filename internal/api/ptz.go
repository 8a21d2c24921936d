package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ptzrelay/internal/api/models"
)

var commandErrors = []int{400, 502, 504}

func (s *Server) registerPTZRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ptz-move",
		Method:      http.MethodPost,
		Path:        "/api/ptz/move",
		Summary:     "Start Moving",
		Description: "Start continuous pan/tilt motion in one of eight directions until stopped",
		Tags:        []string{"ptz"},
		Errors:      commandErrors,
	}, func(ctx context.Context, input *models.MoveRequest) (*models.MoveResponse, error) {
		res, err := s.options.Control.Move(ctx, input.Body.Direction, input.Body.Speed)
		if err != nil {
			return nil, mapCommandError("Failed to control PTZ", err)
		}
		return &models.MoveResponse{
			Body: models.MoveData{
				Success:   true,
				Direction: string(res.Direction),
				Pan:       res.Pan,
				Tilt:      res.Tilt,
				Message:   "PTZ movement started",
				Response:  res.DeviceBody,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "ptz-stop",
		Method:      http.MethodPost,
		Path:        "/api/ptz/stop",
		Summary:     "Stop Moving",
		Description: "Stop all motion",
		Tags:        []string{"ptz"},
		Errors:      commandErrors,
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		res, err := s.options.Control.Stop(ctx)
		if err != nil {
			return nil, mapCommandError("Failed to stop PTZ", err)
		}
		return &models.CommandResponse{
			Body: models.CommandData{
				Success:  true,
				Message:  "PTZ movement stopped",
				Response: res.DeviceBody,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "ptz-preset",
		Method:      http.MethodPost,
		Path:        "/api/ptz/preset",
		Summary:     "Go To Preset",
		Description: "Recall a stored preset, 34 (back to origin) when no id is given",
		Tags:        []string{"ptz"},
		Errors:      commandErrors,
	}, func(ctx context.Context, input *models.PresetRequest) (*models.CommandResponse, error) {
		var presetID *int
		if input.Body != nil {
			presetID = input.Body.PresetID
		}
		res, err := s.options.Control.GotoPreset(ctx, presetID)
		if err != nil {
			return nil, mapCommandError("Failed to move to preset", err)
		}
		return &models.CommandResponse{
			Body: models.CommandData{
				Success:  true,
				PresetID: res.PresetID,
				Message:  "Moving to preset",
				Response: res.DeviceBody,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "ptz-presets",
		Method:      http.MethodGet,
		Path:        "/api/ptz/presets",
		Summary:     "List Presets",
		Description: "Return the camera's preset list as raw XML and as parsed entries",
		Tags:        []string{"ptz"},
		Errors:      commandErrors,
	}, func(ctx context.Context, _ *struct{}) (*models.PresetsResponse, error) {
		list, err := s.options.Control.ListPresets(ctx)
		if err != nil {
			return nil, mapCommandError("Failed to get presets", err)
		}
		return &models.PresetsResponse{
			Body: models.PresetsData{
				Success:  true,
				Presets:  list.Presets,
				Response: list.DeviceBody,
			},
		}, nil
	})
}
