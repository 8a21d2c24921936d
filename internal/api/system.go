package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ptzrelay/internal/api/models"
	"github.com/smazurov/ptzrelay/internal/ffmpeg"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/version"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Message:  "PTZ Control API",
				Status:   "running",
				CameraIP: s.options.CameraIP,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-transcoder-options",
		Method:      http.MethodGet,
		Path:        "/api/options",
		Summary:     "Transcoder Options",
		Description: "List the ffmpeg input options the relay understands and which are enabled",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.OptionsResponse, error) {
		enabled := make([]string, 0, len(s.options.TranscoderOptions))
		for _, opt := range s.options.TranscoderOptions {
			enabled = append(enabled, string(opt))
		}
		return &models.OptionsResponse{
			Body: models.OptionsData{
				Options: ffmpeg.AllOptions,
				Enabled: enabled,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logging/{module}",
		Summary:     "Set Log Level",
		Description: "Change one module's log level without restarting",
		Tags:        []string{"system"},
		Errors:      []int{400},
	}, func(_ context.Context, input *models.LogLevelRequest) (*models.LogLevelResponse, error) {
		level := strings.ToLower(strings.TrimSpace(input.Body.Level))
		if !logging.SetModuleLevel(input.Module, level) {
			return nil, huma.Error400BadRequest("invalid log level " + input.Body.Level)
		}
		s.logger.Info("Log level changed", "target_module", input.Module, "level", level)

		resp := &models.LogLevelResponse{}
		resp.Body.Module = input.Module
		resp.Body.Level = level
		return resp, nil
	})
}
