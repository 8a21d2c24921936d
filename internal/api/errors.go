package api

import (
	"errors"
	"net/http"

	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/ptz"
)

// CommandError is the failure body of every control route: {error, details, status}.
// Status carries the camera's HTTP status when the camera answered.
type CommandError struct {
	Message    string `json:"error" example:"Failed to control PTZ"`
	Details    string `json:"details,omitempty" example:"<ResponseStatus>...</ResponseStatus>"`
	Status     int    `json:"status,omitempty" example:"401" doc:"Device HTTP status"`
	httpStatus int
}

func (e *CommandError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *CommandError) GetStatus() int {
	return e.httpStatus
}

// mapCommandError maps control errors to HTTP errors. failure names the
// operation for device errors, e.g. "Failed to stop PTZ".
func mapCommandError(failure string, err error) error {
	var validationErr *ptz.ValidationError
	var deviceErr *camera.DeviceError
	var transportErr *camera.TransportError

	switch {
	case errors.As(err, &validationErr):
		return &CommandError{
			Message:    "Invalid " + validationErr.Field,
			Details:    validationErr.Message,
			httpStatus: http.StatusBadRequest,
		}
	case errors.As(err, &deviceErr):
		return &CommandError{
			Message:    failure,
			Details:    deviceErr.Body,
			Status:     deviceErr.Status,
			httpStatus: http.StatusBadGateway,
		}
	case errors.As(err, &transportErr):
		status := http.StatusBadGateway
		if transportErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		return &CommandError{
			Message:    "Camera unreachable",
			Details:    transportErr.Cause.Error(),
			httpStatus: status,
		}
	default:
		return &CommandError{
			Message:    "Internal server error",
			Details:    err.Error(),
			httpStatus: http.StatusInternalServerError,
		}
	}
}
