package ptz

import "fmt"

// DefaultPresetID is the camera's "back to origin" preset.
const DefaultPresetID = 34

// ValidationError is returned for requests rejected before any device call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ResolvePresetID applies the default preset and rejects non-positive IDs.
func ResolvePresetID(id *int) (int, error) {
	if id == nil {
		return DefaultPresetID, nil
	}
	if *id < 1 {
		return 0, NewValidationError("presetId", fmt.Sprintf("preset id %d must be positive", *id))
	}
	return *id, nil
}
