package camera

import (
	"errors"
	"fmt"
	"net"
)

// DeviceError is a non-2xx response from the camera.
type DeviceError struct {
	Op     string
	Status int
	Body   string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: device returned status %d", e.Op, e.Status)
}

// TransportError means the camera could not be reached (connection, DNS, timeout).
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the underlying failure was a timeout.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}
