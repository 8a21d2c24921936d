package process

import "time"

// State is the lifecycle state of a supervised subprocess.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Info is a point-in-time view of a supervised subprocess.
type Info struct {
	ID           string    `json:"id"`
	State        State     `json:"state"`
	PID          int       `json:"pid,omitempty"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	RestartCount int       `json:"restart_count"`
	LastExitCode *int      `json:"last_exit_code,omitempty"`
}
