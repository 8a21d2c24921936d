package streaming

import (
	"errors"
	"time"
)

var (
	// ErrSubscriberClosed is returned by Deliver after the subscriber's connection is gone.
	ErrSubscriberClosed = errors.New("subscriber closed")
	// ErrSubscriberBacklogged is returned by Deliver when the outbound queue is full.
	ErrSubscriberBacklogged = errors.New("subscriber backlogged")
	// ErrSupervisorClosed is returned when registering after shutdown.
	ErrSupervisorClosed = errors.New("stream supervisor closed")
)

// StatusMessage is the acknowledgement sent to every subscriber before any media.
type StatusMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
}

func newStatusMessage(state string) StatusMessage {
	return StatusMessage{
		Type:      "status",
		Message:   "Connected to stream server",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		State:     state,
	}
}

// Subscriber is one live consumer of the relayed stream.
// Deliver must not block; chunks are shared between subscribers and must not be modified.
type Subscriber interface {
	Acknowledge(msg StatusMessage) error
	Deliver(chunk []byte) error
	Close()
}
