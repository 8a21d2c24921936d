package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/ptzrelay/internal/events"
)

// ConnectedEvent is the first message on every SSE connection.
type ConnectedEvent struct {
	Message   string `json:"message" example:"SSE connection established"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z"`
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time relay state, subscriber, crash, stats and PTZ command events",
		Tags:        []string{"events"},
	}, map[string]any{
		"connected":            ConnectedEvent{},
		"stream-state-changed": events.StreamStateChangedEvent{},
		"subscribers-changed":  events.SubscribersChangedEvent{},
		"transcoder-crashed":   events.TranscoderCrashedEvent{},
		"ptz-command":          events.PTZCommandEvent{},
		"stream-stats":         events.StreamStatsEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StreamStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SubscribersChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.TranscoderCrashedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PTZCommandEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamStatsEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(ConnectedEvent{
			Message:   "SSE connection established",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
