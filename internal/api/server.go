package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/control"
	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/ffmpeg"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/streaming"
	"github.com/smazurov/ptzrelay/ui"
)

// ControlService is the camera command surface used by the PTZ routes.
type ControlService interface {
	Move(ctx context.Context, direction string, speed *int) (*control.MoveResult, error)
	Stop(ctx context.Context) (*control.CommandResult, error)
	GotoPreset(ctx context.Context, presetID *int) (*control.CommandResult, error)
	ListPresets(ctx context.Context) (*control.PresetList, error)
	OpenStream(ctx context.Context) (*camera.MediaStream, error)
}

// StreamStatusProvider reports the transcoder supervisor state.
type StreamStatusProvider interface {
	Status() streaming.Status
}

// Options configures the API server.
type Options struct {
	Control           ControlService
	Stream            StreamStatusProvider // optional
	EventBus          *events.Bus          // optional, enables /api/events
	AllowedOrigin     string
	CameraIP          string
	TranscoderOptions []ffmpeg.OptionType
	PrometheusHandler http.Handler // optional
}

// Server is the HTTP control API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     *slog.Logger
}

// NewServer creates the API server with Huma v2 on Go's native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if opts.AllowedOrigin != "" {
		corsConfig.AllowOrigin = opts.AllowedOrigin
	}
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("PTZ Relay API", "1.0.0")
	config.Info.Description = "Pan/tilt control and live stream relay for an ISAPI camera"
	// relative paths in OpenAPI, works behind any host
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	if pageHandler, err := ui.Handler(); err == nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			pageHandler.ServeHTTP(w, r)
		})
	}

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves the API on addr and blocks until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting PTZ API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down. Open stream passthroughs and SSE connections
// are closed when ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.registerSystemRoutes()
	s.registerPTZRoutes()
	s.registerStreamRoutes()
	if s.eventBus != nil {
		s.registerSSERoutes()
	}
}
