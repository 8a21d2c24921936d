package streaming

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ServerOptions configures the relay endpoint.
type ServerOptions struct {
	AllowedOrigin string        // browser Origin allowed to connect; empty or "*" allows any
	QueueSize     int           // outbound chunks buffered per subscriber before eviction
	WriteTimeout  time.Duration // per-message write deadline
}

// Server accepts websocket subscribers and relays the stream to them.
type Server struct {
	registry   *Registry
	opts       ServerOptions
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	httpServer *http.Server

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a relay endpoint backed by registry.
func NewServer(registry *Registry, opts ServerOptions, logger *slog.Logger) *Server {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		registry: registry,
		opts:     opts,
		logger:   logger,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Start begins listening for subscribers on addr.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Stream relay started", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Stream relay server error", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener and every subscriber connection, then waits for handlers.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	deadline := time.Now().Add(time.Second)
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
	}

	s.wg.Wait()
	s.logger.Info("Stream relay stopped")
	return err
}

// ServeHTTP upgrades the request and serves one subscriber until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	sub := newWSSubscriber(conn, s.opts.QueueSize, s.opts.WriteTimeout)
	go sub.writeLoop()

	id, err := s.registry.Register(sub)
	if err != nil {
		s.logger.Warn("Subscriber rejected", "remote", r.RemoteAddr, "error", err)
		sub.Close()
		_ = conn.Close()
		return
	}
	s.logger.Debug("Subscriber connected", "subscriber_id", id, "remote", r.RemoteAddr)

	// clients never send media; reading only detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.registry.Unregister(id)
	sub.Close()
	_ = conn.Close()
	s.logger.Debug("Subscriber disconnected", "subscriber_id", id, "remote", r.RemoteAddr)
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.opts.AllowedOrigin == "" || s.opts.AllowedOrigin == "*" {
		return true
	}
	return origin == s.opts.AllowedOrigin
}
