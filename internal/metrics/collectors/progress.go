// Package collectors gathers transcoder metrics from ffmpeg's -progress output.
package collectors

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/metrics"
)

// ProgressCollector accepts ffmpeg -progress unix://<socket> connections.
type ProgressCollector struct {
	logger     *slog.Logger
	socketPath string
	listener   net.Listener
	wg         sync.WaitGroup
	stopOnce   sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewProgressCollector creates a collector for the given socket path.
func NewProgressCollector(socketPath string) *ProgressCollector {
	return &ProgressCollector{
		logger:     logging.GetLogger("progress"),
		socketPath: socketPath,
		conns:      make(map[net.Conn]struct{}),
	}
}

// SocketPath returns the listening socket.
func (c *ProgressCollector) SocketPath() string {
	return c.socketPath
}

// Start listens on the socket. It must succeed before ffmpeg is spawned.
func (c *ProgressCollector) Start() error {
	if err := os.Remove(c.socketPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("Failed to clean up old socket file", "error", err)
	}

	listener, err := net.Listen("unix", c.socketPath)
	if err != nil {
		return err
	}
	c.listener = listener

	c.wg.Add(1)
	go c.accept()
	return nil
}

// Stop closes the socket, waits for readers and zeroes the gauges.
func (c *ProgressCollector) Stop() {
	c.stopOnce.Do(func() {
		if c.listener != nil {
			c.listener.Close()
		}
		c.mu.Lock()
		for conn := range c.conns {
			conn.Close()
		}
		c.mu.Unlock()
		c.wg.Wait()
		os.Remove(c.socketPath)
		metrics.ResetTranscoderProgress()
	})
}

func (c *ProgressCollector) accept() {
	defer c.wg.Done()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("Error accepting connection", "error", err)
			}
			return
		}
		c.mu.Lock()
		c.conns[conn] = struct{}{}
		c.mu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.read(conn)
			c.mu.Lock()
			delete(c.conns, conn)
			c.mu.Unlock()
		}()
	}
}

// read parses key=value blocks, each terminated by a progress= line.
func (c *ProgressCollector) read(conn net.Conn) {
	defer conn.Close()

	block := make(map[string]string)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		block[strings.TrimSpace(key)] = strings.TrimSpace(value)

		if key == "progress" {
			metrics.SetTranscoderProgress(parseProgress(block))
			block = make(map[string]string)
		}
	}
}

func parseProgress(data map[string]string) metrics.TranscoderProgress {
	var p metrics.TranscoderProgress
	if fps, err := strconv.ParseFloat(data["fps"], 64); err == nil {
		p.FPS = fps
	}
	if dropped, err := strconv.ParseFloat(data["drop_frames"], 64); err == nil {
		p.DroppedFrames = dropped
	}
	speed := strings.TrimSpace(strings.TrimSuffix(data["speed"], "x"))
	if v, err := strconv.ParseFloat(speed, 64); err == nil {
		p.Speed = v
	}
	return p
}
