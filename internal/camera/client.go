// Package camera issues ISAPI control requests to the camera over HTTP digest authentication.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/icholy/digest"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/ptz"
	"github.com/smazurov/ptzrelay/internal/version"
)

const (
	continuousPath = "/PTZCtrl/channels/1/continuous"
	presetsPath    = "/PTZCtrl/channels/1/presets"
)

// Config holds the camera connection settings.
type Config struct {
	Host      string // host or host:port
	Username  string
	Password  string
	BasePath  string // ISAPI prefix, e.g. /ISAPI
	MediaPath string // MJPEG preview path, e.g. /Streaming/channels/101/httppreview
}

// Result is a successful device response.
type Result struct {
	Status int
	Body   string
}

// MediaStream is an open continuous media response from the camera.
// The caller must close Body.
type MediaStream struct {
	ContentType string
	Body        io.ReadCloser
}

// Client talks to the camera's control endpoints.
// Each call is one logical request; the digest challenge round trip is not a retry.
type Client struct {
	baseURL    string
	mediaURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a digest-authenticated camera client.
func NewClient(cfg Config) *Client {
	return NewClientWithTransport(cfg, nil)
}

// NewClientWithTransport creates a client whose digest layer wraps the given transport.
// A nil transport uses http.DefaultTransport.
func NewClientWithTransport(cfg Config, transport http.RoundTripper) *Client {
	host := strings.TrimSuffix(cfg.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}

	return &Client{
		baseURL:  host + cfg.BasePath,
		mediaURL: host + cfg.MediaPath,
		httpClient: &http.Client{
			Transport: &digest.Transport{
				Username:  cfg.Username,
				Password:  cfg.Password,
				Transport: transport,
			},
		},
		logger: logging.GetLogger("camera"),
	}
}

// MoveContinuous starts movement at the given velocity until Stop is called.
func (c *Client) MoveContinuous(ctx context.Context, v ptz.MotionVector) (*Result, error) {
	body, err := ptzDataXML(v)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, "move", http.MethodPut, c.baseURL+continuousPath, body)
}

// Stop halts all motion. It always sends the zero vector.
func (c *Client) Stop(ctx context.Context) (*Result, error) {
	body, err := ptzDataXML(ptz.Halt)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, "stop", http.MethodPut, c.baseURL+continuousPath, body)
}

// GotoPreset moves the camera to a stored preset.
func (c *Client) GotoPreset(ctx context.Context, id int) (*Result, error) {
	url := c.baseURL + presetsPath + "/" + strconv.Itoa(id) + "/goto"
	return c.send(ctx, "goto-preset", http.MethodPut, url, nil)
}

// ListPresets fetches the preset list XML.
func (c *Client) ListPresets(ctx context.Context) (*Result, error) {
	return c.send(ctx, "list-presets", http.MethodGet, c.baseURL+presetsPath, nil)
}

// OpenMediaStream opens the camera's MJPEG preview. On success the body is left open.
func (c *Client) OpenMediaStream(ctx context.Context) (*MediaStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Media stream open failed", "url", c.mediaURL, "error", err)
		return nil, &TransportError{Op: "open-stream", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		c.logger.Warn("Media stream rejected", "status", resp.StatusCode)
		return nil, &DeviceError{Op: "open-stream", Status: resp.StatusCode, Body: string(data)}
	}

	return &MediaStream{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

// send issues one request and classifies the outcome.
func (c *Client) send(ctx context.Context, op, method, url string, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("User-Agent", version.UserAgent())

	c.logger.Debug("Sending device request", "op", op, "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Device request failed", "op", op, "error", err)
		return nil, &TransportError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Device rejected request", "op", op, "status", resp.StatusCode, "body", string(data))
		return nil, &DeviceError{Op: op, Status: resp.StatusCode, Body: string(data)}
	}

	c.logger.Debug("Device request succeeded", "op", op, "status", resp.StatusCode)
	return &Result{Status: resp.StatusCode, Body: string(data)}, nil
}

// ptzDataXML renders the ISAPI PTZData document.
func ptzDataXML(v ptz.MotionVector) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("PTZData")
	root.CreateElement("pan").SetText(strconv.Itoa(v.Pan))
	root.CreateElement("tilt").SetText(strconv.Itoa(v.Tilt))
	root.CreateElement("zoom").SetText(strconv.Itoa(v.Zoom))
	doc.Indent(2)

	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode PTZData: %w", err)
	}
	return data, nil
}
