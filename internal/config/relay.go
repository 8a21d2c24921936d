package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/ffmpeg"
)

// Relay is the validated runtime configuration. It is built once at startup
// and passed by value; nothing mutates it afterwards.
type Relay struct {
	CameraHost     string // host or host:port of the HTTP control endpoint
	CameraUsername string
	CameraPassword string
	BasePath       string // ISAPI prefix
	MediaPath      string // MJPEG preview path for the HTTP passthrough
	RTSPPort       int
	RTSPPath       string

	APIAddr       string
	StreamAddr    string
	AllowedOrigin string

	GraceDelay   time.Duration
	RestartDelay time.Duration

	Transcoder        ffmpeg.Params
	TranscoderCommand string // replaces the built ffmpeg command when set
	TranscoderOptions string // comma separated ffmpeg option keys
	Progress          bool
	ProgressDir       string

	SubscriberQueue int
	WriteTimeout    time.Duration
}

// ParseDuration parses a duration option, naming the option in the error.
func ParseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return d, nil
}

// Validate checks the settings and fills the transcoder input URL and options.
func (r *Relay) Validate() error {
	var errs []error

	if strings.TrimSpace(r.CameraHost) == "" {
		errs = append(errs, errors.New("camera host is required"))
	}
	if !strings.HasPrefix(r.BasePath, "/") {
		errs = append(errs, fmt.Errorf("base path %q must start with /", r.BasePath))
	}
	if !strings.HasPrefix(r.MediaPath, "/") {
		errs = append(errs, fmt.Errorf("media path %q must start with /", r.MediaPath))
	}
	if r.RTSPPort < 1 || r.RTSPPort > 65535 {
		errs = append(errs, fmt.Errorf("rtsp port %d out of range", r.RTSPPort))
	}
	for name, addr := range map[string]string{"api address": r.APIAddr, "stream address": r.StreamAddr} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, addr, err))
		}
	}
	if r.GraceDelay < 0 {
		errs = append(errs, fmt.Errorf("grace delay %s must not be negative", r.GraceDelay))
	}
	if r.RestartDelay <= 0 {
		errs = append(errs, fmt.Errorf("restart delay %s must be positive", r.RestartDelay))
	}
	if r.SubscriberQueue < 1 {
		errs = append(errs, fmt.Errorf("subscriber queue %d must be positive", r.SubscriberQueue))
	}

	opts, err := ffmpeg.ParseOptions(r.TranscoderOptions)
	if err != nil {
		errs = append(errs, err)
	}
	r.Transcoder.Options = opts

	if r.TranscoderCommand == "" && strings.TrimSpace(r.CameraHost) != "" {
		r.Transcoder.InputURL = ffmpeg.RTSPURL(r.CameraHost, r.RTSPPort, r.CameraUsername, r.CameraPassword, r.RTSPPath)
		if _, err := ffmpeg.BuildArgs(&r.Transcoder); err != nil {
			errs = append(errs, fmt.Errorf("transcoder: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Camera returns the device client settings.
func (r Relay) Camera() camera.Config {
	return camera.Config{
		Host:      r.CameraHost,
		Username:  r.CameraUsername,
		Password:  r.CameraPassword,
		BasePath:  r.BasePath,
		MediaPath: r.MediaPath,
	}
}

// CameraIP returns the camera host without scheme or port, for status reports.
func (r Relay) CameraIP() string {
	host := strings.TrimPrefix(strings.TrimPrefix(r.CameraHost, "http://"), "https://")
	host = strings.TrimSuffix(host, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
