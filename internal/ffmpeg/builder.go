package ffmpeg

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// BuildArgs returns argv for a transcoder that writes MJPEG to stdout.
func BuildArgs(p *Params) ([]string, error) {
	if p.InputURL == "" {
		return nil, errors.New("input URL is required")
	}
	if err := ValidateOptions(p.Options); err != nil {
		return nil, err
	}

	binary := p.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{binary, "-hide_banner", "-nostdin"}

	if p.LogLevel != "" {
		// level+ prefixes each stderr line with [level] for ParseLogLevel
		args = append(args, "-loglevel", "level+"+p.LogLevel)
	}

	args = append(args, inputArgs(p.Options)...)

	if p.RTSPTransport != "" {
		args = append(args, "-rtsp_transport", p.RTSPTransport)
	}
	args = append(args, "-i", p.InputURL, "-f", "mjpeg")

	if p.Quality > 0 {
		args = append(args, "-q:v", strconv.Itoa(p.Quality))
	}
	if p.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(p.FPS))
	}
	if p.Resolution != "" {
		args = append(args, "-s", p.Resolution)
	}

	return append(args, "-"), nil
}

// RTSPURL builds the camera's RTSP source URL with escaped credentials.
// Any port on host belongs to the HTTP control endpoint and is replaced by rtspPort.
func RTSPURL(host string, rtspPort int, username, password, path string) string {
	host = strings.TrimPrefix(strings.TrimPrefix(host, "http://"), "https://")
	host = strings.TrimSuffix(host, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	u := url.URL{
		Scheme: "rtsp",
		Host:   net.JoinHostPort(host, strconv.Itoa(rtspPort)),
		Path:   path,
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	return u.String()
}

// Redact masks the password in any rtsp URL found in args, for logging.
func Redact(args []string) string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if !strings.HasPrefix(arg, "rtsp://") {
			continue
		}
		if u, err := url.Parse(arg); err == nil && u.User != nil {
			out[i] = u.Redacted()
		}
	}
	return strings.Join(out, " ")
}
