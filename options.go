package main

import (
	"errors"

	"github.com/smazurov/ptzrelay/internal/config"
	"github.com/smazurov/ptzrelay/internal/ffmpeg"
	"github.com/smazurov/ptzrelay/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	APIAddr    string `help:"Control API listen address" short:"p" default:":3001" toml:"server.api_addr" env:"SERVER_API_ADDR"`
	StreamAddr string `help:"Stream relay websocket listen address" default:":8080" toml:"server.stream_addr" env:"SERVER_STREAM_ADDR"`
	CORSOrigin string `help:"Browser origin allowed to call the API and relay" default:"http://localhost:5173" toml:"server.cors_origin" env:"CORS_ORIGIN"`

	// Camera settings
	CameraHost      string `help:"Camera address (host or host:port)" default:"192.168.1.100" toml:"camera.host" env:"CAMERA_IP"`
	CameraUsername  string `help:"Camera username" default:"admin" toml:"camera.username" env:"CAMERA_USERNAME"`
	CameraPassword  string `help:"Camera password" default:"password123" toml:"camera.password" env:"CAMERA_PASSWORD"`
	CameraBasePath  string `help:"ISAPI base path" default:"/ISAPI" toml:"camera.base_path" env:"ISAPI_BASE_PATH"`
	CameraMediaPath string `help:"MJPEG preview path for /api/stream" default:"/Streaming/channels/101/httppreview" toml:"camera.media_path" env:"CAMERA_MEDIA_PATH"`
	CameraRTSPPort  int    `help:"Camera RTSP port" default:"554" toml:"camera.rtsp_port" env:"CAMERA_RTSP_PORT"`
	CameraRTSPPath  string `help:"Camera RTSP path" default:"/ISAPI/Streaming/channels/101" toml:"camera.rtsp_path" env:"CAMERA_RTSP_PATH"`

	// Stream relay settings
	StreamGraceDelay   string `help:"Keep the transcoder running this long after the last viewer leaves" default:"5s" toml:"stream.grace_delay" env:"STREAM_GRACE_DELAY"`
	StreamRestartDelay string `help:"Delay before restarting a crashed transcoder" default:"3s" toml:"stream.restart_delay" env:"STREAM_RESTART_DELAY"`
	StreamQueueSize    int    `help:"Chunks buffered per viewer before it is dropped" default:"64" toml:"stream.queue_size" env:"STREAM_QUEUE_SIZE"`
	StreamWriteTimeout string `help:"Per-message websocket write deadline" default:"10s" toml:"stream.write_timeout" env:"STREAM_WRITE_TIMEOUT"`

	// Transcoder settings
	TranscoderBinary     string `help:"ffmpeg executable" default:"ffmpeg" toml:"transcoder.binary" env:"TRANSCODER_BINARY"`
	TranscoderTransport  string `help:"RTSP transport (tcp, udp)" default:"tcp" toml:"transcoder.rtsp_transport" env:"TRANSCODER_RTSP_TRANSPORT"`
	TranscoderFPS        int    `help:"Output frame rate" default:"15" toml:"transcoder.fps" env:"TRANSCODER_FPS"`
	TranscoderResolution string `help:"Output size" default:"640x480" toml:"transcoder.resolution" env:"TRANSCODER_RESOLUTION"`
	TranscoderQuality    int    `help:"MJPEG quality, 2 (best) to 31" default:"3" toml:"transcoder.quality" env:"TRANSCODER_QUALITY"`
	TranscoderLogLevel   string `help:"ffmpeg log level" default:"warning" toml:"transcoder.log_level" env:"TRANSCODER_LOG_LEVEL"`
	TranscoderOptions    string `help:"Comma separated ffmpeg input options (see /api/options)" default:"" toml:"transcoder.options" env:"TRANSCODER_OPTIONS"`
	TranscoderCommand    string `help:"Full transcoder command, replaces the built ffmpeg command" default:"" toml:"transcoder.command" env:"TRANSCODER_COMMAND"`
	TranscoderProgress   bool   `help:"Collect ffmpeg progress over a unix socket" default:"true" toml:"transcoder.progress" env:"TRANSCODER_PROGRESS"`
	TranscoderSocketDir  string `help:"Directory for the progress socket" default:"" toml:"transcoder.socket_dir" env:"TRANSCODER_SOCKET_DIR"`

	// Metrics settings
	MetricsEnabled bool `help:"Expose /metrics and publish stream stats events" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// NATS settings
	NATSURL      string `help:"NATS server to mirror events to and take PTZ commands from (empty disables)" default:"" toml:"nats.url" env:"NATS_URL"`
	NATSEmbedded bool   `help:"Run an embedded NATS server and connect the bridge to it" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NATSPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingPTZ        string `help:"PTZ command logging level" default:"info" toml:"logging.ptz" env:"LOGGING_PTZ"`
	LoggingCamera     string `help:"Camera client logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingStreaming  string `help:"Stream relay logging level" default:"info" toml:"logging.streaming" env:"LOGGING_STREAMING"`
	LoggingSupervisor string `help:"Transcoder supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingFFmpeg     string `help:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingNATS       string `help:"NATS bridge logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"api":        o.LoggingAPI,
			"http":       o.LoggingAPI,
			"ptz":        o.LoggingPTZ,
			"camera":     o.LoggingCamera,
			"streaming":  o.LoggingStreaming,
			"supervisor": o.LoggingSupervisor,
			"transcoder": o.LoggingSupervisor,
			"progress":   o.LoggingSupervisor,
			"ffmpeg":     o.LoggingFFmpeg,
			"nats":       o.LoggingNATS,
		},
	}
}

// relay converts the flat options into validated runtime settings.
func (o *Options) relay() (config.Relay, error) {
	grace, graceErr := config.ParseDuration("stream grace delay", o.StreamGraceDelay)
	restart, restartErr := config.ParseDuration("stream restart delay", o.StreamRestartDelay)
	writeTimeout, writeErr := config.ParseDuration("stream write timeout", o.StreamWriteTimeout)
	if err := errors.Join(graceErr, restartErr, writeErr); err != nil {
		return config.Relay{}, err
	}

	params := ffmpeg.DefaultParams()
	params.Binary = o.TranscoderBinary
	params.RTSPTransport = o.TranscoderTransport
	params.FPS = o.TranscoderFPS
	params.Resolution = o.TranscoderResolution
	params.Quality = o.TranscoderQuality
	params.LogLevel = o.TranscoderLogLevel

	r := config.Relay{
		CameraHost:        o.CameraHost,
		CameraUsername:    o.CameraUsername,
		CameraPassword:    o.CameraPassword,
		BasePath:          o.CameraBasePath,
		MediaPath:         o.CameraMediaPath,
		RTSPPort:          o.CameraRTSPPort,
		RTSPPath:          o.CameraRTSPPath,
		APIAddr:           o.APIAddr,
		StreamAddr:        o.StreamAddr,
		AllowedOrigin:     o.CORSOrigin,
		GraceDelay:        grace,
		RestartDelay:      restart,
		Transcoder:        params,
		TranscoderCommand: o.TranscoderCommand,
		TranscoderOptions: o.TranscoderOptions,
		Progress:          o.TranscoderProgress,
		ProgressDir:       o.TranscoderSocketDir,
		SubscriberQueue:   o.StreamQueueSize,
		WriteTimeout:      writeTimeout,
	}
	if err := r.Validate(); err != nil {
		return config.Relay{}, err
	}
	return r, nil
}
