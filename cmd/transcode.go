package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/ptzrelay/internal/config"
	"github.com/smazurov/ptzrelay/internal/ffmpeg"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/process"
	"github.com/spf13/cobra"
)

type transcodeOptions struct {
	Config     string
	CameraHost string `toml:"camera.host" env:"CAMERA_IP"`
	Username   string `toml:"camera.username" env:"CAMERA_USERNAME"`
	Password   string `toml:"camera.password" env:"CAMERA_PASSWORD"`
	RTSPPort   int    `toml:"camera.rtsp_port" env:"CAMERA_RTSP_PORT"`
	RTSPPath   string `toml:"camera.rtsp_path" env:"CAMERA_RTSP_PATH"`
	Binary     string `toml:"transcoder.binary" env:"TRANSCODER_BINARY"`
	Options    string `toml:"transcoder.options" env:"TRANSCODER_OPTIONS"`
	Command    string `toml:"transcoder.command" env:"TRANSCODER_COMMAND"`
}

// CreateTranscodeCmd creates the transcode command.
func CreateTranscodeCmd() *cobra.Command {
	opts := &transcodeOptions{}
	var output string
	var duration time.Duration
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Run the transcoder once in the foreground",
		Long: `Runs the same transcoder command the relay would spawn and writes its MJPEG output to a file. ` +
			`Stops after --duration or on Ctrl-C. Use it to check camera RTSP access and ffmpeg settings.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loggingConfig := config.LoadLoggingConfig(opts.Config)
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			return config.LoadConfig(opts, cmd)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			logger := logging.GetLogger("transcoder")

			args, err := opts.args()
			if err != nil {
				return err
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer file.Close()

			w := bufio.NewWriter(file)
			var mu sync.Mutex
			var written int64

			proc := process.NewProcess("transcode", args, logger)
			proc.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
			proc.SetChunkHandler(func(chunk []byte) {
				mu.Lock()
				defer mu.Unlock()
				n, _ := w.Write(chunk)
				written += int64(n)
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			logger.Info("Starting transcoder", "command", ffmpeg.Redact(args), "output", output)
			exitCode := proc.Run(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			logger.Info("Transcoder finished", "exit_code", exitCode, "bytes", written)

			// stopped by us: ffmpeg exits 255 on SIGINT
			if ctx.Err() == nil && exitCode != 0 {
				return fmt.Errorf("transcoder exited with code %d", exitCode)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Config, "config", "c", "config.toml", "Path to configuration file")
	flags.StringVar(&opts.CameraHost, "camera-host", "192.168.1.100", "Camera address")
	flags.StringVar(&opts.Username, "username", "admin", "Camera username")
	flags.StringVar(&opts.Password, "password", "password123", "Camera password")
	flags.IntVar(&opts.RTSPPort, "rtsp-port", 554, "Camera RTSP port")
	flags.StringVar(&opts.RTSPPath, "rtsp-path", "/ISAPI/Streaming/channels/101", "Camera RTSP path")
	flags.StringVar(&opts.Binary, "binary", "ffmpeg", "ffmpeg executable")
	flags.StringVar(&opts.Options, "options", "", "Comma separated ffmpeg input options")
	flags.StringVar(&opts.Command, "command", "", "Full transcoder command, replaces the built one")
	flags.StringVarP(&output, "output", "o", "capture.mjpeg", "Output file")
	flags.DurationVarP(&duration, "duration", "d", 10*time.Second, "Stop after this long, 0 runs until interrupted")
	flags.BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

func (o *transcodeOptions) args() ([]string, error) {
	if o.Command != "" {
		return process.ParseCommand(o.Command)
	}

	options, err := ffmpeg.ParseOptions(o.Options)
	if err != nil {
		return nil, err
	}
	params := ffmpeg.DefaultParams()
	params.Binary = o.Binary
	params.Options = options
	params.InputURL = ffmpeg.RTSPURL(o.CameraHost, o.RTSPPort, o.Username, o.Password, o.RTSPPath)
	return ffmpeg.BuildArgs(&params)
}
