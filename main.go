package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/ptzrelay/cmd"
	"github.com/smazurov/ptzrelay/internal/api"
	"github.com/smazurov/ptzrelay/internal/camera"
	"github.com/smazurov/ptzrelay/internal/config"
	"github.com/smazurov/ptzrelay/internal/control"
	"github.com/smazurov/ptzrelay/internal/events"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/metrics/exporters"
	natsbridge "github.com/smazurov/ptzrelay/internal/nats"
	"github.com/smazurov/ptzrelay/internal/streaming"
)

const shutdownTimeout = 5 * time.Second

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		relay, err := opts.relay()
		if err != nil {
			logger.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}

		eventBus := events.New()

		// Camera control
		cameraClient := camera.NewClient(relay.Camera())
		controlService := control.NewService(cameraClient, eventBus)

		// Transcoder relay
		spawner, err := newSpawner(relay)
		if err != nil {
			logger.Error("Invalid transcoder configuration", "error", err)
			os.Exit(1)
		}

		streamingLogger := logging.GetLogger("streaming")
		broadcaster := streaming.NewBroadcaster(streamingLogger)
		supervisor := streaming.NewSupervisor(spawner, broadcaster.Broadcast, streaming.SupervisorOptions{
			GraceDelay:   relay.GraceDelay,
			RestartDelay: relay.RestartDelay,
			Events:       eventBus,
			Logger:       logging.GetLogger("supervisor"),
		})
		registry := streaming.NewRegistry(broadcaster, supervisor, eventBus, streamingLogger)
		relayServer := streaming.NewServer(registry, streaming.ServerOptions{
			AllowedOrigin: relay.AllowedOrigin,
			QueueSize:     relay.SubscriberQueue,
			WriteTimeout:  relay.WriteTimeout,
		}, streamingLogger)

		apiOpts := &api.Options{
			Control:           controlService,
			Stream:            supervisor,
			EventBus:          eventBus,
			AllowedOrigin:     relay.AllowedOrigin,
			CameraIP:          relay.CameraIP(),
			TranscoderOptions: relay.Transcoder.Options,
		}

		var statsExporter *exporters.SSEExporter
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
			statsExporter = exporters.NewSSEExporter(eventBus)
		}

		server := api.NewServer(apiOpts)

		natsLogger := logging.GetLogger("nats")
		var natsServer *natsbridge.Server
		if opts.NATSEmbedded {
			natsServer = natsbridge.NewServer(natsbridge.ServerOptions{Port: opts.NATSPort, Logger: natsLogger})
		}
		var bridge *natsbridge.Bridge

		hooks.OnStart(func() {
			// relay must be listening before the UI loads
			if startErr := relayServer.Start(relay.StreamAddr); startErr != nil {
				logger.Error("Failed to start stream relay", "error", startErr)
				os.Exit(1)
			}

			if statsExporter != nil {
				statsExporter.Start(context.Background())
			}

			natsURL := opts.NATSURL
			if natsServer != nil {
				if startErr := natsServer.Start(); startErr != nil {
					logger.Error("Failed to start embedded NATS server", "error", startErr)
					os.Exit(1)
				}
				natsURL = natsServer.ClientURL()
			}
			if natsURL != "" {
				bridge = natsbridge.NewBridge(natsURL, eventBus, controlService, natsLogger)
				if startErr := bridge.Start(); startErr != nil {
					// the relay works without NATS
					logger.Warn("NATS bridge unavailable", "error", startErr)
					bridge = nil
				}
			}

			logger.Info("Starting HTTP server", "addr", relay.APIAddr, "camera", relay.CameraIP())
			if startErr := server.Start(relay.APIAddr); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")

			// disconnect subscribers before the transcoder so nobody re-acquires it
			stopInStages(logger, shutdownTimeout,
				stopStage{"HTTP server", server.Stop},
				stopStage{"stream relay", relayServer.Stop},
			)

			supervisor.Shutdown()

			if statsExporter != nil {
				statsExporter.Stop()
			}
			if bridge != nil {
				bridge.Stop()
			}
			if natsServer != nil {
				natsServer.Stop()
			}
		})
	})

	cli.Root().AddCommand(cmd.CreatePTZCmd())
	cli.Root().AddCommand(cmd.CreateTranscodeCmd())

	cli.Run()
}

func newSpawner(relay config.Relay) (*streaming.ProcessSpawner, error) {
	logger := logging.GetLogger("transcoder")
	if relay.TranscoderCommand != "" {
		return streaming.NewCommandSpawner(relay.TranscoderCommand, logger)
	}
	return streaming.NewFFmpegSpawner(relay.Transcoder, relay.Progress, relay.ProgressDir, logger)
}

type stopStage struct {
	name string
	stop func(context.Context) error
}

// stopInStages runs each stage in order with its own deadline. Open
// /api/stream passthroughs hold the API until its deadline, which must not
// eat into the relay's.
func stopInStages(logger *slog.Logger, timeout time.Duration, stages ...stopStage) {
	for _, stage := range stages {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := stage.stop(ctx); err != nil {
			logger.Error("Error stopping "+stage.name, "error", err)
		}
		cancel()
	}
}
