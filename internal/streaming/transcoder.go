package streaming

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smazurov/ptzrelay/internal/ffmpeg"
	"github.com/smazurov/ptzrelay/internal/logging"
	"github.com/smazurov/ptzrelay/internal/metrics/collectors"
	"github.com/smazurov/ptzrelay/internal/process"
)

// ProcessSpawner starts the transcoder as an OS subprocess.
type ProcessSpawner struct {
	args      []string
	progress  bool
	socketDir string
	logger    *slog.Logger
	spawns    int
}

// NewFFmpegSpawner builds ffmpeg arguments from params. When progress is set
// each run reports fps and speed over a unix socket in socketDir.
func NewFFmpegSpawner(params ffmpeg.Params, progress bool, socketDir string, logger *slog.Logger) (*ProcessSpawner, error) {
	args, err := ffmpeg.BuildArgs(&params)
	if err != nil {
		return nil, err
	}
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	return &ProcessSpawner{args: args, progress: progress, socketDir: socketDir, logger: logger}, nil
}

// NewCommandSpawner runs a user supplied command line instead of the built ffmpeg one.
func NewCommandSpawner(command string, logger *slog.Logger) (*ProcessSpawner, error) {
	args, err := process.ParseCommand(command)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty transcoder command")
	}
	return &ProcessSpawner{args: args, logger: logger}, nil
}

// Args returns the base command line without the per-run progress flag.
func (s *ProcessSpawner) Args() []string {
	return append([]string(nil), s.args...)
}

// Spawn starts one subprocess run. It is only called by the supervisor, one at a time.
func (s *ProcessSpawner) Spawn(onChunk process.ChunkHandler) (Transcoder, error) {
	s.spawns++
	args := s.args

	var collector *collectors.ProgressCollector
	if s.progress {
		path := filepath.Join(s.socketDir, fmt.Sprintf("ptzrelay-progress-%d-%d.sock", os.Getpid(), s.spawns))
		collector = collectors.NewProgressCollector(path)
		if err := collector.Start(); err != nil {
			s.logger.Warn("Progress collector unavailable", "error", err)
			collector = nil
		} else {
			args = append([]string{args[0], "-progress", "unix://" + path}, args[1:]...)
		}
	}

	proc := process.NewProcess("transcoder", args, s.logger)
	proc.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
	proc.SetChunkHandler(onChunk)

	s.logger.Info("Starting transcoder", "command", ffmpeg.Redact(args))
	if err := proc.Start(); err != nil {
		if collector != nil {
			collector.Stop()
		}
		return nil, err
	}

	if collector != nil {
		go func() {
			<-proc.Done()
			collector.Stop()
		}()
	}
	return proc, nil
}
