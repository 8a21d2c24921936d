package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transcoderFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transcoder",
		Name:      "fps",
		Help:      "Current transcoder output FPS",
	})

	transcoderDroppedFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transcoder",
		Name:      "dropped_frames",
		Help:      "Frames dropped by the current transcoder run",
	})

	transcoderSpeed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transcoder",
		Name:      "processing_speed",
		Help:      "Transcoder processing speed multiplier",
	})
)

// TranscoderProgress is one progress report from ffmpeg.
type TranscoderProgress struct {
	FPS           float64 `json:"fps"`
	DroppedFrames float64 `json:"dropped_frames"`
	Speed         float64 `json:"speed"`
}

var lastProgress TranscoderProgress

// SetTranscoderProgress publishes a progress report.
func SetTranscoderProgress(p TranscoderProgress) {
	transcoderFPS.Set(p.FPS)
	transcoderDroppedFrames.Set(p.DroppedFrames)
	transcoderSpeed.Set(p.Speed)

	snapshotMu.Lock()
	lastProgress = p
	snapshotMu.Unlock()
}

// ResetTranscoderProgress zeroes the gauges when the transcoder exits.
func ResetTranscoderProgress() {
	SetTranscoderProgress(TranscoderProgress{})
}

func GetTranscoderProgress() TranscoderProgress {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return lastProgress
}
