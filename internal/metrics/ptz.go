package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ptzCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ptz",
		Name:      "commands_total",
		Help:      "Camera control commands by outcome",
	}, []string{"command", "result"})

	ptzDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ptz",
		Name:      "command_duration_seconds",
		Help:      "Round trip time of camera control requests",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"command"})
)

// ObservePTZCommand records one command. result is ok, rejected, device_error or transport_error.
func ObservePTZCommand(command, result string, elapsed time.Duration) {
	ptzCommands.WithLabelValues(command, result).Inc()
	if result != "rejected" {
		ptzDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	}
}
