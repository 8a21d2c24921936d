// Package exporters exposes relay metrics over Prometheus HTTP and the event bus.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus handler for every promauto-registered metric.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
