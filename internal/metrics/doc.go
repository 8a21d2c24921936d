// Package metrics holds the relay's Prometheus collectors.
//
// Everything is registered with promauto on the default registry and
// served by exporters.HTTPHandler. A small in-process snapshot mirrors
// the stream counters so the SSE exporter can publish them without
// scraping Prometheus.
package metrics
