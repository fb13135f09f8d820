// Package metric provides Prometheus metrics for apnsconn.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, lifecycle metrics and HTTP handler
//   - collector.go: custom collector for credential expiry
//
// Metrics include:
//
//   - Gateway connection state gauge
//   - Enable attempt counters and latency histograms
//   - Status server request counters
//   - Credential validity window
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
