package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/apnsconn/internal/core/service"
)

const namespace = "apnsconn"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Connection lifecycle metrics
	ConnectionUp      prometheus.Gauge
	EnableAttempts    *prometheus.CounterVec
	EnableDuration    prometheus.Histogram
	Disables          prometheus.Counter
	CredentialReloads *prometheus.CounterVec

	// Status server metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var _ service.Metrics = (*Registry)(nil)

// NewRegistry creates a registry with lifecycle metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		ConnectionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_up",
			Help:      "1 when a gateway connection is held, 0 otherwise.",
		}),
		EnableAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enable_attempts_total",
			Help:      "Enable attempts by outcome.",
		}, []string{"outcome"}),
		EnableDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enable_duration_seconds",
			Help:      "Time spent in Enable, including credential load and dial.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		Disables: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disables_total",
			Help:      "Number of times a held connection was closed by Disable.",
		}),
		CredentialReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_reloads_total",
			Help:      "Credential file change reloads by result.",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Status server requests.",
		}, []string{"path", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Status server request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ConnectionUp,
		r.EnableAttempts,
		r.EnableDuration,
		r.Disables,
		r.CredentialReloads,
		r.RequestsTotal,
		r.RequestDuration,
	)

	// Pre-create outcome series so dashboards see zeros.
	for _, outcome := range []string{
		service.OutcomeSuccess,
		service.OutcomeInvalidConfiguration,
		service.OutcomeCredentialLoad,
		service.OutcomeConnectionBuild,
	} {
		r.EnableAttempts.WithLabelValues(outcome)
	}

	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Register adds a custom collector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// ObserveEnable implements service.Metrics.
func (r *Registry) ObserveEnable(outcome string, elapsed time.Duration) {
	r.EnableAttempts.WithLabelValues(outcome).Inc()
	r.EnableDuration.Observe(elapsed.Seconds())
}

// ObserveDisable implements service.Metrics.
func (r *Registry) ObserveDisable() {
	r.Disables.Inc()
}

// SetConnected implements service.Metrics.
func (r *Registry) SetConnected(connected bool) {
	if connected {
		r.ConnectionUp.Set(1)
		return
	}
	r.ConnectionUp.Set(0)
}

// RecordCredentialReload counts a watcher-triggered reload.
// result is "success" or "failure".
func (r *Registry) RecordCredentialReload(result string) {
	r.CredentialReloads.WithLabelValues(result).Inc()
}

// RecordRequest counts one status server request.
func (r *Registry) RecordRequest(path, method, status string) {
	r.RequestsTotal.WithLabelValues(path, method, status).Inc()
}

// ObserveRequestDuration records status server latency in seconds.
func (r *Registry) ObserveRequestDuration(path, method string, seconds float64) {
	r.RequestDuration.WithLabelValues(path, method).Observe(seconds)
}
