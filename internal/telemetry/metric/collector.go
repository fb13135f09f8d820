package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CredentialSource reports the validity window of the credential
// currently in use. ok is false when no credential is loaded.
type CredentialSource func() (notBefore, notAfter time.Time, ok bool)

// CredentialCollector exports the client certificate validity window so
// alerts can fire before the gateway starts rejecting it.
type CredentialCollector struct {
	source    CredentialSource
	notBefore *prometheus.Desc
	notAfter  *prometheus.Desc
}

// NewCollector creates a credential collector reading from source.
func NewCollector(source CredentialSource) *CredentialCollector {
	return &CredentialCollector{
		source: source,
		notBefore: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "credential", "not_before_timestamp_seconds"),
			"Start of the client certificate validity window.",
			nil, nil,
		),
		notAfter: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "credential", "not_after_timestamp_seconds"),
			"End of the client certificate validity window.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *CredentialCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.notBefore
	ch <- c.notAfter
}

// Collect implements prometheus.Collector.
func (c *CredentialCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	notBefore, notAfter, ok := c.source()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.notBefore, prometheus.GaugeValue, float64(notBefore.Unix()))
	ch <- prometheus.MustNewConstMetric(c.notAfter, prometheus.GaugeValue, float64(notAfter.Unix()))
}
