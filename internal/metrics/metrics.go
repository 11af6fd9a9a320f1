// Package metrics exposes Prometheus counters for invocations and attachments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the ingestor's counters on their own registry
type Metrics struct {
	Registry *prometheus.Registry

	Invocations        *prometheus.CounterVec
	AttachmentsParsed  *prometheus.CounterVec
	AttachmentsSkipped *prometheus.CounterVec
	OutputsWritten     *prometheus.CounterVec
}

// New registers the counters on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "invocations_total",
			Help:      "Invocations handled, by response status code.",
		}, []string{"status"}),
		AttachmentsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "attachments_parsed_total",
			Help:      "Attachments parsed into a normalized table, by brand.",
		}, []string{"brand"}),
		AttachmentsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "attachments_skipped_total",
			Help:      "Attachments that produced no output, by reason.",
		}, []string{"reason"}),
		OutputsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "outputs_written_total",
			Help:      "Parsed outputs written to storage, by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(m.Invocations, m.AttachmentsParsed, m.AttachmentsSkipped, m.OutputsWritten)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
