// Package metrics provides Prometheus metrics export for the
// recommendation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels for pipeline latency observations.
const (
	StageEmbed   = "embed"
	StageSearch  = "search"
	StageBalance = "balance"
)

// Metrics exports recommendation pipeline metrics in Prometheus format.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	candidates    prometheus.Histogram
	finalListSize prometheus.Histogram
}

// New creates a Metrics instance. A nil registry creates a private one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shlrec_recommend_requests_total",
			Help: "Total recommendation requests by outcome.",
		}, []string{"status"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shlrec_pipeline_stage_seconds",
			Help:    "Latency of recommendation pipeline stages.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"stage"}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shlrec_retrieved_candidates",
			Help:    "Number of candidates retrieved from the vector index.",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		finalListSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shlrec_final_recommendations",
			Help:    "Size of the final balanced recommendation list.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
	}

	registry.MustRegister(m.requests, m.stageLatency, m.candidates, m.finalListSize)
	return m
}

// ObserveRequest records a completed recommendation request.
func (m *Metrics) ObserveRequest(status string) {
	m.requests.WithLabelValues(status).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveCandidates records retrieval and output list sizes.
func (m *Metrics) ObserveCandidates(retrieved, final int) {
	m.candidates.Observe(float64(retrieved))
	m.finalListSize.Observe(float64(final))
}

// Handler returns the HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
