package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the resolution service and API.
type Metrics struct {
	// Resolutions by provenance (registry/guess) and gate reason
	Resolutions *prometheus.CounterVec

	// Best similarity score whenever the matcher ran
	MatchScore prometheus.Histogram

	// Vision model round-trip latency, including retries
	VisionLatency prometheus.Histogram

	// Vision failures by kind (rate_limited, credits, error)
	VisionErrors *prometheus.CounterVec

	// Registry snapshot failures that degraded a request to guess-only
	SnapshotFailures prometheus.Counter

	// HTTP requests by route pattern, method, and status code
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance backed by its own registry, including Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the docent metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docent_resolutions_total",
			Help: "Artifact resolutions by provenance and decision reason",
		}, []string{"provenance", "reason"}),

		MatchScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docent_match_score",
			Help:    "Best registry similarity score for guesses that reached the matcher",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.82, 0.85, 0.9, 1},
		}),

		VisionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docent_vision_duration_seconds",
			Help:    "Duration of vision model identification calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),

		VisionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docent_vision_errors_total",
			Help: "Vision model failures by kind",
		}, []string{"kind"}),

		SnapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "docent_registry_snapshot_failures_total",
			Help: "Registry snapshot failures that degraded a request to the model guess",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docent_http_requests_total",
			Help: "HTTP requests by route, method, and status code",
		}, []string{"route", "method", "code"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docent_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		registry: reg,
	}
}

// IncrementResolution records a resolution outcome.
func (m *Metrics) IncrementResolution(provenance, reason string) {
	if m != nil {
		m.Resolutions.WithLabelValues(provenance, reason).Inc()
	}
}

// ObserveMatchScore records the best score the matcher produced.
func (m *Metrics) ObserveMatchScore(score float64) {
	if m != nil {
		m.MatchScore.Observe(score)
	}
}

// ObserveVisionLatency records the duration of a vision call.
func (m *Metrics) ObserveVisionLatency(d time.Duration) {
	if m != nil {
		m.VisionLatency.Observe(d.Seconds())
	}
}

// IncrementVisionError records a failed vision call.
func (m *Metrics) IncrementVisionError(kind string) {
	if m != nil {
		m.VisionErrors.WithLabelValues(kind).Inc()
	}
}

// IncrementSnapshotFailure records a degraded registry read.
func (m *Metrics) IncrementSnapshotFailure() {
	if m != nil {
		m.SnapshotFailures.Inc()
	}
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the Prometheus exposition format for this instance.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
