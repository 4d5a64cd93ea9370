// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "diagnosis"

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDuration        *prometheus.HistogramVec
	HTTPRequestsInFlight       prometheus.Gauge
	PredictionsTotal           *prometheus.CounterVec
	PredictionLatency          prometheus.Histogram
	ClassifierAvailable        prometheus.Gauge
	ClassifierErrorsTotal      prometheus.Counter
	ImplausibleCandidatesTotal *prometheus.CounterVec
	FusionPaddingTotal         prometheus.Counter
	PersistenceFailuresTotal   prometheus.Counter
	HistoryCacheHitsTotal      prometheus.Counter
	HistoryCacheMissesTotal    prometheus.Counter
	CircuitBreakerState        *prometheus.GaugeVec
	AnalyticsEventsTotal       *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Total predictions by ranking source (hybrid, heuristic).",
			},
			[]string{"source"},
		),
		PredictionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_latency_seconds",
				Help:      "End-to-end prediction latency in seconds, persistence included.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		ClassifierAvailable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "classifier_available",
				Help:      "1 when the trained classifier loaded, 0 when running rule-table only.",
			},
		),
		ClassifierErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_errors_total",
				Help:      "Inference calls that failed and were skipped.",
			},
		),
		ImplausibleCandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "implausible_candidates_total",
				Help:      "Classifier candidates dropped by the plausibility guard, by reason.",
			},
			[]string{"reason"},
		),
		FusionPaddingTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fusion_padding_total",
				Help:      "Rankings that needed emergency fallback entries to reach three.",
			},
		),
		PersistenceFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persistence_failures_total",
				Help:      "Assessment records that could not be saved.",
			},
		),
		HistoryCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_cache_hits_total",
				Help:      "Total number of history cache hits.",
			},
		),
		HistoryCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_cache_misses_total",
				Help:      "Total number of history cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		AnalyticsEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_events_total",
				Help:      "Assessment events handed to Kafka, by outcome (published, failed, dropped).",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PredictionsTotal,
		m.PredictionLatency,
		m.ClassifierAvailable,
		m.ClassifierErrorsTotal,
		m.ImplausibleCandidatesTotal,
		m.FusionPaddingTotal,
		m.PersistenceFailuresTotal,
		m.HistoryCacheHitsTotal,
		m.HistoryCacheMissesTotal,
		m.CircuitBreakerState,
		m.AnalyticsEventsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
