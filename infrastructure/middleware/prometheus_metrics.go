// Package middleware provides cross-cutting observability implementations
// for the evaluation service.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/backloghq/response-evaluator/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks gateway request volume, latency, and token
// consumption per call context.
type PrometheusMetrics struct {
	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	tokenCounter   *prometheus.CounterVec
	genericLatency *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all metrics with the given registerer. Pass prometheus.DefaultRegisterer
// for the standard global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM gateway requests by call context and outcome.",
			},
			[]string{"context", "model", "status"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_latency_seconds",
				Help:    "Latency of LLM gateway requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"context", "model", "status"},
		),
		tokenCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total tokens consumed across all LLM interactions.",
			},
			[]string{"context", "model", "token_type"},
		),
		genericLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evaluation_operation_duration_seconds",
				Help:    "Execution time of evaluation operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency records execution latency for a named operation.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.genericLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments the counter matching the metric name.
// Unrecognized metric names are ignored rather than failing the caller.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_requests_total":
		pm.requestCounter.WithLabelValues(
			labels["context"], labels["model"], labels["status"],
		).Add(value)
	case "llm_tokens_total":
		pm.tokenCounter.WithLabelValues(
			labels["context"], labels["model"], labels["token_type"],
		).Add(value)
	}
}

// RecordHistogram records a value in the histogram matching the metric
// name.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_latency_seconds":
		pm.requestLatency.WithLabelValues(
			labels["context"], labels["model"], labels["status"],
		).Observe(value)
	}
}
