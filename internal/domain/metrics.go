// Package domain contains the core value objects for backlog artifact
// evaluation: the canonical metric set, per-metric scores, evaluation
// requests, and assembled results. The package has no I/O and no
// dependencies on infrastructure concerns.
package domain

import "math"

// Metric identifies one of the quality dimensions evaluated for every
// request.
type Metric string

// The canonical metric set. Every evaluation produces exactly one score
// per metric, in this order.
const (
	MetricRelevance              Metric = "relevance"
	MetricAccuracy               Metric = "accuracy"
	MetricCompleteness           Metric = "completeness"
	MetricClarity                Metric = "clarity"
	MetricStructure              Metric = "structure"
	MetricConsistency            Metric = "consistency"
	MetricHallucinationDetection Metric = "hallucination_detection"
	MetricContextAdherence       Metric = "context_adherence"
	MetricFactualGrounding       Metric = "factual_grounding"
)

// canonicalMetrics holds the fixed evaluation order. Callers must not
// mutate the returned slice from Metrics.
var canonicalMetrics = []Metric{
	MetricRelevance,
	MetricAccuracy,
	MetricCompleteness,
	MetricClarity,
	MetricStructure,
	MetricConsistency,
	MetricHallucinationDetection,
	MetricContextAdherence,
	MetricFactualGrounding,
}

// Metrics returns the canonical metric set in canonical order.
func Metrics() []Metric {
	out := make([]Metric, len(canonicalMetrics))
	copy(out, canonicalMetrics)
	return out
}

// MetricCount is the size of the canonical metric set.
const MetricCount = 9

// Description returns the human-readable explanation of what a metric
// measures, used by the metrics discovery endpoint.
func (m Metric) Description() string {
	switch m {
	case MetricRelevance:
		return "How well the content addresses the user's prompt"
	case MetricAccuracy:
		return "Factual correctness and technical accuracy"
	case MetricCompleteness:
		return "Whether all necessary sections are included"
	case MetricClarity:
		return "Readability and professional language"
	case MetricStructure:
		return "Proper formatting and organization"
	case MetricConsistency:
		return "Internal consistency and alignment with context"
	case MetricHallucinationDetection:
		return "Identifies and penalizes fabricated or unsupported claims"
	case MetricContextAdherence:
		return "Alignment with provided contextual information"
	case MetricFactualGrounding:
		return "Verification of claims against reliable sources"
	default:
		return ""
	}
}

// MetricScore is the evaluated outcome for a single metric.
// Reasoning is serialized only when present; the redaction policy in the
// evaluation package clears it for scores at or above the redaction
// threshold.
type MetricScore struct {
	Metric     Metric  `json:"metric"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Clamp01 bounds a value to the inclusive [0.0, 1.0] score range.
func Clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// Round2 rounds a score to two decimal places, the precision used for
// all serialized scores.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
