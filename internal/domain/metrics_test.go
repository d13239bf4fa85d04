package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CanonicalOrder(t *testing.T) {
	metrics := Metrics()

	require.Len(t, metrics, MetricCount)
	assert.Equal(t, []Metric{
		MetricRelevance,
		MetricAccuracy,
		MetricCompleteness,
		MetricClarity,
		MetricStructure,
		MetricConsistency,
		MetricHallucinationDetection,
		MetricContextAdherence,
		MetricFactualGrounding,
	}, metrics)
}

func TestMetrics_ReturnsCopy(t *testing.T) {
	first := Metrics()
	first[0] = Metric("tampered")

	assert.Equal(t, MetricRelevance, Metrics()[0], "mutating the returned slice should not affect the canonical set")
}

func TestMetric_Description(t *testing.T) {
	for _, m := range Metrics() {
		assert.NotEmpty(t, m.Description(), "metric %s should have a description", m)
	}
	assert.Empty(t, Metric("unknown").Description())
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 0.0, Clamp01(0.0))
	assert.Equal(t, 0.42, Clamp01(0.42))
	assert.Equal(t, 1.0, Clamp01(1.0))
	assert.Equal(t, 1.0, Clamp01(1.5))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.33, Round2(0.333333))
	assert.Equal(t, 0.67, Round2(0.666666))
	assert.Equal(t, 0.5, Round2(0.5))
	assert.Equal(t, 0.85, Round2(0.85))
}

func TestMetricScore_ReasoningOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(MetricScore{Metric: MetricRelevance, Score: 0.9, Confidence: 0.95})

	require.NoError(t, err)
	assert.NotContains(t, string(data), "reasoning", "redacted reasoning should be absent from the wire format")
}

func TestAssembleResult(t *testing.T) {
	req := EvaluationRequest{
		SessionID:   "sess-1",
		BacklogType: "epic",
		GeneratedContent: GeneratedContent{
			Title:           "Checkout revamp",
			FormattedOutput: "## Epic\nRevamp checkout",
		},
		Context: []ContextItem{{Content: "a"}, {Content: "b"}},
	}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	scores := []MetricScore{{Metric: MetricRelevance, Score: 0.9, Confidence: 0.9}}

	result := AssembleResult(req, 0.9, scores, "summary text", "recs text", now)

	assert.Equal(t, "sess-1", result.SessionID)
	assert.Equal(t, 0.9, result.OverallScore)
	assert.Equal(t, scores, result.MetricScores)
	assert.Equal(t, "summary text", result.Summary)
	assert.Equal(t, "recs text", result.Recommendations)
	assert.Equal(t, "2025-06-15T12:00:00Z", result.EvaluationTimestamp)
	assert.Equal(t, "epic", result.EvaluationMetadata["backlog_type"])
	assert.Equal(t, len(req.GeneratedContent.FormattedOutput), result.EvaluationMetadata["content_length"])
	assert.Equal(t, 2, result.EvaluationMetadata["context_items"])
}
