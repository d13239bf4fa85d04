package domain

import (
	"time"
)

// EvaluationResult is the complete outcome of one evaluation.
// MetricScores always has exactly MetricCount entries in canonical order,
// regardless of upstream failures.
type EvaluationResult struct {
	SessionID           string         `json:"session_id"`
	OverallScore        float64        `json:"overall_score"`
	MetricScores        []MetricScore  `json:"metric_scores"`
	Summary             string         `json:"summary"`
	Recommendations     string         `json:"recommendations"`
	EvaluationTimestamp string         `json:"evaluation_timestamp"`
	EvaluationMetadata  map[string]any `json:"evaluation_metadata"`
}

// AssembleResult combines the scored metrics, summary, and
// recommendations into the final result record. It is a pure function:
// the timestamp is taken from the supplied clock value so callers control
// time for testing.
func AssembleResult(
	req EvaluationRequest,
	overallScore float64,
	scores []MetricScore,
	summary, recommendations string,
	now time.Time,
) EvaluationResult {
	return EvaluationResult{
		SessionID:           req.SessionID,
		OverallScore:        overallScore,
		MetricScores:        scores,
		Summary:             summary,
		Recommendations:     recommendations,
		EvaluationTimestamp: now.Format(time.RFC3339),
		EvaluationMetadata: map[string]any{
			"backlog_type":   req.BacklogType,
			"content_length": len(req.GeneratedContent.FormattedOutput),
			"context_items":  len(req.Context),
		},
	}
}
