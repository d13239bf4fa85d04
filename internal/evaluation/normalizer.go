package evaluation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/backloghq/response-evaluator/internal/domain"
)

// Confidence values assigned by the normalization rules.
const (
	// confidenceDefault applies to structured records that omit
	// confidence.
	confidenceDefault = 0.8
	// confidenceBareScore applies when a metric arrives as a bare number.
	confidenceBareScore = 0.7
	// confidenceMissing applies when a metric is absent from the parsed
	// payload.
	confidenceMissing = 0.3
	// confidenceFallback applies to the uniform total-failure fallback.
	confidenceFallback = 0.1
)

// fallbackScore is the neutral score used for missing metrics and total
// evaluation failures.
const fallbackScore = 0.5

// normalizeMetric converts one metric's raw payload into a bounded,
// confidence-annotated MetricScore. The payload may be a structured
// record, a bare number, or absent (nil raw). The redaction rule is
// applied last: reasoning survives only when the final score is below
// the threshold.
func normalizeMetric(metric domain.Metric, raw json.RawMessage, redactionThreshold float64) domain.MetricScore {
	if raw == nil {
		// 0.5 is below every sane redaction threshold, so the reasoning
		// here always survives redaction.
		return redact(domain.MetricScore{
			Metric:     metric,
			Score:      fallbackScore,
			Reasoning:  fmt.Sprintf("Metric %s not found in AI response", metric),
			Confidence: confidenceMissing,
		}, redactionThreshold)
	}

	if score, ok := decodeNumber(raw); ok {
		return redact(domain.MetricScore{
			Metric:     metric,
			Score:      domain.Round2(domain.Clamp01(score)),
			Reasoning:  "Score provided without detailed reasoning",
			Confidence: confidenceBareScore,
		}, redactionThreshold)
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err == nil {
		if score, ok := coerceNumber(record["score"]); ok {
			confidence := confidenceDefault
			if c, ok := coerceNumber(record["confidence"]); ok {
				confidence = c
			}
			reasoning := "No reasoning provided"
			var text string
			if err := json.Unmarshal(record["reasoning"], &text); err == nil && text != "" {
				reasoning = text
			}
			return redact(domain.MetricScore{
				Metric:     metric,
				Score:      domain.Round2(domain.Clamp01(score)),
				Reasoning:  reasoning,
				Confidence: domain.Round2(domain.Clamp01(confidence)),
			}, redactionThreshold)
		}
	}

	// Unusable shapes (records without a numeric score, bare strings
	// including quoted numbers, arrays) degrade to the bare-number path
	// with the neutral score.
	return redact(domain.MetricScore{
		Metric:     metric,
		Score:      fallbackScore,
		Reasoning:  "Score provided without detailed reasoning",
		Confidence: confidenceBareScore,
	}, redactionThreshold)
}

// decodeNumber reports whether raw is a bare JSON number.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, true
	}
	return 0, false
}

// coerceNumber also accepts numeric strings. Only structured-record
// fields tolerate quoted numbers; a bare metric value must be a real
// JSON number.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	if num, ok := decodeNumber(raw); ok {
		return num, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if parsed, perr := strconv.ParseFloat(str, 64); perr == nil {
			return parsed, true
		}
	}
	return 0, false
}

// redact clears reasoning text for scores at or above the threshold.
// Reasoning is retained verbatim below the threshold.
func redact(score domain.MetricScore, threshold float64) domain.MetricScore {
	if score.Score >= threshold {
		score.Reasoning = ""
	}
	return score
}

// fallbackScores produces the uniform nine-metric fallback used when an
// evaluation fails entirely: neutral score, minimal confidence, and the
// specific failure message as reasoning. The fixed 0.5 score keeps the
// reasoning visible under the redaction rule.
func fallbackScores(failureMessage string) []domain.MetricScore {
	metrics := domain.Metrics()
	scores := make([]domain.MetricScore, 0, len(metrics))
	for _, m := range metrics {
		scores = append(scores, domain.MetricScore{
			Metric:     m,
			Score:      fallbackScore,
			Reasoning:  failureMessage,
			Confidence: confidenceFallback,
		})
	}
	return scores
}
