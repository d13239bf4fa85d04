package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/backloghq/response-evaluator/internal/domain"
	"github.com/backloghq/response-evaluator/internal/ports"
)

// validationMarker is the case-insensitive system prompt substring that
// selects the structured validation protocol.
const validationMarker = "validation agent"

// jitterRange is the half-width of the random score variation applied to
// validation-protocol metric scores to avoid uniform ties.
const jitterRange = 0.05

// Base scores and confidences mapped from the binary validation outcome.
const (
	proceedScore         = 0.85
	proceedConfidence    = 0.9
	notProceedScore      = 0.35
	notProceedConfidence = 0.8
)

// Failure texts surfaced as reasoning in response payloads. Downstream
// consumers match on these sentences, casing included.
const (
	reasonEmptyResponse        = "Empty response from AI"
	reasonInvalidVerdictFormat = "Invalid response format from validation agent"
)

// Config holds the evaluator's scoring parameters. Weights must cover
// the canonical metric set and sum to 1.0; the config package enforces
// this at load time.
type Config struct {
	// Weights is the per-metric weight table for the overall score.
	Weights map[string]float64

	// RedactionThreshold is the score below which reasoning is retained.
	RedactionThreshold float64

	// ImprovementThreshold is the score below which a metric is included
	// in the recommendations prompt. Intentionally wider than the
	// redaction net.
	ImprovementThreshold float64

	// MaxTokensSummary caps the summary generation call.
	MaxTokensSummary int

	// MaxTokensRecommendations caps the recommendations generation call.
	MaxTokensRecommendations int

	// Jitter returns the random variation applied per metric under the
	// validation protocol. Nil selects a uniform source over
	// [-jitterRange, jitterRange]. Tests inject a deterministic source.
	Jitter func() float64

	// Now is the clock used for result timestamps. Nil selects time.Now.
	Now func() time.Time
}

// Evaluator orchestrates a single evaluation request: protocol
// selection, the metric-scoring LLM call, normalization, the weighted
// overall score, and summary/recommendation generation. It holds no
// per-request state and is safe for concurrent use.
type Evaluator struct {
	gateway ports.GatewayClient
	config  Config
	logger  *zap.Logger
	jitter  func() float64
	now     func() time.Time
}

// NewEvaluator creates an Evaluator. The gateway and logger are
// required; weights must include every canonical metric.
func NewEvaluator(gateway ports.GatewayClient, config Config, logger *zap.Logger) (*Evaluator, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	for _, m := range domain.Metrics() {
		if _, ok := config.Weights[string(m)]; !ok {
			return nil, fmt.Errorf("metric weights missing entry for %q", m)
		}
	}
	if config.RedactionThreshold <= 0 {
		config.RedactionThreshold = 0.65
	}
	if config.ImprovementThreshold <= 0 {
		config.ImprovementThreshold = 0.7
	}

	jitter := config.Jitter
	if jitter == nil {
		jitter = func() float64 { return (rand.Float64()*2 - 1) * jitterRange }
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Evaluator{
		gateway: gateway,
		config:  config,
		logger:  logger,
		jitter:  jitter,
		now:     now,
	}, nil
}

// Evaluate runs the full evaluation flow for one request. It never
// returns an error: every upstream failure is converted into the uniform
// fallback metric set with the failure communicated through scores and
// reasoning text.
func (e *Evaluator) Evaluate(ctx context.Context, req domain.EvaluationRequest) domain.EvaluationResult {
	scores := e.evaluateAllMetrics(ctx, req)
	overall := e.overallScore(scores)

	// Summary and recommendations both depend on the metric scores but
	// not on each other, so they run concurrently.
	var summary, recommendations string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary = e.generateSummary(gctx, scores, req)
		return nil
	})
	g.Go(func() error {
		recommendations = e.generateRecommendations(gctx, scores, req)
		return nil
	})
	_ = g.Wait()

	return domain.AssembleResult(req, overall, scores, summary, recommendations, e.now())
}

// evaluateAllMetrics selects the evaluation protocol from the
// caller-supplied system prompt and produces the canonical metric set.
func (e *Evaluator) evaluateAllMetrics(ctx context.Context, req domain.EvaluationRequest) []domain.MetricScore {
	if strings.Contains(strings.ToLower(req.SystemPrompt), validationMarker) {
		return e.handleValidationPrompt(ctx, req)
	}
	return e.handleEvaluationPrompt(ctx, req)
}

// validationResponse is the expected validation agent reply. Pointer
// fields distinguish absent from zero-valued.
type validationResponse struct {
	Proceed *bool   `json:"proceed"`
	Reason  *string `json:"reason"`
}

// handleValidationPrompt drives the structured validation protocol: one
// call carrying the generation inputs and outputs as JSON, answered with
// a binary proceed/reason verdict that is fanned out across all metrics.
func (e *Evaluator) handleValidationPrompt(ctx context.Context, req domain.EvaluationRequest) []domain.MetricScore {
	userMessage, err := buildValidationMessage(req)
	if err != nil {
		e.logger.Error("failed to build validation payload", zap.Error(err))
		return fallbackScores(fmt.Sprintf("Validation error: %v", err))
	}

	response, err := e.gateway.Call(ctx, req.SystemPrompt, userMessage, ports.GatewayCallOptions{
		Label: "custom_evaluation",
	})
	if err != nil {
		e.logger.Error("validation call failed", zap.Error(err))
		return fallbackScores(fmt.Sprintf("Validation error: %v", err))
	}

	proceed, reason := e.parseValidationResponse(response)
	return e.convertValidationToMetrics(proceed, reason)
}

// parseValidationResponse extracts the proceed/reason verdict from the
// agent's reply. Parse failures map to a rejecting verdict with an
// explanatory reason rather than an error.
func (e *Evaluator) parseValidationResponse(response string) (bool, string) {
	decoded, err := ExtractJSON(response)
	if err != nil {
		var malformed *domain.MalformedJSONError
		if errors.As(err, &malformed) {
			e.logger.Error("failed to parse validation JSON", zap.Error(err))
			return false, err.Error()
		}
		e.logger.Error("no JSON found in validation response",
			zap.Int("response_length", len(response)))
		return false, "No valid JSON found in validation response"
	}

	raw, _ := json.Marshal(decoded)
	var verdict validationResponse
	if err := json.Unmarshal(raw, &verdict); err != nil || verdict.Proceed == nil || verdict.Reason == nil {
		e.logger.Error("invalid validation response format",
			zap.Error(domain.ErrInvalidValidationFormat))
		return false, reasonInvalidVerdictFormat
	}

	return *verdict.Proceed, *verdict.Reason
}

// convertValidationToMetrics maps the binary verdict onto the canonical
// metric set: a shared base score with small independent jitter per
// metric, then the usual clamping, rounding, and redaction.
func (e *Evaluator) convertValidationToMetrics(proceed bool, reason string) []domain.MetricScore {
	baseScore, confidence := notProceedScore, notProceedConfidence
	if proceed {
		baseScore, confidence = proceedScore, proceedConfidence
	}

	metrics := domain.Metrics()
	scores := make([]domain.MetricScore, 0, len(metrics))
	for _, m := range metrics {
		final := domain.Round2(domain.Clamp01(baseScore + e.jitter()))
		scores = append(scores, redact(domain.MetricScore{
			Metric:     m,
			Score:      final,
			Reasoning:  reason,
			Confidence: confidence,
		}, e.config.RedactionThreshold))
	}
	return scores
}

// handleEvaluationPrompt drives the free-form protocol: one call with
// all evaluation material, answered with a JSON object keyed by metric
// name. Every parse failure degrades to the uniform fallback with a
// stage-specific message.
func (e *Evaluator) handleEvaluationPrompt(ctx context.Context, req domain.EvaluationRequest) []domain.MetricScore {
	response, err := e.gateway.Call(ctx, req.SystemPrompt, buildEvaluationMessage(req), ports.GatewayCallOptions{
		Label: "evaluation",
	})
	if err != nil {
		e.logger.Error("evaluation call failed", zap.Error(err))
		return fallbackScores(fmt.Sprintf("Evaluation error: %v", err))
	}

	response = strings.TrimSpace(response)
	if response == "" {
		e.logger.Error("empty evaluation response", zap.Error(domain.ErrEmptyResponse))
		return fallbackScores(reasonEmptyResponse)
	}

	decoded, err := ExtractJSON(response)
	if err != nil {
		var malformed *domain.MalformedJSONError
		if errors.As(err, &malformed) {
			e.logger.Error("failed to parse extracted JSON",
				zap.Int("snippet_length", len(malformed.Snippet)), zap.Error(err))
			return fallbackScores(err.Error())
		}
		e.logger.Error("no JSON found in response", zap.Int("response_length", len(response)))
		return fallbackScores("No JSON found in response")
	}

	// Only canonical metric names are consumed; extra keys are ignored.
	present := 0
	metrics := domain.Metrics()
	scores := make([]domain.MetricScore, 0, len(metrics))
	for _, m := range metrics {
		raw, ok := decoded[string(m)]
		if ok {
			present++
		}
		scores = append(scores, normalizeMetric(m, raw, e.config.RedactionThreshold))
	}

	if present == 0 {
		e.logger.Error("no valid metric scores extracted from response")
		return fallbackScores(domain.ErrNoMetricScores.Error())
	}

	return scores
}

// overallScore computes the weighted sum over the metric scores. Metrics
// absent from the weight table contribute 1/len(scores); with the
// canonical nine-entry invariant and a complete weight table this path
// is defensive only.
func (e *Evaluator) overallScore(scores []domain.MetricScore) float64 {
	var sum float64
	for _, s := range scores {
		weight, ok := e.config.Weights[string(s.Metric)]
		if !ok {
			weight = 1.0 / float64(len(scores))
		}
		sum += s.Score * weight
	}
	return domain.Round2(sum)
}

// generateSummary asks the model for a short synthesis of all metric
// lines, falling back to a static sentence when the call fails.
func (e *Evaluator) generateSummary(ctx context.Context, scores []domain.MetricScore, req domain.EvaluationRequest) string {
	response, err := e.gateway.Call(ctx, systemPromptSummary, buildSummaryPrompt(scores, req), ports.GatewayCallOptions{
		Label:     "summary",
		MaxTokens: e.config.MaxTokensSummary,
	})
	if err != nil {
		e.logger.Error("error generating summary", zap.Error(err))
		return summaryFallback
	}
	return response
}

// generateRecommendations asks the model for improvement actions for
// metrics below the improvement threshold. When nothing scores below the
// threshold the LLM call is skipped entirely.
func (e *Evaluator) generateRecommendations(ctx context.Context, scores []domain.MetricScore, req domain.EvaluationRequest) string {
	var low []domain.MetricScore
	for _, s := range scores {
		if s.Score < e.config.ImprovementThreshold {
			low = append(low, s)
		}
	}
	if len(low) == 0 {
		return recommendationsAllGood
	}

	response, err := e.gateway.Call(ctx, systemPromptRecommendations, buildRecommendationsPrompt(low, req), ports.GatewayCallOptions{
		Label:     "recommendations",
		MaxTokens: e.config.MaxTokensRecommendations,
	})
	if err != nil {
		e.logger.Error("error generating recommendations", zap.Error(err))
		return recommendationsFallback
	}

	return cleanRecommendations(response)
}
