package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/backloghq/response-evaluator/internal/config"
	"github.com/backloghq/response-evaluator/internal/domain"
	"github.com/backloghq/response-evaluator/internal/ports"
)

// mockGateway is a GatewayClient test double that routes canned
// responses and errors by call label.
type mockGateway struct {
	mu               sync.Mutex
	responses        map[string]string
	errs             map[string]error
	calls            []gatewayCall
	connected        bool
	connectionProbes int
	model            string
}

type gatewayCall struct {
	systemPrompt string
	userMessage  string
	opts         ports.GatewayCallOptions
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		responses: map[string]string{},
		errs:      map[string]error{},
		connected: true,
		model:     "test-model",
	}
}

func (m *mockGateway) Call(_ context.Context, systemPrompt, userMessage string, opts ports.GatewayCallOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, gatewayCall{systemPrompt: systemPrompt, userMessage: userMessage, opts: opts})
	if err := m.errs[opts.Label]; err != nil {
		return "", err
	}
	return m.responses[opts.Label], nil
}

func (m *mockGateway) TestConnection(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionProbes++
	return m.connected
}

func (m *mockGateway) Model() string { return m.model }

func (m *mockGateway) callsWithLabel(label string) []gatewayCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []gatewayCall
	for _, c := range m.calls {
		if c.opts.Label == label {
			out = append(out, c)
		}
	}
	return out
}

var fixedTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T, gateway ports.GatewayClient, jitter func() float64) *Evaluator {
	t.Helper()
	evaluator, err := NewEvaluator(gateway, Config{
		Weights:                  config.DefaultMetricWeights(),
		RedactionThreshold:       0.65,
		ImprovementThreshold:     0.7,
		MaxTokensSummary:         200,
		MaxTokensRecommendations: 300,
		Jitter:                   jitter,
		Now:                      func() time.Time { return fixedTime },
	}, zap.NewNop())
	require.NoError(t, err)
	return evaluator
}

func testRequest(systemPrompt string) domain.EvaluationRequest {
	return domain.EvaluationRequest{
		SessionID:    "sess-42",
		BacklogType:  "user_story",
		UserPrompt:   "As a user I want to reset my password",
		SystemPrompt: systemPrompt,
		GeneratedContent: domain.GeneratedContent{
			Title:           "Password reset flow",
			FormattedOutput: "## Story\nAs a user...",
		},
		Context:  []domain.ContextItem{{Content: "auth service uses OTP"}},
		Template: "story-template",
	}
}

func noJitter() float64 { return 0 }

func TestNewEvaluator_Validation(t *testing.T) {
	logger := zap.NewNop()
	weights := config.DefaultMetricWeights()

	t.Run("nil gateway", func(t *testing.T) {
		_, err := NewEvaluator(nil, Config{Weights: weights}, logger)
		assert.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewEvaluator(newMockGateway(), Config{Weights: weights}, nil)
		assert.Error(t, err)
	})

	t.Run("incomplete weights", func(t *testing.T) {
		partial := map[string]float64{"relevance": 1.0}
		_, err := NewEvaluator(newMockGateway(), Config{Weights: partial}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing entry")
	})
}

func TestEvaluate_StructuredScores(t *testing.T) {
	// Given a gateway returning a full structured evaluation
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{
		"relevance": {"score": 0.9, "reasoning": "on topic", "confidence": 0.95},
		"accuracy": {"score": 0.8},
		"completeness": {"score": 0.5, "reasoning": "missing acceptance criteria"},
		"clarity": 0.75,
		"structure": {"score": 0.8},
		"consistency": {"score": 0.7},
		"hallucination_detection": {"score": 0.85},
		"context_adherence": {"score": 0.6, "reasoning": "ignores OTP detail"},
		"factual_grounding": {"score": 0.7}
	}`
	gateway.responses["summary"] = "Strong story overall with gaps in completeness."
	gateway.responses["recommendations"] = "1. Add acceptance criteria\n2. Mention the OTP flow"

	evaluator := newTestEvaluator(t, gateway, noJitter)

	// When evaluating
	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate this content"))

	// Then all nine metrics should be present in canonical order
	require.Len(t, result.MetricScores, domain.MetricCount)
	byMetric := make(map[domain.Metric]domain.MetricScore)
	for i, s := range result.MetricScores {
		assert.Equal(t, domain.Metrics()[i], s.Metric, "scores should follow canonical order")
		byMetric[s.Metric] = s
	}

	// Structured record fields should be honored
	assert.Equal(t, 0.9, byMetric[domain.MetricRelevance].Score)
	assert.Equal(t, 0.95, byMetric[domain.MetricRelevance].Confidence)
	assert.Empty(t, byMetric[domain.MetricRelevance].Reasoning, "high score should be redacted")
	assert.Equal(t, "missing acceptance criteria", byMetric[domain.MetricCompleteness].Reasoning)

	// Bare number path
	assert.Equal(t, 0.75, byMetric[domain.MetricClarity].Score)
	assert.Equal(t, 0.7, byMetric[domain.MetricClarity].Confidence)

	// Weighted overall: 0.9*0.18+0.8*0.15+0.5*0.15+0.75*0.12+0.8*0.08+
	// 0.7*0.08+0.85*0.12+0.6*0.08+0.7*0.04 = 0.7450 -> 0.74 or 0.75
	assert.InDelta(t, 0.745, result.OverallScore, 0.006)

	assert.Equal(t, "Strong story overall with gaps in completeness.", result.Summary)
	assert.Equal(t, "1. Add acceptance criteria\n2. Mention the OTP flow", result.Recommendations)
	assert.Equal(t, "sess-42", result.SessionID)
	assert.Equal(t, fixedTime.Format(time.RFC3339), result.EvaluationTimestamp)
}

func TestEvaluate_MissingMetricsDefaulted(t *testing.T) {
	// Given a response covering only one metric
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": {"score": 0.9}}`
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	require.Len(t, result.MetricScores, domain.MetricCount)
	for _, s := range result.MetricScores {
		if s.Metric == domain.MetricRelevance {
			assert.Equal(t, 0.9, s.Score)
			continue
		}
		assert.Equal(t, 0.5, s.Score)
		assert.Equal(t, 0.3, s.Confidence)
		assert.Contains(t, s.Reasoning, "not found in AI response")
	}
}

func TestEvaluate_GatewayFailureFallsBack(t *testing.T) {
	// Given a gateway that fails the evaluation call
	gateway := newMockGateway()
	gateway.errs["evaluation"] = &domain.GatewayError{Attempts: 4, Err: errors.New("upstream down")}
	gateway.responses["summary"] = "unused"
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	// Then every metric carries the neutral fallback and the error text
	require.Len(t, result.MetricScores, domain.MetricCount)
	for _, s := range result.MetricScores {
		assert.Equal(t, 0.5, s.Score)
		assert.Equal(t, 0.1, s.Confidence)
		assert.Contains(t, s.Reasoning, "upstream down")
		assert.Contains(t, s.Reasoning, "4 attempts")
	}
	assert.Equal(t, 0.5, result.OverallScore, "uniform 0.5 scores with weights summing to 1")
}

func TestEvaluate_EmptyResponseFallsBack(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = "   \n  "
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	for _, s := range result.MetricScores {
		assert.Equal(t, "Empty response from AI", s.Reasoning)
		assert.Equal(t, 0.1, s.Confidence)
	}
}

func TestEvaluate_NoCanonicalKeysFallsBack(t *testing.T) {
	// Given valid JSON that contains none of the canonical metric names
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"verdict": "fine", "overall": 0.8}`
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	for _, s := range result.MetricScores {
		assert.Equal(t, "no valid metric scores found in response", s.Reasoning)
		assert.Equal(t, 0.1, s.Confidence)
	}
}

func TestEvaluate_MalformedJSONFallsBack(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": 0.8,}`
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	for _, s := range result.MetricScores {
		assert.Contains(t, s.Reasoning, "JSON parsing error")
	}
}

func TestEvaluate_EvaluationMessageContent(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": 0.8}`
	evaluator := newTestEvaluator(t, gateway, noJitter)
	req := testRequest("You are a strict reviewer")

	evaluator.Evaluate(context.Background(), req)

	calls := gateway.callsWithLabel("evaluation")
	require.Len(t, calls, 1)
	assert.Equal(t, "You are a strict reviewer", calls[0].systemPrompt, "caller system prompt should pass through")
	assert.Contains(t, calls[0].userMessage, "USER_PROMPT: As a user I want to reset my password")
	assert.Contains(t, calls[0].userMessage, "BACKLOG_TYPE: user_story")
	assert.Contains(t, calls[0].userMessage, "GENERATED_TITLE: Password reset flow")
	assert.Contains(t, calls[0].userMessage, "CONTEXT: auth service uses OTP")
}

func TestEvaluate_ValidationProceed(t *testing.T) {
	// Given a validation agent system prompt and an approving verdict
	gateway := newMockGateway()
	gateway.responses["custom_evaluation"] = `{"proceed": true, "reason": "content matches the request"}`
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("You are a Validation Agent for backlog content"))

	// Then every metric carries the proceed base score
	require.Len(t, result.MetricScores, domain.MetricCount)
	for _, s := range result.MetricScores {
		assert.Equal(t, 0.85, s.Score)
		assert.Equal(t, 0.9, s.Confidence)
		assert.Empty(t, s.Reasoning, "0.85 should be redacted")
	}
	assert.Equal(t, 0.85, result.OverallScore)

	// The free-form evaluation call should never have happened
	assert.Empty(t, gateway.callsWithLabel("evaluation"))

	// Everything scores above the improvement threshold, so no
	// recommendations call is made
	assert.Empty(t, gateway.callsWithLabel("recommendations"))
	assert.Equal(t, "Content quality is good. Consider minor refinements based on specific project requirements.", result.Recommendations)
}

func TestEvaluate_ValidationReject(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["custom_evaluation"] = `{"proceed": false, "reason": "output contradicts the template"}`
	gateway.responses["recommendations"] = "1. Follow the template"
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("you are a validation agent"))

	for _, s := range result.MetricScores {
		assert.Equal(t, 0.35, s.Score)
		assert.Equal(t, 0.8, s.Confidence)
		assert.Equal(t, "output contradicts the template", s.Reasoning, "low score should keep the reason")
	}
	assert.Equal(t, 0.35, result.OverallScore)

	// All metrics fall below the improvement threshold
	require.Len(t, gateway.callsWithLabel("recommendations"), 1)
	assert.Equal(t, "1. Follow the template", result.Recommendations)
}

func TestEvaluate_ValidationJitterClamped(t *testing.T) {
	// Given jitter pushing scores past the upper bound
	gateway := newMockGateway()
	gateway.responses["custom_evaluation"] = `{"proceed": true, "reason": "ok"}`
	evaluator := newTestEvaluator(t, gateway, func() float64 { return 0.05 })

	result := evaluator.Evaluate(context.Background(), testRequest("validation agent"))

	for _, s := range result.MetricScores {
		assert.Equal(t, 0.9, s.Score, "base plus jitter should round to 0.9")
	}
}

func TestEvaluate_ValidationPayloadShape(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["custom_evaluation"] = `{"proceed": true, "reason": "ok"}`
	evaluator := newTestEvaluator(t, gateway, noJitter)

	evaluator.Evaluate(context.Background(), testRequest("validation agent"))

	calls := gateway.callsWithLabel("custom_evaluation")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].userMessage, `"user_request": "As a user I want to reset my password"`)
	assert.Contains(t, calls[0].userMessage, `"backlog_type": "user_story"`)
	assert.Contains(t, calls[0].userMessage, `"template": "story-template"`)
}

func TestEvaluate_ValidationBadResponses(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantReason string
	}{
		{
			name:       "no JSON at all",
			response:   "I cannot answer that.",
			wantReason: "No valid JSON found in validation response",
		},
		{
			name:       "missing reason field",
			response:   `{"proceed": true}`,
			wantReason: "Invalid response format from validation agent",
		},
		{
			name:       "missing proceed field",
			response:   `{"reason": "looks fine"}`,
			wantReason: "Invalid response format from validation agent",
		},
		{
			name:       "wrong field types",
			response:   `{"proceed": "yes", "reason": 5}`,
			wantReason: "Invalid response format from validation agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := newMockGateway()
			gateway.responses["custom_evaluation"] = tt.response
			gateway.responses["recommendations"] = "1. Retry with valid output"
			evaluator := newTestEvaluator(t, gateway, noJitter)

			result := evaluator.Evaluate(context.Background(), testRequest("validation agent"))

			// Parse failures are treated as a rejection, not a fallback
			for _, s := range result.MetricScores {
				assert.Equal(t, 0.35, s.Score)
				assert.Equal(t, 0.8, s.Confidence)
				assert.Equal(t, tt.wantReason, s.Reasoning)
			}
		})
	}
}

func TestEvaluate_ValidationGatewayError(t *testing.T) {
	gateway := newMockGateway()
	gateway.errs["custom_evaluation"] = errors.New("timeout")
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("validation agent"))

	for _, s := range result.MetricScores {
		assert.Equal(t, 0.5, s.Score)
		assert.Equal(t, 0.1, s.Confidence)
		assert.Equal(t, "Validation error: timeout", s.Reasoning)
	}
}

func TestEvaluate_SummaryFailureUsesFallback(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": 0.8}`
	gateway.errs["summary"] = errors.New("summary model down")
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	assert.Equal(t, "Evaluation completed with mixed results. Review individual metric scores for details.", result.Summary)
}

func TestEvaluate_RecommendationsFailureUsesFallback(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": 0.3}`
	gateway.errs["recommendations"] = errors.New("model down")
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	assert.Equal(t, "Review content for accuracy and completeness. Improve clarity and structure. Ensure alignment with requirements.", result.Recommendations)
}

func TestEvaluate_RecommendationsOnlyForLowMetrics(t *testing.T) {
	// Given one metric below the improvement threshold
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{
		"relevance": {"score": 0.9},
		"accuracy": {"score": 0.9},
		"completeness": {"score": 0.4, "reasoning": "thin"},
		"clarity": {"score": 0.9},
		"structure": {"score": 0.9},
		"consistency": {"score": 0.9},
		"hallucination_detection": {"score": 0.9},
		"context_adherence": {"score": 0.9},
		"factual_grounding": {"score": 0.9}
	}`
	gateway.responses["recommendations"] = "# Recommendations\n1. Expand the acceptance criteria\n\n2. Add edge cases"
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	calls := gateway.callsWithLabel("recommendations")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].userMessage, "completeness (Score: 0.40): thin")
	assert.NotContains(t, calls[0].userMessage, "relevance", "passing metrics should be excluded")

	// Heading and blank lines are stripped from the response
	assert.Equal(t, "1. Expand the acceptance criteria\n2. Add edge cases", result.Recommendations)
}

func TestEvaluate_RecommendationsCapped(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": 0.2}`
	gateway.responses["recommendations"] = "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g"
	evaluator := newTestEvaluator(t, gateway, noJitter)

	result := evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	assert.Equal(t, "1. a\n2. b\n3. c\n4. d\n5. e", result.Recommendations)
}

func TestEvaluate_SummaryPromptIncludesAllMetrics(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": {"score": 0.3, "reasoning": "off topic"}}`
	evaluator := newTestEvaluator(t, gateway, noJitter)

	evaluator.Evaluate(context.Background(), testRequest("Evaluate"))

	calls := gateway.callsWithLabel("summary")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].userMessage, "- relevance: 0.30 - off topic")
	assert.Contains(t, calls[0].userMessage, "Generated Content Title: Password reset flow")
	assert.Equal(t, 200, calls[0].opts.MaxTokens)
	for _, m := range domain.Metrics() {
		assert.Contains(t, calls[0].userMessage, string(m))
	}
}

func TestEvaluate_MetadataAssembled(t *testing.T) {
	gateway := newMockGateway()
	gateway.responses["evaluation"] = `{"relevance": 0.8}`
	evaluator := newTestEvaluator(t, gateway, noJitter)
	req := testRequest("Evaluate")

	result := evaluator.Evaluate(context.Background(), req)

	assert.Equal(t, "user_story", result.EvaluationMetadata["backlog_type"])
	assert.Equal(t, len(req.GeneratedContent.FormattedOutput), result.EvaluationMetadata["content_length"])
	assert.Equal(t, 1, result.EvaluationMetadata["context_items"])
}
