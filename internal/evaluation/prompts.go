package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/backloghq/response-evaluator/internal/domain"
)

// System prompts for the evaluator-owned LLM calls. The evaluation call
// itself uses the caller-supplied system prompt.
const (
	systemPromptSummary         = "You are an expert at summarizing evaluation results."
	systemPromptRecommendations = "You are an expert at providing actionable improvement recommendations."
)

// Static fallback texts used when the corresponding LLM call fails or is
// skipped.
const (
	summaryFallback = "Evaluation completed with mixed results. Review individual metric scores for details."

	recommendationsFallback = "Review content for accuracy and completeness. Improve clarity and structure. Ensure alignment with requirements."

	recommendationsAllGood = "Content quality is good. Consider minor refinements based on specific project requirements."
)

// maxRecommendations caps the number of recommendation lines returned to
// callers.
const maxRecommendations = 5

// validationPayload is the structured user message for the validation
// protocol: the generation inputs and outputs as one JSON document.
type validationPayload struct {
	Input  validationInput  `json:"input"`
	Output validationOutput `json:"output"`
}

type validationInput struct {
	Context     []domain.ContextItem `json:"context"`
	Template    string               `json:"template"`
	UserRequest string               `json:"user_request"`
}

type validationOutput struct {
	BacklogType      string                  `json:"backlog_type"`
	GeneratedContent domain.GeneratedContent `json:"generated_content"`
}

// buildValidationMessage serializes the request into the indented JSON
// document the validation agent expects.
func buildValidationMessage(req domain.EvaluationRequest) (string, error) {
	ctx := req.Context
	if ctx == nil {
		ctx = []domain.ContextItem{}
	}
	payload := validationPayload{
		Input: validationInput{
			Context:     ctx,
			Template:    req.Template,
			UserRequest: req.UserPrompt,
		},
		Output: validationOutput{
			BacklogType:      req.BacklogType,
			GeneratedContent: req.GeneratedContent,
		},
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling validation payload: %w", err)
	}
	return string(data), nil
}

// buildEvaluationMessage assembles the free-form evaluation prompt with
// all request material, context items joined by " | ".
func buildEvaluationMessage(req domain.EvaluationRequest) string {
	contextParts := make([]string, 0, len(req.Context))
	for _, item := range req.Context {
		contextParts = append(contextParts, item.Content)
	}

	var b strings.Builder
	b.WriteString("Please evaluate the following content:\n\n")
	fmt.Fprintf(&b, "USER_PROMPT: %s\n", req.UserPrompt)
	fmt.Fprintf(&b, "TEMPLATE: %s\n", req.Template)
	fmt.Fprintf(&b, "BACKLOG_TYPE: %s\n", req.BacklogType)
	fmt.Fprintf(&b, "GENERATED_TITLE: %s\n", req.GeneratedContent.Title)
	fmt.Fprintf(&b, "GENERATED_CONTENT: %s\n", req.GeneratedContent.FormattedOutput)
	fmt.Fprintf(&b, "CONTEXT: %s\n", strings.Join(contextParts, " | "))
	return b.String()
}

// buildSummaryPrompt lists every metric line, with reasoning appended
// when present, and asks for a short synthesis.
func buildSummaryPrompt(scores []domain.MetricScore, req domain.EvaluationRequest) string {
	lines := make([]string, 0, len(scores))
	for _, s := range scores {
		line := fmt.Sprintf("- %s: %.2f", s.Metric, s.Score)
		if s.Reasoning != "" {
			line += " - " + s.Reasoning
		}
		lines = append(lines, line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following evaluation scores for a %s, provide a concise summary:\n\n", req.BacklogType)
	b.WriteString(strings.Join(lines, "\n"))
	fmt.Fprintf(&b, "\n\nGenerated Content Title: %s\n\n", req.GeneratedContent.Title)
	b.WriteString("Provide a 2-3 sentence summary of the overall quality and key strengths/weaknesses.")
	return b.String()
}

// buildRecommendationsPrompt lists the low-scoring metrics and asks for
// actionable improvements.
func buildRecommendationsPrompt(lowScores []domain.MetricScore, req domain.EvaluationRequest) string {
	lines := make([]string, 0, len(lowScores))
	for _, s := range lowScores {
		line := fmt.Sprintf("- %s (Score: %.2f)", s.Metric, s.Score)
		if s.Reasoning != "" {
			line += ": " + s.Reasoning
		}
		lines = append(lines, line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on these low-scoring evaluation metrics for a %s, provide 3-5 specific, actionable recommendations for improvement:\n\n", req.BacklogType)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nFocus on practical steps to improve the content quality.")
	return b.String()
}

// cleanRecommendations trims response lines, drops blanks and heading
// lines, caps the list, and joins it back into newline-separated text.
func cleanRecommendations(response string) string {
	var recs []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		recs = append(recs, line)
		if len(recs) == maxRecommendations {
			break
		}
	}
	return strings.Join(recs, "\n")
}
