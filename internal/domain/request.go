package domain

// GeneratedContent is the artifact under evaluation.
type GeneratedContent struct {
	Title           string `json:"title" validate:"required"`
	FormattedOutput string `json:"formatted_output" validate:"required"`
}

// ContextItem is one snippet of grounding material supplied with a
// request.
type ContextItem struct {
	Content string `json:"content"`
}

// EvaluationRequest is the immutable input for one evaluation.
// SessionID is an opaque identifier echoed back to the caller; it is not
// validated for uniqueness. SystemPrompt selects the evaluation protocol.
type EvaluationRequest struct {
	SessionID        string           `json:"session_id" validate:"required"`
	BacklogType      string           `json:"backlog_type" validate:"required"`
	UserPrompt       string           `json:"user_prompt" validate:"required"`
	SystemPrompt     string           `json:"system_prompt" validate:"required"`
	GeneratedContent GeneratedContent `json:"generated_content" validate:"required"`
	Context          []ContextItem    `json:"context"`
	Template         string           `json:"template" validate:"required"`
}
