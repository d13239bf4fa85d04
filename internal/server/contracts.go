package server

// Response envelopes shared with the backlog orchestration system. The
// envelope repeats the HTTP status in the payload so downstream
// consumers can archive responses without their transport metadata.

// EvaluationMetadata carries usage accounting for one evaluation.
// Token figures are estimates derived from word counts.
type EvaluationMetadata struct {
	TokensUsed       int `json:"tokens_used"`
	TokensGenerated  int `json:"tokens_generated"`
	EvaluationTimeMs int `json:"evaluation_time_ms"`
}

// EvaluationResponseBody is the inner payload of an evaluation response.
// EvaluationMetrics is a free-form object: on success it holds the
// scores, summary, and recommendations; on failure a single error entry.
type EvaluationResponseBody struct {
	SessionID          string             `json:"session_id"`
	BacklogType        string             `json:"backlog_type"`
	Status             string             `json:"status"`
	EvaluationMetrics  map[string]any     `json:"evaluation_metrics"`
	EvaluationMetadata EvaluationMetadata `json:"evaluation_metadata"`
}

// StandardizedEvaluationResponse is the outer envelope for evaluation
// responses.
type StandardizedEvaluationResponse struct {
	Status    int                    `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Message   string                 `json:"message"`
	Body      EvaluationResponseBody `json:"body"`
}

// GeneratorModel reports the upstream model behind the service.
type GeneratorModel struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// HealthCheckBody is the inner payload of a health check response.
type HealthCheckBody struct {
	Status         string         `json:"status"`
	GeneratorModel GeneratorModel `json:"generator_model"`
}

// HealthCheckResponse is the outer envelope for health check responses.
type HealthCheckResponse struct {
	Status    int             `json:"status"`
	Timestamp string          `json:"timestamp"`
	Message   string          `json:"message"`
	Body      HealthCheckBody `json:"body"`
}
