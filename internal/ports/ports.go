// Package ports defines the interfaces through which the evaluation core
// talks to infrastructure: the LLM client and the metrics collector.
// Implementations live under infrastructure/ and are injected at
// construction time.
package ports

import (
	"context"
	"time"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like
// authentication, request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64 (0.0-1.0)
	//   - "max_tokens": int
	//   - "system": string (system prompt, sent as a separate message)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// CompleteWithUsage sends a completion request and additionally
	// returns input and output token counts for cost tracking.
	CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error)

	// EstimateTokens calculates the approximate token count for a given
	// text. The estimation method may vary by provider.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// GatewayCallOptions carries per-call overrides for a gateway exchange.
// Zero values fall back to configured defaults.
type GatewayCallOptions struct {
	// Label identifies the call site for logging and metrics, such as
	// "evaluation", "summary", or "recommendations".
	Label string

	// Temperature overrides the default sampling temperature when
	// non-nil.
	Temperature *float64

	// MaxTokens overrides the default generation ceiling when positive.
	MaxTokens int
}

// GatewayClient is the evaluation core's view of the LLM gateway: send a
// system + user message pair, get generated text back. Retry and backoff
// policy live behind this interface.
type GatewayClient interface {
	// Call sends a two-message exchange and returns the generated text.
	Call(ctx context.Context, systemPrompt, userMessage string, opts GatewayCallOptions) (string, error)

	// TestConnection issues a minimal probe and reports success without
	// returning an error. Used only for observability.
	TestConnection(ctx context.Context) bool

	// Model returns the configured model identifier, used by health
	// reporting.
	Model() string
}

// MetricsCollector defines the interface for collecting operational
// metrics. Implementations should integrate with observability platforms
// such as Prometheus. Collectors must be safe for concurrent use and must
// never fail the request path.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, such as score
	// distributions or response sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
