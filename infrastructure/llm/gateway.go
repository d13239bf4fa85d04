package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/backloghq/response-evaluator/internal/ports"
)

var _ ports.GatewayClient = (*Gateway)(nil)

// GatewayConfig holds the call defaults applied when a caller does not
// override them.
type GatewayConfig struct {
	// DefaultTemperature is used when a call does not specify one.
	DefaultTemperature float64

	// DefaultMaxTokens is the generation ceiling used when a call does
	// not specify one.
	DefaultMaxTokens int
}

// Gateway adapts a ports.LLMClient to the two-message chat exchange the
// evaluation core works with: one system prompt, one user message,
// labelled with the call-site context. It holds only immutable
// configuration after construction.
type Gateway struct {
	client ports.LLMClient
	config GatewayConfig
	logger *zap.Logger
}

// NewGateway creates a Gateway over an existing client. The logger must
// not be nil.
func NewGateway(client ports.LLMClient, config GatewayConfig, logger *zap.Logger) *Gateway {
	return &Gateway{client: client, config: config, logger: logger}
}

// Call sends a system + user message exchange and returns the generated
// text. Retries and backoff are handled by the wrapped client's
// middleware chain.
func (g *Gateway) Call(ctx context.Context, systemPrompt, userMessage string, opts ports.GatewayCallOptions) (string, error) {
	temperature := g.config.DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := g.config.DefaultMaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	label := opts.Label
	if label == "" {
		label = "api_call"
	}

	response, err := g.client.Complete(ctx, userMessage, map[string]any{
		"system":      systemPrompt,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"label":       label,
	})
	if err != nil {
		g.logger.Error("gateway call failed",
			zap.String("context", label),
			zap.Error(err),
		)
		return "", err
	}

	g.logger.Info("gateway call successful", zap.String("context", label))
	return response, nil
}

// TestConnection issues a minimal probe message and reports whether it
// succeeded. It never returns an error; failures are logged and reported
// as false. Used only for observability.
func (g *Gateway) TestConnection(ctx context.Context) bool {
	_, err := g.Call(ctx, "", "test", ports.GatewayCallOptions{Label: "connection_test"})
	if err != nil {
		g.logger.Warn("connection test failed", zap.Error(err))
		return false
	}
	return true
}

// Model returns the model identifier of the wrapped client.
func (g *Gateway) Model() string { return g.client.GetModel() }
