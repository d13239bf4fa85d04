// Package llm provides the outbound LLM transport for the evaluation
// service. It abstracts gateway providers behind a common interface and
// layers cross-cutting concerns (retry, rate limiting, metrics) through a
// middleware chain, so the evaluation core never deals with
// provider-specific APIs.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey:  cfg.Provider.APIKey,
//	    Model:   cfg.Provider.Model,
//	    BaseURL: cfg.Provider.BaseURL,
//	})
//	response, err := client.Complete(ctx, "Hello", nil)
package llm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/backloghq/response-evaluator/internal/ports"
)

// CoreLLM defines the minimal interface that gateway providers must
// implement. Middleware wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response
	// text along with input and output token counts. The opts map carries
	// provider-tunable settings such as temperature, max_tokens, and an
	// optional system prompt.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string
}

// Middleware wraps a CoreLLM implementation to add cross-cutting
// functionality such as retries, rate limiting, or metrics collection
// without modifying provider logic.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds all configuration options for creating an LLM
// client.
type ClientConfig struct {
	// APIKey authenticates requests to the gateway.
	APIKey string

	// Model specifies which model to request.
	Model string

	// BaseURL overrides the provider's default endpoint. This is how a
	// hosted gateway (an OpenAI-compatible proxy) is addressed.
	BaseURL string

	// Middleware is applied in the order specified; the first entry is
	// the outermost wrapper.
	Middleware []Middleware
}

var _ ports.LLMClient = (*Client)(nil)

// Client implements ports.LLMClient by delegating to a provider-specific
// CoreLLM wrapped in the configured middleware chain. It holds only
// immutable configuration after construction and is safe for concurrent
// use.
type Client struct {
	core      CoreLLM
	estimator *TokenCounter
}

// NewClient creates an LLM client for the named provider type. It
// validates configuration, constructs the provider, and assembles the
// middleware chain. Construction failure is the service's only fatal
// configuration error.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first middleware is the
	// outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core, estimator: NewTokenCounter()}, nil
}

// Complete sends a prompt to the LLM and returns the response text,
// discarding token usage information.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt to the LLM and returns the response
// text with input and output token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens returns an approximate token count for the given text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the configured model name from the underlying
// provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// TokenCounter estimates token counts from text when exact tokenizer
// output is unavailable.
type TokenCounter struct {
	// CharactersPerToken is the average characters-per-token ratio used
	// for estimation.
	CharactersPerToken float64
}

// NewTokenCounter creates a TokenCounter with a ratio suitable for
// English text.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens calculates an estimated token count for text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount returns the actual count when the provider reported one,
// falling back to estimation otherwise.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider factory under a type name.
// Providers self-register from their init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// ValidateBaseURL checks that an endpoint override is an absolute http(s)
// URL.
func ValidateBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL must include a host")
	}
	return u.String(), nil
}
