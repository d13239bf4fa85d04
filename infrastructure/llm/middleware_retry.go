package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/backloghq/response-evaluator/internal/domain"
)

// Default retry configuration constants.
const (
	// DefaultMaxRetries is the default number of retries after the
	// initial attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the delay before the first retry; subsequent
	// delays grow exponentially.
	DefaultBaseDelay = 1 * time.Second
	// DefaultMaxRetryDelay caps the backoff delay.
	DefaultMaxRetryDelay = 30 * time.Second
)

// RetryConfig controls the exponential backoff behavior of the retry
// middleware.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Zero disables retrying.
	MaxRetries int

	// BaseDelay is the initial backoff delay. The delay for attempt n is
	// BaseDelay * 2^n.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns a RetryConfig with the service defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxRetryDelay,
	}
}

// retryLLM wraps a CoreLLM with exponential backoff retries. Every
// failure is retried; after exhaustion the last error is surfaced as a
// domain.GatewayError carrying the attempt count.
type retryLLM struct {
	next   CoreLLM
	config RetryConfig
}

// RetryMiddleware creates middleware that retries failed requests with
// exponential backoff. Backoff sleeps are context-aware so cancellation
// is honored and no other in-flight request is blocked.
func RetryMiddleware(config RetryConfig) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{next: next, config: config}
	}
}

// DoRequest forwards the request, retrying on any error up to the
// configured maximum.
func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}

		lastErr = err
		if attempt == r.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", 0, 0, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(r.retryDelay(attempt)):
		}
	}

	return "", 0, 0, &domain.GatewayError{Attempts: r.config.MaxRetries + 1, Err: lastErr}
}

// retryDelay computes the exponential backoff delay for an attempt.
func (r *retryLLM) retryDelay(attempt int) time.Duration {
	delay := r.config.BaseDelay * time.Duration(1<<attempt)
	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}

// GetModel returns the model name from the wrapped implementation.
func (r *retryLLM) GetModel() string { return r.next.GetModel() }
