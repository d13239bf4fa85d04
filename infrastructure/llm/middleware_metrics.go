package llm

import (
	"context"
	"time"

	"github.com/backloghq/response-evaluator/internal/ports"
)

// metricsLLM records request latency, outcome, and token usage for each
// gateway call, labelled by the call-site context (evaluation, summary,
// recommendations).
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that feeds request metrics to the
// given collector. A nil collector disables collection without changing
// behavior.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest executes the request while collecting metrics. Collection is
// off the critical path: failures to record never affect the call
// outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	if m.collector != nil {
		labels := map[string]string{
			"context": ExtractOptionalString(opts, "label", "api_call", nil),
			"model":   m.next.GetModel(),
			"status":  "success",
		}
		if err != nil {
			labels["status"] = "error"
		}

		m.collector.RecordHistogram("llm_latency_seconds", time.Since(start).Seconds(), labels)
		m.collector.RecordCounter("llm_requests_total", 1, labels)

		if err == nil {
			labels["token_type"] = "input"
			m.collector.RecordCounter("llm_tokens_total", float64(tokensIn), labels)

			labels["token_type"] = "output"
			m.collector.RecordCounter("llm_tokens_total", float64(tokensOut), labels)
		}
	}

	return response, tokensIn, tokensOut, err
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }
