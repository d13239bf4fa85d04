package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCollector captures metric calls for assertions.
type recordingCollector struct {
	mu         sync.Mutex
	counters   []recordedMetric
	histograms []recordedMetric
}

type recordedMetric struct {
	name   string
	value  float64
	labels map[string]string
}

func (c *recordingCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	c.RecordHistogram(operation, duration.Seconds(), labels)
}

func (c *recordingCollector) RecordCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = append(c.counters, recordedMetric{name: name, value: value, labels: cloneLabels(labels)})
}

func (c *recordingCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms = append(c.histograms, recordedMetric{name: name, value: value, labels: cloneLabels(labels)})
}

func cloneLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func TestMetricsMiddleware_RecordsSuccess(t *testing.T) {
	// Given an instrumented mock
	mock := NewMockCoreLLM()
	collector := &recordingCollector{}
	wrapped := MetricsMiddleware(collector)(mock)

	// When making a labelled request
	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", map[string]any{"label": "evaluation"})
	require.NoError(t, err)

	// Then latency, request count, and token usage should be recorded
	require.Len(t, collector.histograms, 1, "latency should be recorded once")
	assert.Equal(t, "llm_latency_seconds", collector.histograms[0].name)
	assert.Equal(t, "evaluation", collector.histograms[0].labels["context"])
	assert.Equal(t, "test-model", collector.histograms[0].labels["model"])
	assert.Equal(t, "success", collector.histograms[0].labels["status"])

	require.Len(t, collector.counters, 3, "request count plus two token counters")
	assert.Equal(t, "llm_requests_total", collector.counters[0].name)
	assert.Equal(t, "llm_tokens_total", collector.counters[1].name)
	assert.Equal(t, "input", collector.counters[1].labels["token_type"])
	assert.Equal(t, 10.0, collector.counters[1].value)
	assert.Equal(t, "output", collector.counters[2].labels["token_type"])
	assert.Equal(t, 20.0, collector.counters[2].value)
}

func TestMetricsMiddleware_RecordsErrorWithoutTokens(t *testing.T) {
	// Given a failing mock
	mock := NewMockCoreLLM()
	mock.Error = errors.New("boom")
	collector := &recordingCollector{}
	wrapped := MetricsMiddleware(collector)(mock)

	// When making a request
	_, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)
	require.Error(t, err)

	// Then the failure should be counted but no token metrics emitted
	require.Len(t, collector.counters, 1, "only the request counter should fire")
	assert.Equal(t, "error", collector.counters[0].labels["status"])
	assert.Equal(t, "api_call", collector.counters[0].labels["context"], "missing label should default")
}

func TestMetricsMiddleware_NilCollectorPassesThrough(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := MetricsMiddleware(nil)(mock)

	response, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil)

	require.NoError(t, err)
	assert.Equal(t, "test response", response)
}
