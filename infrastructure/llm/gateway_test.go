package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/backloghq/response-evaluator/internal/ports"
)

func newTestGateway(t *testing.T, mock *MockCoreLLM) *Gateway {
	t.Helper()
	name := registerMockProvider(t, mock)
	client, err := NewClient(name, ClientConfig{APIKey: "key", Model: "m"})
	require.NoError(t, err)
	return NewGateway(client, GatewayConfig{DefaultTemperature: 0.6, DefaultMaxTokens: 2000}, zap.NewNop())
}

func TestGateway_CallAppliesDefaults(t *testing.T) {
	// Given a gateway with configured defaults
	mock := NewMockCoreLLM()
	gateway := newTestGateway(t, mock)

	// When calling without overrides
	response, err := gateway.Call(context.Background(), "system prompt", "user message", ports.GatewayCallOptions{})

	// Then defaults should flow into the provider options
	require.NoError(t, err)
	assert.Equal(t, "test response", response)
	assert.Equal(t, "user message", mock.LastPrompt)
	assert.Equal(t, "system prompt", mock.LastOpts["system"])
	assert.Equal(t, 0.6, mock.LastOpts["temperature"])
	assert.Equal(t, 2000, mock.LastOpts["max_tokens"])
	assert.Equal(t, "api_call", mock.LastOpts["label"])
}

func TestGateway_CallHonorsOverrides(t *testing.T) {
	mock := NewMockCoreLLM()
	gateway := newTestGateway(t, mock)

	temperature := 0.1
	_, err := gateway.Call(context.Background(), "system", "message", ports.GatewayCallOptions{
		Label:       "summary",
		Temperature: &temperature,
		MaxTokens:   200,
	})

	require.NoError(t, err)
	assert.Equal(t, 0.1, mock.LastOpts["temperature"])
	assert.Equal(t, 200, mock.LastOpts["max_tokens"])
	assert.Equal(t, "summary", mock.LastOpts["label"])
}

func TestGateway_CallPropagatesError(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("upstream down")
	gateway := newTestGateway(t, mock)

	_, err := gateway.Call(context.Background(), "system", "message", ports.GatewayCallOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestGateway_TestConnection(t *testing.T) {
	t.Run("healthy upstream", func(t *testing.T) {
		mock := NewMockCoreLLM()
		gateway := newTestGateway(t, mock)

		assert.True(t, gateway.TestConnection(context.Background()))
		assert.Equal(t, "test", mock.LastPrompt, "probe should send a minimal message")
		assert.Equal(t, "connection_test", mock.LastOpts["label"])
	})

	t.Run("failing upstream", func(t *testing.T) {
		mock := NewMockCoreLLM()
		mock.Error = errors.New("connection refused")
		gateway := newTestGateway(t, mock)

		assert.False(t, gateway.TestConnection(context.Background()))
	})
}

func TestGateway_Model(t *testing.T) {
	mock := NewMockCoreLLM()
	gateway := newTestGateway(t, mock)

	assert.Equal(t, "test-model", gateway.Model())
}
