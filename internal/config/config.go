// Package config loads service configuration from the environment.
// Configuration is constructed once at process start and passed by
// injection into the gateway client and evaluator constructors; nothing
// reads it as ambient global state.
package config

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/backloghq/response-evaluator/internal/domain"
)

// WeightSumTolerance is the permitted deviation of the metric weight sum
// from 1.0.
const WeightSumTolerance = 1e-9

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"API_HOST, default=0.0.0.0"`
	Port int    `env:"API_PORT, default=8040" validate:"min=1,max=65535"`
}

// ProviderConfig identifies the LLM gateway endpoint and model.
// APIKey is the only fatal configuration field: the gateway client cannot
// be constructed without it.
type ProviderConfig struct {
	Provider string `env:"GATEWAY_PROVIDER, default=openai" validate:"required"`
	BaseURL  string `env:"GATEWAY_BASE_URL"`
	APIKey   string `env:"GATEWAY_API_KEY"`
	Model    string `env:"GATEWAY_MODEL, default=gpt-4o-mini" validate:"required"`
}

// RetryConfig controls gateway retry behavior.
type RetryConfig struct {
	MaxRetries int           `env:"MAX_RETRIES, default=3" validate:"min=0,max=10"`
	BaseDelay  time.Duration `env:"RETRY_DELAY, default=1s" validate:"min=0"`
	MaxDelay   time.Duration `env:"RETRY_MAX_DELAY, default=30s"`
}

// BehaviourConfig holds generation parameters for outbound LLM calls.
type BehaviourConfig struct {
	DefaultTemperature       float64 `env:"DEFAULT_TEMPERATURE, default=0.6" validate:"min=0,max=1"`
	MaxTokensGeneration      int     `env:"MAX_TOKENS_GENERATION, default=2000" validate:"min=1"`
	MaxTokensSummary         int     `env:"MAX_TOKENS_SUMMARY, default=200" validate:"min=1"`
	MaxTokensRecommendations int     `env:"MAX_TOKENS_RECOMMENDATIONS, default=300" validate:"min=1"`
	RequestsPerSecond        float64 `env:"GATEWAY_RPS, default=10"`
	Burst                    int     `env:"GATEWAY_BURST, default=20" validate:"min=1"`
}

// EvaluationConfig holds scoring thresholds and the canonical metric
// weights. Weights may be overridden through the environment as
// "metric:weight" pairs but must still cover the canonical set and sum to
// 1.0.
type EvaluationConfig struct {
	// RedactionThreshold is the score below which reasoning text is
	// retained on a metric score.
	RedactionThreshold float64 `env:"REDACTION_THRESHOLD, default=0.65" validate:"min=0,max=1"`

	// ImprovementThreshold is the score below which a metric is flagged
	// for improvement recommendations. Deliberately wider than the
	// redaction net.
	ImprovementThreshold float64 `env:"IMPROVEMENT_THRESHOLD, default=0.7" validate:"min=0,max=1"`

	MetricWeights map[string]float64 `env:"METRIC_WEIGHTS"`
}

// Config is the root configuration value for the service.
type Config struct {
	Server     ServerConfig
	Provider   ProviderConfig
	Retry      RetryConfig
	Behaviour  BehaviourConfig
	Evaluation EvaluationConfig
}

// DefaultMetricWeights returns the fixed weight table over the canonical
// metric set. The weights sum to exactly 1.00.
func DefaultMetricWeights() map[string]float64 {
	return map[string]float64{
		string(domain.MetricRelevance):              0.18,
		string(domain.MetricAccuracy):               0.15,
		string(domain.MetricCompleteness):           0.15,
		string(domain.MetricClarity):                0.12,
		string(domain.MetricStructure):              0.08,
		string(domain.MetricConsistency):            0.08,
		string(domain.MetricHallucinationDetection): 0.12,
		string(domain.MetricContextAdherence):       0.08,
		string(domain.MetricFactualGrounding):       0.04,
	}
}

// Load reads configuration from the environment, applies defaults, and
// validates the result.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if len(cfg.Evaluation.MetricWeights) == 0 {
		cfg.Evaluation.MetricWeights = DefaultMetricWeights()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural constraints and the metric weight invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var sum float64
	for _, m := range domain.Metrics() {
		w, ok := c.Evaluation.MetricWeights[string(m)]
		if !ok {
			return fmt.Errorf("metric weights missing entry for %q", m)
		}
		if w < 0 {
			return fmt.Errorf("metric weight for %q must be non-negative, got %f", m, w)
		}
		sum += w
	}

	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("metric weights must sum to 1.0, got %.12f", sum)
	}

	return nil
}
