package evaluation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/backloghq/response-evaluator/internal/domain"
	"github.com/backloghq/response-evaluator/internal/ports"
)

// Service exposes the evaluation use cases to transport layers. It wraps
// the evaluator with request logging and owns the health and metric
// metadata operations.
type Service struct {
	evaluator *Evaluator
	gateway   ports.GatewayClient
	weights   map[string]float64
	logger    *zap.Logger
}

// NewService creates a Service over a constructed evaluator.
func NewService(evaluator *Evaluator, gateway ports.GatewayClient, weights map[string]float64, logger *zap.Logger) (*Service, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Service{
		evaluator: evaluator,
		gateway:   gateway,
		weights:   weights,
		logger:    logger,
	}, nil
}

// Evaluate runs the full evaluation flow for one request.
func (s *Service) Evaluate(ctx context.Context, req domain.EvaluationRequest) domain.EvaluationResult {
	s.logger.Info("starting evaluation",
		zap.String("session_id", req.SessionID),
		zap.String("backlog_type", req.BacklogType))

	result := s.evaluator.Evaluate(ctx, req)

	s.logger.Info("evaluation completed",
		zap.String("session_id", req.SessionID),
		zap.Float64("overall_score", result.OverallScore))
	return result
}

// HealthStatus describes the service's readiness and the state of its
// components.
type HealthStatus struct {
	Healthy       bool
	ServiceStatus string
	Model         string
	Components    map[string]string
}

// CheckHealth reports health from the constructed dependencies. It
// issues no provider call; an unreachable provider surfaces through
// evaluation fallbacks, not through the health probe.
func (s *Service) CheckHealth() HealthStatus {
	healthy := s.evaluator != nil

	status := HealthStatus{
		Healthy: healthy,
		Model:   s.gateway.Model(),
		Components: map[string]string{
			"evaluator": "healthy",
		},
	}
	if healthy {
		status.ServiceStatus = "operational"
	} else {
		status.ServiceStatus = "degraded"
		status.Components["evaluator"] = "unhealthy"
	}
	return status
}

// MetricInfo describes one evaluation metric for the metadata endpoint.
type MetricInfo struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// ScoringInfo documents the score range and quality bands.
type ScoringInfo struct {
	Range            string `json:"range"`
	Excellent        string `json:"excellent"`
	Good             string `json:"good"`
	NeedsImprovement string `json:"needs_improvement"`
}

// MetricsInfo bundles the metric table with the scoring bands.
type MetricsInfo struct {
	Metrics []MetricInfo `json:"metrics"`
	Scoring ScoringInfo  `json:"scoring"`
}

// MetricsInfo reports every canonical metric with its configured weight
// and description, plus the interpretation bands for overall scores.
func (s *Service) MetricsInfo() MetricsInfo {
	metrics := domain.Metrics()
	info := MetricsInfo{
		Metrics: make([]MetricInfo, 0, len(metrics)),
		Scoring: ScoringInfo{
			Range:            "0.0 to 1.0",
			Excellent:        "> 0.8",
			Good:             "0.7 - 0.8",
			NeedsImprovement: "< 0.7",
		},
	}
	for _, m := range metrics {
		info.Metrics = append(info.Metrics, MetricInfo{
			Name:        string(m),
			Weight:      s.weights[string(m)],
			Description: m.Description(),
		})
	}
	return info
}
