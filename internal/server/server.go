// Package server exposes the evaluation service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/backloghq/response-evaluator/internal/domain"
	"github.com/backloghq/response-evaluator/internal/evaluation"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the HTTP endpoints for the evaluation service.
type Server struct {
	echo    *echo.Echo
	service *evaluation.Service
	logger  *zap.Logger
	config  Config
	now     func() time.Time
}

// requestValidator adapts go-playground/validator to echo's Validator
// interface so handlers can rely on c.Validate.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewServer creates the HTTP server and registers all routes. The
// Prometheus registry backs the /metrics endpoint; pass the registry the
// metrics collector was built with.
func NewServer(service *evaluation.Service, registry *prometheus.Registry, logger *zap.Logger, cfg Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("evaluation service cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}

	s.registerRoutes(registry)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(registry *prometheus.Registry) {
	api := s.echo.Group("/api/validate")
	api.POST("/backlog-item-generated", s.handleEvaluate)
	api.GET("/health", s.handleHealth)
	api.GET("/metrics/info", s.handleMetricsInfo)

	s.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

// handleEvaluate runs a full evaluation for the posted content and
// wraps the result in the standardized envelope.
func (s *Server) handleEvaluate(c echo.Context) error {
	start := time.Now()

	var req domain.EvaluationRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid evaluation request", zap.Error(err))
		return s.evaluationError(c, req, http.StatusBadRequest, start, err)
	}
	if err := c.Validate(&req); err != nil {
		s.logger.Warn("evaluation request failed validation", zap.Error(err))
		return s.evaluationError(c, req, http.StatusBadRequest, start, err)
	}

	result := s.service.Evaluate(c.Request().Context(), req)
	elapsed := int(time.Since(start).Milliseconds())

	// Usage is estimated from word counts; the upstream gateway does not
	// expose per-call token accounting for the full evaluation flow.
	tokensUsed := wordTokenEstimate(req.UserPrompt)
	tokensGenerated := wordTokenEstimate(result.Summary)

	return c.JSON(http.StatusOK, StandardizedEvaluationResponse{
		Status:    http.StatusOK,
		Timestamp: s.now().Format(time.RFC3339),
		Message:   "Evaluation completed successfully",
		Body: EvaluationResponseBody{
			SessionID:   req.SessionID,
			BacklogType: req.BacklogType,
			Status:      "completed",
			EvaluationMetrics: map[string]any{
				"overall_score":   result.OverallScore,
				"metric_scores":   result.MetricScores,
				"summary":         result.Summary,
				"recommendations": result.Recommendations,
			},
			EvaluationMetadata: EvaluationMetadata{
				TokensUsed:       tokensUsed,
				TokensGenerated:  tokensGenerated,
				EvaluationTimeMs: elapsed,
			},
		},
	})
}

// evaluationError writes a failure envelope mirroring the success shape
// so consumers can parse every response the same way.
func (s *Server) evaluationError(c echo.Context, req domain.EvaluationRequest, status int, start time.Time, err error) error {
	return c.JSON(status, StandardizedEvaluationResponse{
		Status:    status,
		Timestamp: s.now().Format(time.RFC3339),
		Message:   fmt.Sprintf("Evaluation failed: %v", err),
		Body: EvaluationResponseBody{
			SessionID:         req.SessionID,
			BacklogType:       req.BacklogType,
			Status:            "failed",
			EvaluationMetrics: map[string]any{"error": err.Error()},
			EvaluationMetadata: EvaluationMetadata{
				EvaluationTimeMs: int(time.Since(start).Milliseconds()),
			},
		},
	})
}

// handleHealth reports service health in the envelope the backlog
// orchestrator expects. The check covers constructed components only
// and makes no provider call.
func (s *Server) handleHealth(c echo.Context) error {
	health := s.service.CheckHealth()

	status := http.StatusOK
	message := "Health check passed successfully"
	bodyStatus := "healthy"
	modelStatus := "loaded"
	if !health.Healthy {
		status = http.StatusServiceUnavailable
		message = "Service is unhealthy"
		bodyStatus = "unhealthy"
		modelStatus = "error"
	}

	return c.JSON(status, HealthCheckResponse{
		Status:    status,
		Timestamp: s.now().Format(time.RFC3339),
		Message:   message,
		Body: HealthCheckBody{
			Status: bodyStatus,
			GeneratorModel: GeneratorModel{
				Name:   health.Model,
				Status: modelStatus,
			},
		},
	})
}

// wordTokenEstimate approximates token usage at two tokens per word.
func wordTokenEstimate(text string) int {
	return len(strings.Fields(text)) * 2
}

// handleMetricsInfo reports the metric table and scoring bands.
func (s *Server) handleMetricsInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.MetricsInfo())
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
