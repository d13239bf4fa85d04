// Command response-evaluator runs the backlog content evaluation
// service: an HTTP API that scores AI-generated backlog artifacts
// against a weighted set of quality metrics using an upstream LLM
// gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/backloghq/response-evaluator/infrastructure/llm"
	"github.com/backloghq/response-evaluator/infrastructure/middleware"
	"github.com/backloghq/response-evaluator/internal/config"
	"github.com/backloghq/response-evaluator/internal/evaluation"
	"github.com/backloghq/response-evaluator/internal/server"
)

// shutdownTimeout bounds graceful drain of in-flight evaluations.
const shutdownTimeout = 15 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewPrometheusMetrics(registry)

	client, err := llm.NewClient(cfg.Provider.Provider, llm.ClientConfig{
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
		Middleware: []llm.Middleware{
			llm.RetryMiddleware(llm.RetryConfig{
				MaxRetries: cfg.Retry.MaxRetries,
				BaseDelay:  cfg.Retry.BaseDelay,
				MaxDelay:   cfg.Retry.MaxDelay,
			}),
			llm.RateLimitMiddleware(rate.Limit(cfg.Behaviour.RequestsPerSecond), cfg.Behaviour.Burst),
			llm.MetricsMiddleware(metrics),
		},
	})
	if err != nil {
		return err
	}

	gateway := llm.NewGateway(client, llm.GatewayConfig{
		DefaultTemperature: cfg.Behaviour.DefaultTemperature,
		DefaultMaxTokens:   cfg.Behaviour.MaxTokensGeneration,
	}, logger)

	// Startup connectivity probe, off the serving path. Failure is
	// logged, not fatal: the service stays up and reports degraded
	// results through evaluation fallbacks.
	go func() {
		if gateway.TestConnection(ctx) {
			logger.Info("llm provider reachable", zap.String("model", gateway.Model()))
		} else {
			logger.Warn("llm provider unreachable", zap.String("model", gateway.Model()))
		}
	}()

	evaluator, err := evaluation.NewEvaluator(gateway, evaluation.Config{
		Weights:                  cfg.Evaluation.MetricWeights,
		RedactionThreshold:       cfg.Evaluation.RedactionThreshold,
		ImprovementThreshold:     cfg.Evaluation.ImprovementThreshold,
		MaxTokensSummary:         cfg.Behaviour.MaxTokensSummary,
		MaxTokensRecommendations: cfg.Behaviour.MaxTokensRecommendations,
	}, logger)
	if err != nil {
		return err
	}

	service, err := evaluation.NewService(evaluator, gateway, cfg.Evaluation.MetricWeights, logger)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(service, registry, logger, server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("evaluation service started",
		zap.String("provider", cfg.Provider.Provider),
		zap.String("model", gateway.Model()),
		zap.Int("port", cfg.Server.Port),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
