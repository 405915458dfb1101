// Command worker consumes audit jobs from the Redpanda queue and runs the
// systemic-bias audits against the model.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai/anthropic"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai/stub"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/cache"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/queue/redpanda"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/repo/postgres"
	"github.com/01382253386/ai-hr-decision-platform/internal/config"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// The worker exposes its own /metrics so queue instrumentation is
	// scrapeable separately from the API.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting audit worker", slog.String("env", cfg.AppEnv))

	pool, err := postgres.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	jobRepo := postgres.NewAuditJobRepo(pool)
	resultRepo := postgres.NewAuditResultRepo(pool)

	var respCache domain.ResponseCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable; response cache disabled", slog.Any("error", err))
		} else {
			respCache = rc
		}
	}

	var aiClient domain.AIClient
	if cfg.AnthropicAPIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set; using deterministic stub client")
		aiClient = stub.New()
	} else {
		aiClient = ai.NewCleaningClient(anthropic.New(cfg))
		if respCache != nil {
			aiClient = ai.NewCachedClient(aiClient, respCache, cfg.ResponseCacheTTL)
		}
	}

	consumer, err := redpanda.NewConsumer(
		cfg.KafkaBrokers,
		cfg.AuditConsumerGroup,
		jobRepo,
		resultRepo,
		aiClient,
		cfg.AuditMaxTokens,
		cfg.AuditWorkers,
	)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("audit worker stopped")
}
