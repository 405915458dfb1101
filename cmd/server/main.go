// Command server starts the AI HR decision platform HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai/anthropic"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai/stub"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/cache"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/httpserver"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/queue/redpanda"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/report"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/repo/postgres"
	"github.com/01382253386/ai-hr-decision-platform/internal/app"
	"github.com/01382253386/ai-hr-decision-platform/internal/config"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
	"github.com/01382253386/ai-hr-decision-platform/internal/scoring"
	"github.com/01382253386/ai-hr-decision-platform/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	decisionRepo := postgres.NewDecisionRepo(pool)
	jobRepo := postgres.NewAuditJobRepo(pool)
	resultRepo := postgres.NewAuditResultRepo(pool)

	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(postgres.PoolBeginner{Pool: pool}, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started",
			slog.Int("retention_days", cfg.DataRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	var respCache domain.ResponseCache
	var cachePinger app.Pinger
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable; response cache disabled", slog.Any("error", err))
		} else {
			respCache = rc
			cachePinger = rc
		}
	}

	aiClient := buildAIClient(cfg, respCache)

	profiles := scoring.DefaultProfiles()
	if cfg.ProfilesPath != "" {
		profiles, err = scoring.LoadProfiles(cfg.ProfilesPath)
		if err != nil {
			slog.Error("scoring profiles load failed", slog.String("path", cfg.ProfilesPath), slog.Any("error", err))
			os.Exit(1)
		}
	}
	engine := scoring.NewEngine(profiles)

	analyzeSvc := usecase.NewAnalyzeService(aiClient, cfg.AnalyzeMaxTokens)
	scoreSvc := usecase.NewScoreService(engine, aiClient, cfg.ScoreAuditTokens)
	decisionSvc := usecase.NewDecisionService(aiClient, decisionRepo, cfg.DecisionMaxTokens)
	biasSvc := usecase.NewBiasService(aiClient, cfg.BiasMaxTokens)
	auditSvc := usecase.NewAuditService(jobRepo, resultRepo, decisionRepo, producer, cfg.AuditRecentLimit)
	reportSvc := usecase.NewReportService(report.NewPDFRenderer())

	dbCheck, redisCheck, kafkaCheck := app.BuildReadinessChecks(pool, cachePinger, producer)

	srv := httpserver.NewServer(cfg, analyzeSvc, scoreSvc, decisionSvc, biasSvc, auditSvc, reportSvc, dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// buildAIClient assembles the model client chain: provider, response
// cleaning, then cache. Without an API key the deterministic stub serves
// local development and tests.
func buildAIClient(cfg config.Config, respCache domain.ResponseCache) domain.AIClient {
	if cfg.AnthropicAPIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set; using deterministic stub client")
		return stub.New()
	}
	var cl domain.AIClient = anthropic.New(cfg)
	cl = ai.NewCleaningClient(cl)
	if respCache != nil {
		cl = ai.NewCachedClient(cl, respCache, cfg.ResponseCacheTTL)
	}
	return cl
}
