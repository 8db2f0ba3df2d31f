package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	aphttp "github.com/nodus-labs/agentpool/internal/adapter/http"
	apnats "github.com/nodus-labs/agentpool/internal/adapter/nats"
	apotel "github.com/nodus-labs/agentpool/internal/adapter/otel"
	"github.com/nodus-labs/agentpool/internal/adapter/ristretto"
	"github.com/nodus-labs/agentpool/internal/adapter/ws"
	"github.com/nodus-labs/agentpool/internal/config"
	"github.com/nodus-labs/agentpool/internal/logger"
	"github.com/nodus-labs/agentpool/internal/middleware"
	"github.com/nodus-labs/agentpool/internal/port/agent"
	"github.com/nodus-labs/agentpool/internal/port/cache"
	"github.com/nodus-labs/agentpool/internal/port/events"
	"github.com/nodus-labs/agentpool/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"agents_config", cfg.Pool.ConfigPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Telemetry ---
	shutdownTelemetry, err := apotel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Insecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	metrics, err := apotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	var sharedCache cache.Cache
	if cfg.Cache.MaxSizeMB > 0 {
		c, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		sharedCache = c
	}

	var publisher events.Publisher
	if cfg.NATS.URL != "" {
		pub, err := apnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = pub.Close() }()
		publisher = pub
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	hub := ws.NewHub()

	// --- Services ---
	approvals := service.NewApprovals(cfg.HITL.TTL, hub, publisher)
	approvals.SetMetrics(metrics)
	approvals.StartSweeper(ctx, cfg.HITL.SweepInterval)

	deps := agent.Deps{
		BaseURL:   cfg.Pool.BaseURL,
		Cache:     sharedCache,
		Approvals: approvals,
		Upstream: agent.Upstream{
			WeatherURL:         cfg.Upstream.WeatherURL,
			CurrencyURL:        cfg.Upstream.CurrencyURL,
			Timeout:            cfg.Upstream.Timeout,
			BreakerMaxFailures: cfg.Breaker.MaxFailures,
			BreakerTimeout:     cfg.Breaker.Timeout,
			WeatherTTL:         cfg.Cache.WeatherTTL,
			RateTTL:            cfg.Cache.RateTTL,
			Observe:            metrics.RecordUpstream,
		},
	}

	pool := service.NewPool(deps, hub, publisher)
	approvals.SetExecutorLookup(pool.Executor)

	if cfg.Pool.ConfigPath != "" {
		count := pool.LoadFromConfig(ctx, cfg.Pool.ConfigPath)
		slog.Info("agents loaded", "count", count)
	}

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	var traced func(http.Handler) http.Handler
	if cfg.Telemetry.OTLPEndpoint != "" {
		traced = apotel.HTTPMiddleware(cfg.Logging.Service)
	}

	server := aphttp.NewServer(cfg, pool, approvals, hub, metrics)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(limiter, traced),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr, "base_url", cfg.Pool.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	return srv.Shutdown(shutdownCtx)
}
