package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/G-m007/EmoStream/internal/adapter/httpserver"
	"github.com/G-m007/EmoStream/internal/adapter/kafka"
	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/adapter/redis"
	"github.com/G-m007/EmoStream/internal/adapter/websocket"
	"github.com/G-m007/EmoStream/internal/app"
	"github.com/G-m007/EmoStream/internal/broadcast"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/G-m007/EmoStream/internal/platform/config"
	"github.com/G-m007/EmoStream/internal/platform/logging"
	"github.com/G-m007/EmoStream/internal/platform/retry"
	"github.com/G-m007/EmoStream/internal/platform/version"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type telemetry struct {
	ws      *metrics.WebSocketMetrics
	pool    *metrics.PoolMetrics
	forward *metrics.ForwardMetrics
	redis   *metrics.RedisMetrics
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupEventLog(cfg *config.Config, m telemetry) (domain.EventLog, error) {
	switch cfg.LogBackend {
	case config.BackendRedis:
		client, err := redis.NewClient(cfg.RedisURL, m.redis)
		if err != nil {
			return nil, err
		}
		return redis.NewStreamLog(client, cfg.LogTopic, cfg.RedisStreamMaxLen), nil
	default:
		return kafka.NewEventLog(cfg.KafkaBrokers, cfg.LogTopic)
	}
}

// pingEventLog probes the log broker at startup. An unreachable broker only
// costs durability, so the relay starts regardless.
func pingEventLog(ctx context.Context, eventLog domain.EventLog, clock clockwork.Clock) {
	policy := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Event log not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	err := retry.DoVoid(ctx, policy, nil, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return eventLog.Ping(pingCtx)
	})
	if err != nil {
		slog.Error("Event log unavailable, reactions will not be persisted until it recovers", "error", err)
		return
	}
	slog.Info("Event log reachable")
}

func run() error {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "version", version.Get().String(), "env", cfg.AppEnv, "port", cfg.Port, "log_backend", cfg.LogBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	m := telemetry{
		ws:      metrics.NewWebSocketMetrics(registry),
		pool:    metrics.NewPoolMetrics(registry),
		forward: metrics.NewForwardMetrics(registry),
		redis:   metrics.NewRedisMetrics(registry),
	}

	eventLog, err := setupEventLog(cfg, m)
	if err != nil {
		return fmt.Errorf("failed to create event log: %w", err)
	}
	defer func() {
		if err := eventLog.Close(); err != nil {
			slog.Error("Failed to close event log", "error", err)
		}
	}()
	pingEventLog(ctx, eventLog, clock)

	pool := broadcast.NewPool(cfg.PoolInitialUnits, cfg.PoolMaxUnits, cfg.UnitCapacity, m.pool)
	forwarder := app.NewForwarder(eventLog, cfg.LogForwardTimeout, m.forward)
	router := app.NewRouter(pool, forwarder)

	limiter := websocket.NewConnLimiter(cfg.WSConnectRate, cfg.WSConnectBurst, cfg.WSMaxPerIP)
	checkOrigin := websocket.NewCheckOrigin(cfg.AppURL, cfg.CORSOrigins, cfg.IsDevelopment())
	admitter := websocket.NewAdmitter(pool, router, m.ws)
	wsHandler := websocket.NewHandler(admitter, limiter, checkOrigin, clock, m.ws)

	srv := httpserver.NewServer(cfg, router, pool, wsHandler, registry, clock, []httpserver.HealthCheck{
		httpserver.PoolCheck(pool),
	})

	slog.Info("Relay ready",
		"units", cfg.PoolInitialUnits,
		"max_units", cfg.PoolMaxUnits,
		"unit_capacity", cfg.UnitCapacity)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		limiter.Start()
		return nil
	})

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := wsHandler.Shutdown(shutdownCtx); err != nil {
			slog.Error("WebSocket shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		limiter.Stop()
		return nil
	})

	return g.Wait()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Relay stopped", "error", err)
		os.Exit(1)
	}
}
