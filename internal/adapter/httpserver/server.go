package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/G-m007/EmoStream/internal/adapter/metrics"
	"github.com/G-m007/EmoStream/internal/broadcast"
	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/G-m007/EmoStream/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type eventRouter interface {
	Route(ctx context.Context, event domain.Event) error
}

type poolStats interface {
	Stats() broadcast.PoolStats
}

// websocketServer serves one upgrade request and blocks until the connection closes.
type websocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, clientIP string)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	router           eventRouter
	pool             poolStats
	websocketHandler websocketServer

	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the HTTP surface. registry may be nil, which disables /metrics.
func NewServer(cfg *config.Config, router eventRouter, pool poolStats, websocketHandler websocketServer, registry *prometheus.Registry, clock clockwork.Clock, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		clock:            clock,
		router:           router,
		pool:             pool,
		websocketHandler: websocketHandler,
		registry:         registry,
		healthChecks:     healthChecks,
		startTime:        clock.Now(),
	}
	if registry != nil {
		srv.httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler {
	return s.echo
}
