package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/odds-monitor/internal/config"
	"github.com/riskibarqy/odds-monitor/internal/infrastructure/oddsapi"
	"github.com/riskibarqy/odds-monitor/internal/infrastructure/stream"
	"github.com/riskibarqy/odds-monitor/internal/interfaces/httpapi"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
	"github.com/riskibarqy/odds-monitor/internal/platform/resilience"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

// App bundles the wired services and the HTTP server built from them.
// Start connects the monitor stream; Close tears everything down in the
// reverse order.
type App struct {
	Server  *http.Server
	Feed    *usecase.FeedService
	Monitor *usecase.MonitorService
	logger  *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	gateway := oddsapi.NewClient(oddsapi.ClientConfig{
		BaseURL:    cfg.OddsAPIBaseURL,
		Timeout:    cfg.OddsAPITimeout,
		MaxRetries: cfg.OddsAPIMaxRetries,
		Logger:     logger.Named("oddsapi"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OddsAPICircuitEnabled,
			FailureThreshold: cfg.OddsAPICircuitFailures,
			OpenTimeout:      cfg.OddsAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OddsAPICircuitHalfOpenReq,
		},
	})

	sseDialer := stream.NewSSEDialer(nil, cfg.OddsStreamURL, logger.Named("sse"))
	wsDialer := stream.NewWSDialer(cfg.MonitorStreamURL, logger.Named("ws"))

	feed := usecase.NewFeedService(gateway, sseDialer, usecase.FeedConfig{
		FlashClearAfter:   cfg.FlashClearAfter,
		MovementWindow:    cfg.MovementWindow,
		FairOdds:          cfg.FairOddsEnabled,
		ReconnectEnabled:  cfg.StreamReconnectEnabled,
		ReconnectAttempts: cfg.StreamReconnectAttempts,
		ReconnectBackoff:  cfg.StreamReconnectBackoff,
	}, logger.Named("feed"))

	monitor := usecase.NewMonitorService(wsDialer, gateway, usecase.MonitorConfig{
		MaxFixtures:  cfg.MonitorMaxFixtures,
		HistoryCap:   cfg.MonitorHistoryCap,
		RecentWindow: cfg.RecentUpdateWindow,
		PrimeWorkers: cfg.MonitorPrimeWorkers,
	}, logger.Named("monitor"))

	handler := httpapi.NewHandler(feed, monitor, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:  server,
		Feed:    feed,
		Monitor: monitor,
		logger:  logger,
	}, nil
}

// Start connects the shared monitor stream. The HTTP server is started by
// the caller so shutdown ordering stays in one place.
func (a *App) Start(ctx context.Context) error {
	if err := a.Monitor.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	return nil
}

func (a *App) Close() {
	a.Feed.Close()
	a.Monitor.Close()
}
