package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/odds-monitor/internal/app"
	"github.com/riskibarqy/odds-monitor/internal/config"
	"github.com/riskibarqy/odds-monitor/internal/observability"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing := observability.InitUptrace(cfg, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Warn("pyroscope init failed", "error", err)
	} else if stopProfiler != nil {
		defer func() { _ = stopProfiler() }()
	}

	pprofServer := observability.StartPprofServer(cfg, logger)
	if pprofServer != nil {
		defer func() { _ = observability.StopPprofServer(pprofServer, 5*time.Second) }()
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		// The HTTP surface still works from cached state; the monitor
		// simply stays empty until a restart.
		logger.Error("monitor stream unavailable", "error", err)
	}

	go func() {
		logger.Info("http server starting", "addr", application.Server.Addr)
		if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("http server stopped")
}
