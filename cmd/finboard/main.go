package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"finboard/internal/api"
	"finboard/internal/config"
	"finboard/internal/dashboard"
	"finboard/internal/database"
	"finboard/internal/market"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("cannot load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("finboard stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := database.NewPostgresRepository(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	fetcher := market.NewFetcher(cfg.Market.RequestTimeout, cfg.Market.MaxAttempts, cfg.Market.RetryBaseDelay)
	sources, err := market.NewSources(logger, fetcher, cfg.Market)
	if err != nil {
		return err
	}
	monitor := market.NewMonitor(logger, market.NewIngestor(logger, sources...), cfg.Market.RefreshInterval)
	monitor.Start(ctx)
	defer monitor.Stop()

	svc := dashboard.NewService(logger, repo, monitor,
		market.NewRateClient(logger, fetcher, cfg.Market.Rates),
		market.NewInflationClient(logger, fetcher, cfg.Market.InflationURL),
		&cfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(logger, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP: listening", "addr", cfg.Server.Addr, "sources", len(sources))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
