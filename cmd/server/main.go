// Package main is the entry point for the Signalfolio analysis server: a
// technical-signal and rebalancing engine for dividend-income portfolios.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kpetrou/signalfolio/internal/cache"
	"github.com/kpetrou/signalfolio/internal/clients/yahoo"
	"github.com/kpetrou/signalfolio/internal/config"
	"github.com/kpetrou/signalfolio/internal/database"
	"github.com/kpetrou/signalfolio/internal/modules/analysis"
	analysishandlers "github.com/kpetrou/signalfolio/internal/modules/analysis/handlers"
	"github.com/kpetrou/signalfolio/internal/modules/portfolio"
	"github.com/kpetrou/signalfolio/internal/modules/rebalancing"
	rebalancinghandlers "github.com/kpetrou/signalfolio/internal/modules/rebalancing/handlers"
	"github.com/kpetrou/signalfolio/internal/scheduler"
	"github.com/kpetrou/signalfolio/internal/server"
	"github.com/kpetrou/signalfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error"})
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Dur("cache_ttl", cfg.CacheTTL).
		Int("batch_concurrency", cfg.BatchConcurrency).
		Msg("Starting Signalfolio")

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "signalfolio.db"),
		Name: "signalfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	resultCache := cache.New(cfg.CacheTTL, log)
	yahooClient := yahoo.NewClient(cfg.ClientTimeout, log)

	snapshotRepo, err := analysis.NewSnapshotRepository(db.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot repository")
	}

	holdingsRepo, err := portfolio.NewRepository(db.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize holdings repository")
	}

	analysisService := analysis.NewService(
		yahooClient,
		resultCache,
		snapshotRepo,
		analysis.Config{
			HistoryRange:     cfg.HistoryRange,
			BatchConcurrency: cfg.BatchConcurrency,
		},
		log,
	)
	portfolioService := portfolio.NewService(holdingsRepo, yahooClient, log)
	rebalancingService := rebalancing.NewService(portfolioService, yahooClient, log)

	maintenance := scheduler.New(resultCache, snapshotRepo, log)
	if err := maintenance.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}

	srv := server.New(server.Config{
		Log:                 log,
		Config:              cfg,
		Cache:               resultCache,
		AnalysisHandlers:    analysishandlers.NewHandler(analysisService, log),
		RebalancingHandlers: rebalancinghandlers.NewHandler(rebalancingService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	maintenance.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}
