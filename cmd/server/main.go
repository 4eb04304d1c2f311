// Package main is the entry point for Cryptofolio, a simulated
// cryptocurrency portfolio engine. It generates risk-profiled
// portfolios from live market data, scores market sentiment, and
// serves rebalancing, stop-loss and opportunity analysis over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/cryptofolio/internal/clients/coingecko"
	"github.com/aristath/cryptofolio/internal/config"
	"github.com/aristath/cryptofolio/internal/database"
	"github.com/aristath/cryptofolio/internal/modules/allocation"
	"github.com/aristath/cryptofolio/internal/modules/indicators"
	"github.com/aristath/cryptofolio/internal/modules/opportunities"
	"github.com/aristath/cryptofolio/internal/modules/portfolio"
	"github.com/aristath/cryptofolio/internal/modules/rebalancing"
	"github.com/aristath/cryptofolio/internal/modules/sentiment"
	"github.com/aristath/cryptofolio/internal/modules/settings"
	"github.com/aristath/cryptofolio/internal/modules/stoploss"
	"github.com/aristath/cryptofolio/internal/reliability"
	"github.com/aristath/cryptofolio/internal/scheduler"
	"github.com/aristath/cryptofolio/internal/server"
	"github.com/aristath/cryptofolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Cryptofolio")

	// Databases: durable portfolio state and the ephemeral market cache.
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	settingsRepo := settings.NewRepository(portfolioDB.Conn(), log)
	if err := settingsRepo.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create settings schema")
	}

	portfolioRepo := portfolio.NewRepository(portfolioDB.Conn(), log)
	if err := portfolioRepo.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create portfolio schema")
	}

	snapshotCache := coingecko.NewSnapshotCache(cacheDB.Conn(), cfg.SnapshotTTL, log)
	if err := snapshotCache.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot cache schema")
	}

	// Settings stored via the API override the environment.
	if err := cfg.UpdateFromSettings(settingsRepo); err != nil {
		log.Warn().Err(err).Msg("Failed to apply settings overrides")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	markets := coingecko.NewClient(coingecko.Config{
		BaseURL: cfg.CoinGeckoBaseURL,
		APIKey:  cfg.CoinGeckoAPIKey,
		Limit:   cfg.TopMarketsLimit,
	}, snapshotCache, log)

	// Decision engines.
	indicatorService := indicators.NewService(log)
	scorer := sentiment.NewScorer(log)
	engine := allocation.NewEngine(log)
	rebalancer := rebalancing.NewAnalyzer(log)
	stopLossAnalyzer := stoploss.NewAnalyzer(log)
	scanner := opportunities.NewScanner(log, indicatorService)
	portfolioService := portfolio.NewService(log, portfolioRepo, markets, scorer, engine)

	stream := server.NewSentimentStream(log)

	// Optional S3 backups of the data directory.
	var backupService *reliability.BackupService
	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Bucket: cfg.Backup.Bucket,
			Region: cfg.Backup.Region,
			Prefix: cfg.Backup.Prefix,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 client")
		}
		backupService = reliability.NewBackupService(s3Client, cfg.DataDir, log)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("S3 backups enabled")
	}

	srv := server.New(server.Config{
		Log:         log,
		Cfg:         cfg,
		PortfolioDB: portfolioDB,
		CacheDB:     cacheDB,
		Markets:     markets,
		Settings:    settingsRepo,
		Portfolios:  portfolioService,
		Indicators:  indicatorService,
		Scorer:      scorer,
		Engine:      engine,
		Rebalancer:  rebalancer,
		StopLoss:    stopLossAnalyzer,
		Scanner:     scanner,
		Stream:      stream,
		Backups:     backupService,
	})

	// Background jobs.
	sched := scheduler.New(log)

	refreshJob := scheduler.NewRefreshJob(log, markets, scorer, stream)
	if err := sched.AddJob(cfg.RefreshCron, refreshJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.RefreshCron).Msg("Failed to register refresh job")
	}

	var backupJob scheduler.Job
	if backupService != nil {
		job := scheduler.NewBackupJob(log, backupService)
		if err := sched.AddJob(cfg.Backup.Cron, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Backup.Cron).Msg("Failed to register backup job")
		}
		backupJob = job
	}

	maintenanceJob := scheduler.NewMaintenanceJob(log, portfolioDB, cacheDB)
	if err := sched.AddJob(cfg.MaintenanceCron, maintenanceJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.MaintenanceCron).Msg("Failed to register maintenance job")
	}

	srv.SetJobs(refreshJob, backupJob, maintenanceJob)

	sched.Start()
	defer sched.Stop()

	// Warm the snapshot cache so the first request does not pay the
	// fetch latency.
	go func() {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Warn().Err(err).Msg("Initial market refresh failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Cryptofolio stopped")
}
