package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/put-screener/internal/clients/yahoo"
	"github.com/aristath/put-screener/internal/config"
	"github.com/aristath/put-screener/internal/database"
	"github.com/aristath/put-screener/internal/modules/cleanup"
	"github.com/aristath/put-screener/internal/modules/history"
	"github.com/aristath/put-screener/internal/modules/metrics"
	"github.com/aristath/put-screener/internal/modules/screener"
	"github.com/aristath/put-screener/internal/modules/settings"
	"github.com/aristath/put-screener/internal/modules/universe"
	"github.com/aristath/put-screener/internal/reliability"
	"github.com/aristath/put-screener/internal/scheduler"
	"github.com/aristath/put-screener/internal/server"
	"github.com/aristath/put-screener/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("Starting put-screener")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Reconfigure logging per environment
	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	// Initialize databases
	// Architecture: universe, config, history, results

	// 1. universe.db - Security universe (symbols, sectors, activity flags)
	universeDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("universe.db"),
		Profile: database.ProfileStandard,
		Name:    "universe",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize universe database")
	}
	defer universeDB.Close()

	// 2. config.db - Application settings
	configDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config database")
	}
	defer configDB.Close()

	// 3. history.db - Daily bars, derived metrics, sync tracking
	historyDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history database")
	}
	defer historyDB.Close()

	// 4. results.db - Screening runs and results (regenerable)
	resultsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("results.db"),
		Profile: database.ProfileCache,
		Name:    "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize results database")
	}
	defer resultsDB.Close()

	// Apply schemas to all databases
	for _, db := range []*database.DB{universeDB, configDB, historyDB, resultsDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to apply schema")
		}
	}

	// The screener runner is shared between the API and the scheduler so
	// manual and scheduled runs cannot overlap
	securityRepo := universe.NewRepository(universeDB.Conn(), log)
	settingsRepo := settings.NewRepository(configDB.Conn(), log)
	metricsRepo := metrics.NewRepository(historyDB.Conn(), log)
	screenerRepo := screener.NewRepository(resultsDB.Conn(), log)

	screenerService := screener.NewService(screenerRepo, securityRepo, metricsRepo, yahoo.NewClient(log), settingsRepo, log)
	runner := screener.NewRunner(screenerService, log)

	// Database health checker, shared by the API and the db_health job
	healthChecker := reliability.NewHealthChecker(log, universeDB, configDB, historyDB, resultsDB)

	// Initialize scheduler
	sched := scheduler.New(log)
	if cfg.EnableScheduler {
		sched.Start()
		defer sched.Stop()
	} else {
		log.Warn().Msg("Scheduler disabled, jobs can only be triggered manually")
	}

	// Register background jobs
	if err := registerJobs(sched, universeDB, configDB, historyDB, runner, healthChecker, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:          cfg.Port,
		Log:           log,
		UniverseDB:    universeDB,
		ConfigDB:      configDB,
		HistoryDB:     historyDB,
		ResultsDB:     resultsDB,
		Config:        cfg,
		DevMode:       cfg.DevMode,
		Scheduler:     sched,
		Runner:        runner,
		HealthChecker: healthChecker,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerJobs wires the background jobs and their schedules.
// All times are UTC. The daily chain is price sync, then metrics, then
// the screener, each with enough slack for the previous step to finish.
func registerJobs(
	sched *scheduler.Scheduler,
	universeDB, configDB, historyDB *database.DB,
	runner *screener.Runner,
	healthChecker *reliability.HealthChecker,
	log zerolog.Logger,
) error {
	// Repositories and services shared by the jobs
	securityRepo := universe.NewRepository(universeDB.Conn(), log)
	settingsRepo := settings.NewRepository(configDB.Conn(), log)
	historyRepo := history.NewRepository(historyDB.Conn(), log)
	metricsRepo := metrics.NewRepository(historyDB.Conn(), log)

	syncService := history.NewSyncService(historyRepo, securityRepo, yahoo.NewNativeClient(log), settingsRepo, log)
	metricsService := metrics.NewService(metricsRepo, securityRepo, historyRepo, yahoo.NewClient(log), settingsRepo, log)
	cleanupService := cleanup.NewService(securityRepo, historyRepo, metricsRepo, log)

	// Job 1: Price sync (daily at 22:30, after the US close)
	priceSync := scheduler.NewPriceSyncJob(scheduler.PriceSyncConfig{
		Log:    log,
		Syncer: syncService,
	})
	if err := sched.AddJob("0 30 22 * * *", priceSync); err != nil {
		return fmt.Errorf("failed to register price_sync job: %w", err)
	}

	// Job 2: Metrics calculation (daily at 23:15)
	metricsCalc := scheduler.NewMetricsCalcJob(scheduler.MetricsCalcConfig{
		Log:        log,
		Calculator: metricsService,
	})
	if err := sched.AddJob("0 15 23 * * *", metricsCalc); err != nil {
		return fmt.Errorf("failed to register metrics_calc job: %w", err)
	}

	// Job 3: Screener (daily at 23:45)
	screenerJob := scheduler.NewScreenerJob(scheduler.ScreenerJobConfig{
		Log:    log,
		Runner: runner,
	})
	if err := sched.AddJob("0 45 23 * * *", screenerJob); err != nil {
		return fmt.Errorf("failed to register screener job: %w", err)
	}

	// Job 4: History cleanup (Sundays at 3:00 AM)
	historyCleanup := scheduler.NewHistoryCleanupJob(scheduler.HistoryCleanupConfig{
		Log:        log,
		Cleaner:    cleanupService,
		Maintainer: healthChecker,
	})
	if err := sched.AddJob("0 0 3 * * SUN", historyCleanup); err != nil {
		return fmt.Errorf("failed to register history_cleanup job: %w", err)
	}

	// Job 5: Database health (daily at 4:00 AM)
	dbHealth := scheduler.NewDBHealthJob(scheduler.DBHealthConfig{
		Log:        log,
		Maintainer: healthChecker,
	})
	if err := sched.AddJob("0 0 4 * * *", dbHealth); err != nil {
		return fmt.Errorf("failed to register db_health job: %w", err)
	}

	return nil
}
