package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evyataryagoni/geolookup/internal/cache"
	"github.com/evyataryagoni/geolookup/internal/config"
	"github.com/evyataryagoni/geolookup/internal/handler"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/refresh"
	"github.com/evyataryagoni/geolookup/internal/router"
	"github.com/evyataryagoni/geolookup/internal/service"
	"github.com/evyataryagoni/geolookup/internal/snapshot"
	"github.com/evyataryagoni/geolookup/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	appConfig := config.Load()

	appLogger := setupLogger(appConfig)
	if err := appConfig.Validate(); err != nil {
		appLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsCollector := setupMetrics(appLogger)

	history := setupHistory(appConfig, appLogger)
	defer history.Close()

	// Snapshot and refresh loop
	holder := snapshot.NewHolder()
	manager := snapshot.NewManager(appConfig.DBPath(), holder, metricsCollector, appLogger)
	updater := refresh.NewUpdater(appConfig.UpdaterCommand, appConfig.UpdaterArgs, appConfig.GeoIPDir, appConfig.UpdaterTimeout, appLogger)
	scheduler := refresh.NewScheduler(updater, manager, history, appConfig.RefreshInterval, metricsCollector, appLogger)

	loadSnapshot(ctx, appConfig, scheduler, manager, appLogger)

	go scheduler.Run(ctx)
	if appConfig.WatchDB {
		startWatcher(ctx, appConfig, manager, appLogger)
	}

	// Build application layers
	dataStore := setupDataStore(appConfig, holder, metricsCollector, appLogger)
	ipService := service.NewIPService(dataStore, metricsCollector, appLogger)
	defer ipService.Close()

	ipHandler := handler.NewIPHandler(ipService)
	healthHandler := handler.NewHealthHandler(func() error {
		if !holder.Loaded() {
			return store.ErrNotReady
		}
		return nil
	})
	appRouter := router.SetupRouter(ipHandler, healthHandler, metricsCollector, prometheus.DefaultGatherer, appLogger)

	startServer(ctx, appConfig, appRouter, appLogger)
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:      appConfig.LogLevel,
		Pretty:     appConfig.LogPretty,
		OutputFile: appConfig.LogFile,
	})

	appLogger.Info().Msg("Starting geolookup server...")
	appLogger.Info().
		Str("addr", appConfig.Addr()).
		Str("db_path", appConfig.DBPath()).
		Str("updater", appConfig.UpdaterCommand).
		Dur("refresh_interval", appConfig.RefreshInterval).
		Bool("update_on_start", appConfig.UpdateOnStart).
		Bool("watch_db", appConfig.WatchDB).
		Str("cache_type", appConfig.CacheType).
		Bool("refresh_history", appConfig.RefreshHistoryDSN != "").
		Msg("Configuration loaded")

	return appLogger
}

// setupMetrics initializes the Prometheus metrics collector
func setupMetrics(log *logger.Logger) *metrics.Metrics {
	metricsCollector := metrics.New()
	log.Info().Msg("Metrics initialized")
	return metricsCollector
}

// setupHistory connects the refresh history database when one is configured
// A database that cannot be reached disables history; it never stops the server.
func setupHistory(appConfig *config.Config, log *logger.Logger) refresh.History {
	if appConfig.RefreshHistoryDSN == "" {
		return refresh.NopHistory{}
	}

	history, err := refresh.NewMySQLHistory(appConfig.RefreshHistoryDSN)
	if err != nil {
		log.Error().Err(err).Msg("Refresh history unavailable, continuing without it")
		return refresh.NopHistory{}
	}

	if last, err := history.Last(context.Background()); err == nil {
		log.Info().
			Time("started_at", last.StartedAt).
			Str("outcome", string(last.Outcome)).
			Int("exit_code", last.ExitCode).
			Msg("Last recorded refresh run")
	}

	log.Info().Msg("Refresh history initialized")
	return history
}

// loadSnapshot runs the startup update, then opens the database
// A missing or unreadable database at this point is fatal.
func loadSnapshot(ctx context.Context, appConfig *config.Config, scheduler *refresh.Scheduler, manager *snapshot.Manager, log *logger.Logger) {
	if appConfig.UpdateOnStart {
		// Publishes the snapshot on success
		scheduler.Fire(ctx)
	}

	if manager.Holder().Loaded() {
		return
	}

	if err := manager.Load(); err != nil {
		log.Fatal().Err(err).Str("path", manager.Path()).Msg("Failed to open geolocation database")
	}
}

// startWatcher reloads the snapshot when another process replaces the file
func startWatcher(ctx context.Context, appConfig *config.Config, manager *snapshot.Manager, log *logger.Logger) {
	watcher, err := snapshot.NewWatcher(manager, appConfig.WatchDebounce, log)
	if err != nil {
		log.Error().Err(err).Msg("Database file watcher unavailable")
		return
	}

	go func() {
		defer watcher.Close()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Database file watcher stopped")
		}
	}()
}

// setupDataStore builds the lookup store, with a cache in front when configured
func setupDataStore(appConfig *config.Config, holder *snapshot.Holder, m *metrics.Metrics, log *logger.Logger) store.Store {
	var dataStore store.Store = store.NewMMDBStore(holder)

	recordCache, err := cache.NewCache(cache.CacheConfig{
		Type:          appConfig.CacheType,
		Size:          appConfig.CacheSize,
		TTL:           appConfig.CacheTTL,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Str("type", appConfig.CacheType).Msg("Failed to initialize record cache")
	}
	if recordCache == nil {
		return dataStore
	}

	log.Info().Str("type", recordCache.Name()).Msg("Record cache initialized")
	return store.NewCachedStore(dataStore, recordCache, m, log)
}

// startServer serves HTTP until ctx is cancelled, then drains in-flight requests
func startServer(ctx context.Context, appConfig *config.Config, appRouter http.Handler, log *logger.Logger) {
	server := &http.Server{
		Addr:              appConfig.Addr(),
		Handler:           appRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info().
		Str("addr", appConfig.Addr()).
		Str("api_endpoint", "/get-ip-info/{ip}").
		Str("health_check", "/health").
		Str("metrics", "/metrics").
		Msg("Server is running")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}
