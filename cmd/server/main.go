package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"yard-kpi-service/internal/adapters/cache"
	"yard-kpi-service/internal/adapters/distance"
	"yard-kpi-service/internal/adapters/repositories"
	"yard-kpi-service/internal/api"
	"yard-kpi-service/internal/config"
	"yard-kpi-service/internal/location"
	"yard-kpi-service/internal/platform/db"
	"yard-kpi-service/internal/platform/obs"
	"yard-kpi-service/internal/ports"
	"yard-kpi-service/internal/services"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, distance tables, dashboard cache) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}

	logger := obs.NewLogger(cfg.Log.Level)
	metrics := obs.NewMetrics()
	obs.SetDefault(metrics)

	driver, err := db.NormalizeDriver(cfg.Database.Driver)
	if err != nil {
		logger.Fatal(err)
	}

	sqlDB, err := db.Open(driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal(err)
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repositories.Migrate(ctx, sqlDB, driver); err != nil {
		logger.Fatal(err)
	}

	dashCache, closeCache := newDashboardCache(ctx, cfg, logger)
	defer closeCache()

	normalizer := location.NewNormalizer(location.DefaultOptions())
	source := repositories.NewSQLDatasetSource(sqlDB, driver)
	results := repositories.NewSQLResultRepository(sqlDB, driver)
	rec := services.NewReconciler(source, results, distance.NewResolverFactory(normalizer, logger))
	rec.Cache = dashCache
	rec.Logger = logger
	rec.Metrics = metrics
	rec.BatchSize = cfg.Engine.ClassifyBatchSize
	rec.CacheTTL = cfg.Cache.TTL

	router := api.NewRouter(api.Deps{
		Runs:        rec,
		Results:     results,
		Distances:   source,
		NewProvider: distance.NewProviderFactory(normalizer),
		Metrics:     metrics,
		Logger:      logger,
	})

	// Reconcile runs synchronously inside the request, so writes get a long timeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

// newDashboardCache uses redis when REDIS_ADDR is configured and reachable,
// otherwise an in-process cache.
func newDashboardCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ports.DashboardCache, func()) {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemoryDashboardCache(cfg.Cache.Capacity, nil), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.Cache.RedisAddr).Warn("redis unreachable, using in-process dashboard cache")
		_ = client.Close()
		return cache.NewMemoryDashboardCache(cfg.Cache.Capacity, nil), func() {}
	}

	logger.WithField("addr", cfg.Cache.RedisAddr).Info("dashboard cache on redis")
	return cache.NewRedisDashboardCache(client, "", cfg.Cache.Capacity), func() { _ = client.Close() }
}
