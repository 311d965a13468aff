package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/curatel/telecare-scheduling/internal/api/router"
	"github.com/curatel/telecare-scheduling/internal/availability"
	"github.com/curatel/telecare-scheduling/internal/availstore"
	pgstore "github.com/curatel/telecare-scheduling/internal/availstore/postgres"
	appconfig "github.com/curatel/telecare-scheduling/internal/config"
	"github.com/curatel/telecare-scheduling/internal/http/handlers"
	"github.com/curatel/telecare-scheduling/internal/observability/metrics"
	"github.com/curatel/telecare-scheduling/internal/providers"
	"github.com/curatel/telecare-scheduling/internal/schedule"
	"github.com/curatel/telecare-scheduling/pkg/logging"
)

func main() {
	// .env is optional; real deployments configure the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telecare-scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
	}

	// Pick the availability backend: a remote store when configured, else
	// the local database, else in-memory for development.
	var store availstore.Store
	switch {
	case cfg.AvailabilityStoreURL != "":
		store = availstore.NewClient(cfg.AvailabilityStoreURL, cfg.AvailabilityStoreAPIKey, logger)
		logger.Info("using remote availability store", "url", cfg.AvailabilityStoreURL)
	case pool != nil:
		store = pgstore.NewStore(pool)
		logger.Info("using postgres availability store")
	case cfg.UseMemoryStore || cfg.Env == "development":
		store = availstore.NewInMemoryStore()
		logger.Warn("using in-memory availability store, data will not survive restarts")
	default:
		logger.Error("no availability backend configured, set DATABASE_URL or AVAILABILITY_STORE_URL")
		os.Exit(1)
	}

	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to ping redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		store = availstore.NewCachedStore(store, redisClient, cfg.CacheTTL, logger)
		logger.Info("availability cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	var providerRepo providers.Repository
	if pool != nil {
		providerRepo = providers.NewPostgresRepository(pool)
	} else {
		providerRepo = providers.NewInMemoryRepository()
	}

	schedulingMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	policy := availability.DefaultBufferPolicy()
	if cfg.SlotStepMinutes > 0 {
		policy.StepMinutes = cfg.SlotStepMinutes
	}
	reducer := availability.NewReducer(policy)

	manager := schedule.NewManager(store, reducer, schedulingMetrics, logger).
		WithWindowMonths(cfg.ScheduleWindowMonths)

	routerCfg := &router.Config{
		Logger:             logger,
		Availability:       handlers.NewAvailabilityHandler(store, logger),
		Providers:          providers.NewHandler(providerRepo, logger),
		AdminSchedule:      handlers.NewAdminScheduleHandler(manager, providerRepo, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
