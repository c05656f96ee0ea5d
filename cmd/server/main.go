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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/forecast-ai-go/internal/api"
	"github.com/irfndi/forecast-ai-go/internal/api/handlers"
	"github.com/irfndi/forecast-ai-go/internal/cache"
	"github.com/irfndi/forecast-ai-go/internal/config"
	"github.com/irfndi/forecast-ai-go/internal/database"
	"github.com/irfndi/forecast-ai-go/internal/forecast"
	"github.com/irfndi/forecast-ai-go/internal/logging"
	"github.com/irfndi/forecast-ai-go/internal/middleware"
	"github.com/irfndi/forecast-ai-go/internal/services"
	"github.com/irfndi/forecast-ai-go/internal/telemetry"
)

const serviceName = "forecast-ai-go"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	version := cfg.Telemetry.ServiceVersion
	if version == "" {
		version = telemetry.ServiceVersion
	}

	provider, err := telemetry.InitTelemetry(ctx, telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	eventLogger, otlpLogger := logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		LogLevel:       cfg.Telemetry.LogLevel,
	})
	logger := logging.NewLogrusLogger(cfg.LogLevel, cfg.Environment)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shutdown telemetry")
		}
		if otlpLogger != nil {
			if err := otlpLogger.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("Failed to shutdown OTLP logger")
			}
		}
	}()

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	querier := database.NewTracedQuerier(db.Pool)
	if err := database.EnsureSchema(ctx, querier); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	redis, err := database.NewRedisConnection(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redis.Close()

	app, err := newApplication(cfg, database.NewJobRepository(querier), redis, logger)
	if err != nil {
		return err
	}

	if err := app.cleanup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cleanup service: %w", err)
	}
	defer app.cleanup.Stop()

	router := newRouter(cfg, app, db, redis, version)
	srv := newHTTPServer(cfg.Server, router)

	serverErr := make(chan error, 1)
	go func() {
		eventLogger.LogStartup(serviceName, version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	eventLogger.LogShutdown(serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	app.forecasts.Wait()

	logger.Info("Server exited gracefully")
	return nil
}

// application holds the wired services.
type application struct {
	guard     *services.ResourceGuard
	metrics   *services.Metrics
	forecasts *services.ForecastService
	insights  *services.InsightService
	analytics *services.AnalyticsService
	cleanup   *services.CleanupService
}

func newApplication(cfg *config.Config, store services.JobStore, redis *database.RedisClient, logger *logrus.Logger) (*application, error) {
	prepared, err := cache.NewPreparedCache(cfg.Forecast.PreparedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create prepared series cache: %w", err)
	}
	results := cache.NewResultCache(redis.Client, cfg.Cache.ForecastTTL, cfg.Cache.InsightsTTL, logger)

	guard := services.NewResourceGuard(services.ResourceGuardConfig{
		MemoryThresholdPercent: cfg.Forecast.MemoryThresholdPercent,
		MaxConcurrentRuns:      cfg.Forecast.MaxConcurrentRuns,
	}, logger)
	metrics := services.NewMetrics()

	forecasts := services.NewForecastService(services.ForecastServiceOptions{
		Store:          store,
		Registry:       forecast.NewDefaultRegistry(logger, cfg.Forecast.TreeEnsembleEnabled, guard),
		Results:        results,
		Prepared:       prepared,
		Guard:          guard,
		Notifier:       services.NewNotificationService(cfg.Telegram, logger),
		Metrics:        metrics,
		Logger:         logger,
		DefaultHorizon: cfg.Forecast.DefaultHorizon,
		Timeout:        cfg.Forecast.Timeout,
	})

	return &application{
		guard:     guard,
		metrics:   metrics,
		forecasts: forecasts,
		insights:  services.NewInsightService(store, results, forecasts, logger),
		analytics: services.NewAnalyticsService(forecasts),
		cleanup:   services.NewCleanupService(store, cfg.Cleanup, logger),
	}, nil
}

func newRouter(cfg *config.Config, app *application, db, redis handlers.HealthChecker, version string) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.TelemetryMiddleware())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	api.SetupRoutes(router, api.Dependencies{
		Jobs:      app.forecasts,
		Forecasts: app.forecasts,
		Insights:  app.insights,
		Analytics: app.analytics,
		Database:  db,
		Redis:     redis,
		Host:      app.guard,
		Metrics:   app.metrics.Registry,
		Security:  cfg.Security,
		Version:   version,
	})
	return router
}

// newHTTPServer applies the configured timeouts. WriteTimeout must cover a
// full forecast run.
func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 120 * time.Second
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
