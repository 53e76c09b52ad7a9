package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/crosslane/bridge_service/internal/api/routes"
	"github.com/crosslane/bridge_service/internal/infrastructure/cache"
	"github.com/crosslane/bridge_service/internal/infrastructure/config"
	"github.com/crosslane/bridge_service/internal/infrastructure/database"
	"github.com/crosslane/bridge_service/internal/infrastructure/di"
	"github.com/crosslane/bridge_service/internal/workers/settlement_monitor"
	"github.com/crosslane/bridge_service/pkg/graceful"
	"github.com/crosslane/bridge_service/pkg/logger"
	"github.com/crosslane/bridge_service/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.Tracing.Insecure,
	}

	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingConfig, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer tracingShutdown(context.Background())

	// Initialize database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	// Run migrations
	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Fatal("Failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, sqlxDB, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	// Rebuild in-memory aggregates before serving
	if err := container.Warm(context.Background()); err != nil {
		log.Fatal("Failed to warm container", "error", err)
	}

	// Initialize router with DI container
	router := routes.SetupRoutes(container)

	// Start the settlement monitor
	monitor := settlement_monitor.NewWorker(
		container.LedgerService,
		container.EventService,
		cfg.Workers.SettlementMonitorSpec,
		cfg.Workers.SweepBatchSize,
		log.Zap(),
	)
	if err := monitor.Start(); err != nil {
		log.Fatal("Failed to start settlement monitor", "error", err)
	}
	log.Info("Settlement monitor started", "spec", cfg.Workers.SettlementMonitorSpec)

	// Create server
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt and drain
	shutdown := graceful.NewManager(server, db, log)
	shutdown.Register("settlement_monitor", func(context.Context) error {
		monitor.Stop()
		return nil
	})
	shutdown.Wait()
}
