package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flash-service/flash_service/internal/api/routes"
	"github.com/flash-service/flash_service/internal/infrastructure/config"
	"github.com/flash-service/flash_service/internal/infrastructure/di"
	"github.com/flash-service/flash_service/pkg/graceful"
	"github.com/flash-service/flash_service/pkg/logger"
	"github.com/flash-service/flash_service/pkg/metrics"
	"github.com/flash-service/flash_service/pkg/tracing"
)

// @title Flash Service API
// @version 1.0
// @description Wallet ledger for flash BTC package sales

// @contact.name API Support

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Initialize OpenTelemetry tracing
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		CollectorURL:   cfg.Tracing.CollectorURL,
		Environment:    cfg.Environment,
		ServiceVersion: cfg.Version,
		SampleRate:     cfg.Tracing.SampleRate,
		Insecure:       cfg.Tracing.Insecure,
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer tracingShutdown(context.Background())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container; opens storage and runs migrations
	container, err := di.NewContainer(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router, err := routes.SetupRoutes(container)
	if err != nil {
		log.Fatal("Failed to set up routes", "error", err)
	}

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	shutdown := graceful.NewShutdownManager(server, time.Duration(cfg.Server.ShutdownTimeout)*time.Second, log)

	if scheduler := container.GetReconciliationScheduler(); scheduler != nil {
		scheduler.Start()
		shutdown.Register(scheduler)
	}
	shutdown.RegisterCloser("container", container)

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"database_driver", cfg.Database.Driver,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Pool metrics
	if container.DB != nil {
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for range ticker.C {
				stats := container.DB.Stats()
				metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
				metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
				metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
			}
		}()
	}

	shutdown.WaitForShutdown()
	log.Info("Server exited gracefully")
}
