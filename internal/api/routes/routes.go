package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/flash-service/flash_service/docs"
	"github.com/flash-service/flash_service/internal/api/handlers"
	"github.com/flash-service/flash_service/internal/api/middleware"
	"github.com/flash-service/flash_service/internal/infrastructure/database"
	"github.com/flash-service/flash_service/internal/infrastructure/di"
	"github.com/flash-service/flash_service/pkg/idempotency"
	"github.com/flash-service/flash_service/pkg/tracing"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) (*gin.Engine, error) {
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	cfg := container.Config
	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(cfg.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	ledgerService := container.GetLedgerService()
	catalogService := container.GetCatalogService()

	checks := map[string]handlers.Pinger{"cache": container.Cache}
	if container.DB != nil {
		db := container.DB
		checks["database"] = handlers.PingFunc(func(ctx context.Context) error { return database.HealthCheck(ctx, db) })
	}
	coreHandlers := handlers.NewCoreHandlers(checks, cfg.Version, container.Logger)
	walletHandlers := handlers.NewWalletHandlers(ledgerService, catalogService, container.Logger)

	var runner handlers.ReconciliationRunner
	if scheduler := container.GetReconciliationScheduler(); scheduler != nil {
		runner = scheduler
	}
	adminHandlers := handlers.NewAdminHandlers(ledgerService, catalogService, runner, container.Logger)

	// Health checks (no auth required)
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/live", coreHandlers.Live)
	router.GET("/version", coreHandlers.Version)
	router.GET("/metrics", handlers.Metrics())

	// Swagger documentation (development only)
	if cfg.Environment != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	idem := idempotency.Middleware(container.GetIdempotencyStore(), container.ZapLog)
	verified := middleware.RequireVerified(ledgerService, container.ZapLog)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/packages", walletHandlers.ListPackages)
		v1.GET("/packages/:id", walletHandlers.GetPackage)

		wallet := v1.Group("/wallet")
		wallet.Use(middleware.Authentication(cfg.JWT))
		{
			wallet.GET("/account", walletHandlers.GetAccount)
			wallet.GET("/balance", walletHandlers.GetBalance)

			wallet.POST("/purchases", verified, idem, walletHandlers.Purchase)
			wallet.GET("/payments", walletHandlers.ListPayments)

			wallet.POST("/withdrawals", verified, idem, walletHandlers.RequestWithdrawal)
			wallet.GET("/withdrawals", walletHandlers.ListWithdrawals)
			wallet.GET("/withdrawals/:id", walletHandlers.GetWithdrawal)

			wallet.POST("/deposits", idem, walletHandlers.ReportDeposit)
			wallet.GET("/deposits", walletHandlers.ListDeposits)
			wallet.GET("/deposits/:id", walletHandlers.GetDeposit)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.Authentication(cfg.JWT))
		admin.Use(middleware.AdminAuth())
		{
			admin.POST("/accounts", adminHandlers.CreateAccount)
			admin.GET("/accounts", adminHandlers.ListAccounts)
			admin.GET("/accounts/:id", adminHandlers.GetAccount)
			admin.PUT("/accounts/:id/tier", adminHandlers.SetTier)
			admin.PUT("/accounts/:id/kyc", adminHandlers.SetKYCStatus)
			admin.DELETE("/accounts/:id", adminHandlers.DeleteAccount)

			admin.GET("/withdrawals/pending", adminHandlers.ListPendingWithdrawals)
			admin.POST("/withdrawals/:id/resolve", idem, adminHandlers.ResolveWithdrawal)

			admin.GET("/deposits/pending", adminHandlers.ListPendingDeposits)
			admin.POST("/deposits/:id/confirm", idem, adminHandlers.ConfirmDeposit)
			admin.POST("/deposits/manual", idem, adminHandlers.ManualDeposit)

			admin.GET("/payments/:id", adminHandlers.GetPayment)
			admin.PATCH("/payments/:id", adminHandlers.AdjustPayment)
			admin.DELETE("/payments/:id", adminHandlers.DeletePayment)

			admin.GET("/packages", adminHandlers.ListPackages)
			admin.POST("/packages", adminHandlers.CreatePackage)
			admin.PUT("/packages/:id", adminHandlers.UpdatePackage)
			admin.POST("/packages/:id/deactivate", adminHandlers.DeactivatePackage)
			admin.DELETE("/packages/:id", adminHandlers.DeletePackage)

			admin.POST("/reconciliation/run", adminHandlers.RunReconciliation)
			admin.GET("/reconciliation/last", adminHandlers.LastReconciliation)
		}
	}

	return router, nil
}
