package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/internal/domain/services/catalog"
	"github.com/flash-service/flash_service/internal/domain/services/ledger"
	"github.com/flash-service/flash_service/internal/domain/services/reconciliation"
	"github.com/flash-service/flash_service/internal/infrastructure/cache"
	"github.com/flash-service/flash_service/internal/infrastructure/config"
	"github.com/flash-service/flash_service/internal/infrastructure/database"
	pgrepo "github.com/flash-service/flash_service/internal/infrastructure/repositories"
	"github.com/flash-service/flash_service/internal/infrastructure/repositories/memory"
	"github.com/flash-service/flash_service/pkg/idempotency"
	"github.com/flash-service/flash_service/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB // nil with the memory driver
	Logger *logger.Logger
	ZapLog *zap.Logger

	Cache       cache.Cache
	Store       repositories.LedgerStore
	PackageRepo repositories.PackageRepository

	ledgerService         *ledger.Service
	catalogService        *catalog.Service
	reconciliationService *reconciliation.Service
	scheduler             *reconciliation.Scheduler
	idempotencyStore      *idempotency.Store
}

// NewContainer opens storage and builds every service. Callers must Close it.
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
		ZapLog: log.Zap(),
	}

	if err := c.initializeStorage(ctx); err != nil {
		return nil, err
	}
	c.initializeCache()

	if err := c.initializeDomainServices(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) initializeStorage(ctx context.Context) error {
	if c.Config.Database.Driver == "memory" {
		c.Logger.Warn("Using in-memory ledger store; balances are lost on restart")
		store := memory.NewStore(memory.WithLockTimeout(c.Config.Database.LockTimeout()))
		c.Store = store
		c.PackageRepo = store.Packages()
		return nil
	}

	db, err := database.NewConnection(ctx, c.Config.Database, c.ZapLog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	if c.Config.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, c.Config.Database.MigrationsPath); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		c.Logger.Info("Database migrations applied", "path", c.Config.Database.MigrationsPath)
	}

	c.Store = pgrepo.NewLedgerRepository(db, c.Config.Database.LockTimeout(), c.ZapLog)
	c.PackageRepo = pgrepo.NewPackageRepository(db)
	return nil
}

// initializeCache connects to redis, falling back to a process-local cache
// when redis is disabled or unreachable outside production.
func (c *Container) initializeCache() {
	if c.Config.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&c.Config.Redis, c.ZapLog)
		if err == nil {
			c.Cache = redisCache
			return
		}
		c.Logger.Warn("Redis unavailable, using in-memory cache", "error", err)
	}
	c.Cache = cache.NewMemoryCache()
}

func (c *Container) initializeDomainServices() error {
	c.ledgerService = ledger.NewService(c.Store, c.Logger)
	c.catalogService = catalog.NewService(
		c.PackageRepo,
		c.Cache,
		time.Duration(c.Config.Ledger.PackageCacheTTL)*time.Second,
		c.Logger,
	)
	c.reconciliationService = reconciliation.NewService(c.Store, c.Logger)
	c.idempotencyStore = idempotency.NewStore(c.Cache, time.Duration(c.Config.Ledger.IdempotencyTTL)*time.Second)

	if c.Config.Reconciliation.Enabled {
		scheduler, err := reconciliation.NewScheduler(c.reconciliationService, c.Logger, reconciliation.SchedulerConfig{
			Schedule: c.Config.Reconciliation.Schedule,
		})
		if err != nil {
			return fmt.Errorf("failed to create reconciliation scheduler: %w", err)
		}
		c.scheduler = scheduler
	}

	return nil
}

// GetLedgerService returns the ledger engine
func (c *Container) GetLedgerService() *ledger.Service {
	return c.ledgerService
}

// GetCatalogService returns the package catalog
func (c *Container) GetCatalogService() *catalog.Service {
	return c.catalogService
}

// GetReconciliationService returns the reconciliation service
func (c *Container) GetReconciliationService() *reconciliation.Service {
	return c.reconciliationService
}

// GetReconciliationScheduler returns nil when reconciliation is disabled
func (c *Container) GetReconciliationScheduler() *reconciliation.Scheduler {
	return c.scheduler
}

// GetIdempotencyStore returns the idempotency key store
func (c *Container) GetIdempotencyStore() *idempotency.Store {
	return c.idempotencyStore
}

// Close releases the cache and database connections
func (c *Container) Close() error {
	var firstErr error
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
