// Package catalog manages the flash BTC packages offered for sale. Purchases
// never read through this service; the ledger reads the package row inside its
// own transaction so a cached price can never be charged.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/internal/infrastructure/cache"
	"github.com/flash-service/flash_service/pkg/logger"
	"github.com/flash-service/flash_service/pkg/metrics"
)

const activePackagesKey = "catalog:packages:active"

// Service handles catalog reads and admin edits
type Service struct {
	repo   repositories.PackageRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewService creates a catalog service. A nil cache disables caching.
func NewService(repo repositories.PackageRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, logger: log}
}

// ListActive returns the packages currently for sale, cheapest first
func (s *Service) ListActive(ctx context.Context) ([]*entities.Package, error) {
	if s.cache != nil {
		var cached []*entities.Package
		err := s.cache.Get(ctx, activePackagesKey, &cached)
		switch {
		case err == nil:
			metrics.PackageCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			metrics.PackageCacheTotal.WithLabelValues("miss").Inc()
		default:
			metrics.PackageCacheTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Package cache read failed", "error", err)
		}
	}

	pkgs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, activePackagesKey, pkgs, s.ttl); err != nil {
			s.logger.Warn("Package cache write failed", "error", err)
		}
	}
	return pkgs, nil
}

// ListAll returns every package including inactive ones
func (s *Service) ListAll(ctx context.Context, params entities.ListParams) ([]*entities.Package, error) {
	return s.repo.ListAll(ctx, params.Normalize())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Package, error) {
	if id == uuid.Nil {
		return nil, apperrors.ValidationError("package_id", "package_id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Create adds a package. New packages are active unless the request says otherwise.
func (s *Service) Create(ctx context.Context, req entities.UpsertPackageRequest) (*entities.Package, error) {
	pkg := &entities.Package{
		ID:       uuid.New(),
		IsActive: true,
	}
	apply(pkg, req)
	if err := pkg.Validate(); err != nil {
		return nil, apperrors.ValidationError("package", err.Error())
	}

	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Package created", "package_id", pkg.ID, "name", pkg.Name, "price_usd", pkg.PriceUSD.String())
	return pkg, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req entities.UpsertPackageRequest) (*entities.Package, error) {
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(pkg, req)
	if err := pkg.Validate(); err != nil {
		return nil, apperrors.ValidationError("package", err.Error())
	}

	if err := s.repo.Update(ctx, pkg); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Package updated", "package_id", pkg.ID, "price_usd", pkg.PriceUSD.String(), "active", pkg.IsActive)
	return pkg, nil
}

// Deactivate takes a package off sale. Existing payments keep referencing it.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*entities.Package, error) {
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return pkg, nil
	}
	pkg.IsActive = false
	if err := s.repo.Update(ctx, pkg); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Package deactivated", "package_id", pkg.ID)
	return pkg, nil
}

// Delete removes a package that no payment references
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.ValidationError("package_id", "package_id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)

	s.logger.Info("Package deleted", "package_id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, activePackagesKey); err != nil {
		s.logger.Warn("Package cache invalidation failed", "error", err)
	}
}

func apply(pkg *entities.Package, req entities.UpsertPackageRequest) {
	pkg.Name = strings.TrimSpace(req.Name)
	pkg.Description = strings.TrimSpace(req.Description)
	pkg.PriceUSD = req.PriceUSD
	pkg.BTCAmount = req.BTCAmount
	pkg.DurationDays = req.DurationDays
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}
}
