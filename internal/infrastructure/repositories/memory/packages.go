package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

// PackageRepository is the catalog view of a Store
type PackageRepository struct {
	store *Store
}

var _ repositories.PackageRepository = (*PackageRepository)(nil)

// Packages returns the catalog repository backed by this store
func (s *Store) Packages() *PackageRepository {
	return &PackageRepository{store: s}
}

func (r *PackageRepository) Create(ctx context.Context, pkg *entities.Package) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[pkg.ID]; ok {
		return apperrors.ConflictError("PACKAGE", "package already exists")
	}
	now := s.now()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	s.packages[pkg.ID] = copyPackage(pkg)
	return nil
}

func (r *PackageRepository) Update(ctx context.Context, pkg *entities.Package) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.packages[pkg.ID]
	if !ok {
		return apperrors.NotFoundError("PACKAGE")
	}
	pkg.CreatedAt = existing.CreatedAt
	pkg.UpdatedAt = s.now()
	s.packages[pkg.ID] = copyPackage(pkg)
	return nil
}

func (r *PackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Package, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packages[id]
	if !ok {
		return nil, apperrors.NotFoundError("PACKAGE")
	}
	return copyPackage(p), nil
}

// ListActive returns active packages, cheapest first
func (r *PackageRepository) ListActive(ctx context.Context) ([]*entities.Package, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Package, 0, len(s.packages))
	for _, p := range s.packages {
		if p.IsActive {
			out = append(out, copyPackage(p))
		}
	}
	sortPackages(out)
	return out, nil
}

func (r *PackageRepository) ListAll(ctx context.Context, params entities.ListParams) ([]*entities.Package, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Package, 0, len(s.packages))
	for _, p := range s.packages {
		out = append(out, copyPackage(p))
	}
	sortPackages(out)
	return page(out, params), nil
}

func (r *PackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[id]; !ok {
		return apperrors.NotFoundError("PACKAGE")
	}
	for _, p := range s.payments {
		if p.PackageID == id {
			return apperrors.ConflictError("PACKAGE", "package is referenced by payments; deactivate it instead")
		}
	}
	delete(s.packages, id)
	return nil
}

func sortPackages(pkgs []*entities.Package) {
	sort.Slice(pkgs, func(i, j int) bool {
		if !pkgs[i].PriceUSD.Equal(pkgs[j].PriceUSD) {
			return pkgs[i].PriceUSD.LessThan(pkgs[j].PriceUSD)
		}
		return pkgs[i].Name < pkgs[j].Name
	})
}
