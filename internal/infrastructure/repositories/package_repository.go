package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

// PackageRepository handles package catalog persistence
type PackageRepository struct {
	db *sqlx.DB
}

var _ repositories.PackageRepository = (*PackageRepository)(nil)

// NewPackageRepository creates a new package repository
func NewPackageRepository(db *sqlx.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// Create inserts a new package
func (r *PackageRepository) Create(ctx context.Context, pkg *entities.Package) error {
	now := time.Now()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO packages (id, name, description, price_usd, btc_amount, duration_days, is_active, created_at, updated_at)
		VALUES (:id, :name, :description, :price_usd, :btc_amount, :duration_days, :is_active, :created_at, :updated_at)`, pkg)
	return classify("create package", err)
}

// Update overwrites the mutable package fields
func (r *PackageRepository) Update(ctx context.Context, pkg *entities.Package) error {
	pkg.UpdatedAt = time.Now()

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE packages
		SET name = :name, description = :description, price_usd = :price_usd, btc_amount = :btc_amount,
		    duration_days = :duration_days, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, pkg)
	if err != nil {
		return classify("update package", err)
	}
	return requireRow(res, "PACKAGE")
}

// GetByID retrieves a package by ID, active or not
func (r *PackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Package, error) {
	var pkg entities.Package
	err := r.db.GetContext(ctx, &pkg, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("PACKAGE")
		}
		return nil, classify("get package", err)
	}
	return &pkg, nil
}

// ListActive lists purchasable packages, cheapest first
func (r *PackageRepository) ListActive(ctx context.Context) ([]*entities.Package, error) {
	pkgs := []*entities.Package{}
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE is_active
		ORDER BY price_usd, name`)
	if err != nil {
		return nil, classify("list packages", err)
	}
	return pkgs, nil
}

// ListAll lists the whole catalog for the back office
func (r *PackageRepository) ListAll(ctx context.Context, params entities.ListParams) ([]*entities.Package, error) {
	params = params.Normalize()
	pkgs := []*entities.Package{}
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT `+packageColumns+`
		FROM packages
		ORDER BY price_usd, name
		LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list packages", err)
	}
	return pkgs, nil
}

// Delete removes a package nobody has bought. The payments foreign key refuses the rest.
func (r *PackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		if sqlState(err) == pgForeignKeyViolation {
			return apperrors.ConflictError("PACKAGE", "package is referenced by payments; deactivate it instead")
		}
		return classify("delete package", err)
	}
	return requireRow(res, "PACKAGE")
}
