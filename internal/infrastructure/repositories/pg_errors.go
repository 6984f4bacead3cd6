package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
)

// Postgres SQLSTATE codes the ledger cares about
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
)

// sqlState extracts the SQLSTATE from either driver's error type
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify turns a driver error into a domain error. Domain errors pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	code := sqlState(err)
	switch {
	case code == pgSerializationFailure, code == pgDeadlockDetected,
		code == pgLockNotAvailable, code == pgQueryCanceled,
		strings.HasPrefix(code, "08"):
		return apperrors.StorageFailureError(op, err)
	case code == pgUniqueViolation:
		return apperrors.ConflictError(resourceFor(op), "record already exists")
	case code == pgForeignKeyViolation:
		return apperrors.ConflictError(resourceFor(op), "record is referenced by other records")
	case code == pgCheckViolation:
		return apperrors.ConflictError(resourceFor(op), "row constraint violated")
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.StorageFailureError(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.StorageFailureError(op, err)
	}

	return apperrors.StorageFailureError(op, err).WithRetryable(false)
}

func resourceFor(op string) string {
	switch {
	case strings.Contains(op, "deposit"):
		return "DEPOSIT"
	case strings.Contains(op, "withdrawal"):
		return "WITHDRAWAL"
	case strings.Contains(op, "payment"):
		return "PAYMENT"
	case strings.Contains(op, "package"):
		return "PACKAGE"
	default:
		return "ACCOUNT"
	}
}
