// Package ledger is the balance-mutation core. Every money-moving operation
// locks what it touches, checks its preconditions, applies one balance delta
// and writes the matching record inside a single store transaction.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/pkg/logger"
	"github.com/flash-service/flash_service/pkg/metrics"
	"github.com/flash-service/flash_service/pkg/tracing"
)

const tracerName = "github.com/flash-service/flash_service/ledger"

// Operation names used for spans, metrics and logs
const (
	OpPurchase          = "purchase"
	OpRequestWithdrawal = "request_withdrawal"
	OpResolveWithdrawal = "resolve_withdrawal"
	OpReportDeposit     = "report_deposit"
	OpConfirmDeposit    = "confirm_deposit"
	OpManualDeposit     = "manual_deposit"
	OpAdjustPayment     = "adjust_payment"
	OpCreateAccount     = "create_account"
	OpUpdateAccount     = "update_account"
	OpDeleteAccount     = "delete_account"
)

// Service handles ledger operations
type Service struct {
	store  repositories.LedgerStore
	logger *logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a new ledger service
func NewService(store repositories.LedgerStore, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
		tracer: tracing.GetTracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// instrument opens a span for op and returns the context to run it under plus
// a finisher that records the outcome.
func (s *Service) instrument(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(err error, moved decimal.Decimal)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error, moved decimal.Decimal) {
		outcome := "committed"
		if err != nil {
			outcome = strings.ToLower(apperrors.GetErrorCode(err))
		}
		metrics.LedgerOperationsTotal.WithLabelValues(op, outcome).Inc()
		metrics.LedgerOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err == nil && !moved.IsZero() {
			metrics.LedgerVolumeUSDT.WithLabelValues(op).Add(moved.Abs().InexactFloat64())
		}
		tracing.EndSpan(span, err, attribute.String("ledger.outcome", outcome))

		if err != nil {
			s.logFailure(op, err, attrs)
		}
	}
}

func (s *Service) logFailure(op string, err error, attrs []attribute.KeyValue) {
	kv := []interface{}{"operation", op, "code", apperrors.GetErrorCode(err), "error", err}
	for _, a := range attrs {
		kv = append(kv, string(a.Key), a.Value.Emit())
	}

	if apperrors.IsStorageFailure(err) || apperrors.GetErrorCode(err) == "UNKNOWN_ERROR" {
		s.logger.Error("Ledger operation failed", kv...)
		return
	}
	s.logger.Warn("Ledger operation rejected", kv...)
}

func requireID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.ValidationError(field, field+" is required")
	}
	return nil
}

// requireAmount rejects non-positive amounts and amounts the ledger columns
// would round or overflow.
func requireAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ValidationError(field, field+" must be greater than zero")
	}
	if err := entities.CheckAmountPrecision(amount); err != nil {
		return apperrors.ValidationError(field, field+" "+err.Error())
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
