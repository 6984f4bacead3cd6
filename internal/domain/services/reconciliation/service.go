// Package reconciliation checks that every stored balance matches the balance
// derived from the account's ledger records.
package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/pkg/logger"
	"github.com/flash-service/flash_service/pkg/metrics"
	"github.com/flash-service/flash_service/pkg/tracing"
)

// Report is the outcome of one reconciliation run
type Report struct {
	ID              uuid.UUID                       `json:"id"`
	RunType         string                          `json:"run_type"`
	StartedAt       time.Time                       `json:"started_at"`
	CompletedAt     time.Time                       `json:"completed_at"`
	AccountsChecked int                             `json:"accounts_checked"`
	Mismatches      []*repositories.BalanceSnapshot `json:"mismatches"`
	TotalDrift      decimal.Decimal                 `json:"total_drift_usdt"`
}

// Passed reports whether no account drifted
func (r *Report) Passed() bool {
	return len(r.Mismatches) == 0
}

// Service handles reconciliation operations
type Service struct {
	reader repositories.RecordReader
	logger *logger.Logger
	now    func() time.Time

	runsCounter       metric.Int64Counter
	driftCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	mu   sync.RWMutex
	last *Report
}

// NewService creates a new reconciliation service
func NewService(reader repositories.RecordReader, log *logger.Logger) *Service {
	s := &Service{
		reader: reader,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := s.initInstruments(otel.Meter("reconciliation.service")); err != nil {
		log.Warn("Falling back to no-op reconciliation instruments", "error", err)
		_ = s.initInstruments(noop.NewMeterProvider().Meter("reconciliation.service"))
	}
	return s
}

func (s *Service) initInstruments(meter metric.Meter) error {
	var err error
	s.runsCounter, err = meter.Int64Counter(
		"reconciliation.runs.total",
		metric.WithDescription("Total number of reconciliation runs"),
	)
	if err != nil {
		return fmt.Errorf("failed to create runs counter: %w", err)
	}

	s.driftCounter, err = meter.Int64Counter(
		"reconciliation.drifted_accounts.total",
		metric.WithDescription("Total number of drifted accounts found across runs"),
	)
	if err != nil {
		return fmt.Errorf("failed to create drift counter: %w", err)
	}

	s.durationHistogram, err = meter.Float64Histogram(
		"reconciliation.duration.seconds",
		metric.WithDescription("Reconciliation duration in seconds"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return nil
}

// RunReconciliation compares stored and derived balances for every account.
// Drift is reported, never corrected: fixing a balance is an admin decision.
func (s *Service) RunReconciliation(ctx context.Context, runType string) (report *Report, err error) {
	ctx, span := otel.Tracer("reconciliation.service").Start(ctx, "RunReconciliation")
	span.SetAttributes(attribute.String("run_type", runType))
	defer func() { tracing.EndSpan(span, err) }()

	report = &Report{
		ID:         uuid.New(),
		RunType:    runType,
		StartedAt:  s.now(),
		Mismatches: []*repositories.BalanceSnapshot{},
		TotalDrift: decimal.Zero,
	}

	runAttrs := metric.WithAttributes(attribute.String("run_type", runType))
	s.runsCounter.Add(ctx, 1, runAttrs)

	snapshots, err := s.reader.DerivedBalances(ctx)
	if err != nil {
		metrics.ReconciliationRunsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Failed to derive balances", "run_type", runType, "error", err)
		return nil, fmt.Errorf("failed to derive balances: %w", err)
	}

	for _, snap := range snapshots {
		snap.CheckedAt = report.StartedAt
		drift := snap.Drift()
		if drift.IsZero() {
			continue
		}
		report.Mismatches = append(report.Mismatches, snap)
		report.TotalDrift = report.TotalDrift.Add(drift.Abs())

		s.logger.Warn("Balance drift detected",
			"run_id", report.ID,
			"account_id", snap.AccountID,
			"stored", snap.Stored.String(),
			"derived", snap.Derived.String(),
			"drift", drift.String(),
		)
	}
	report.AccountsChecked = len(snapshots)
	report.CompletedAt = s.now()

	result := "passed"
	if !report.Passed() {
		result = "drift"
	}
	metrics.ReconciliationRunsTotal.WithLabelValues(result).Inc()
	metrics.ReconciliationMismatchedAccounts.Set(float64(len(report.Mismatches)))
	metrics.ReconciliationDriftUSDT.Set(report.TotalDrift.InexactFloat64())
	s.driftCounter.Add(ctx, int64(len(report.Mismatches)), runAttrs)
	s.durationHistogram.Record(ctx, report.CompletedAt.Sub(report.StartedAt).Seconds(), runAttrs)
	span.SetAttributes(
		attribute.Int("accounts_checked", report.AccountsChecked),
		attribute.Int("mismatches", len(report.Mismatches)),
	)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	return report, nil
}

// LastReport returns the most recent completed run, or nil before the first one
func (s *Service) LastReport() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
