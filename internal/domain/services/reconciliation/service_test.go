package reconciliation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flash-service/flash_service/internal/domain/entities"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/internal/domain/services/ledger"
	"github.com/flash-service/flash_service/internal/infrastructure/repositories/memory"
	"github.com/flash-service/flash_service/pkg/logger"
)

func seedAccount(t *testing.T, svc *ledger.Service, amount string) *entities.Account {
	t.Helper()
	ctx := context.Background()
	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{Tier: entities.TierSilver})
	require.NoError(t, err)
	_, err = svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: account.ID, Amount: decimal.RequireFromString(amount)})
	require.NoError(t, err)
	return account
}

func TestRunReconciliation_Clean(t *testing.T) {
	store := memory.NewStore()
	log := logger.New("debug", "test")
	ledgerSvc := ledger.NewService(store, log)
	seedAccount(t, ledgerSvc, "250")
	seedAccount(t, ledgerSvc, "10")

	svc := NewService(store, log)
	assert.Nil(t, svc.LastReport())

	report, err := svc.RunReconciliation(context.Background(), "manual")
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Equal(t, 2, report.AccountsChecked)
	assert.True(t, report.TotalDrift.IsZero())
	assert.Same(t, report, svc.LastReport())
}

func TestRunReconciliation_DetectsDrift(t *testing.T) {
	store := memory.NewStore()
	log := logger.New("debug", "test")
	ledgerSvc := ledger.NewService(store, log)
	drifted := seedAccount(t, ledgerSvc, "100")
	seedAccount(t, ledgerSvc, "40")

	// a balance change with no record behind it
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.LedgerTx) error {
		if _, err := tx.LockAccount(ctx, drifted.ID); err != nil {
			return err
		}
		_, err := tx.ApplyDelta(ctx, drifted.ID, decimal.RequireFromString("-12.5"), decimal.Zero)
		return err
	})
	require.NoError(t, err)

	report, err := NewService(store, log).RunReconciliation(context.Background(), "manual")
	require.NoError(t, err)
	assert.False(t, report.Passed())
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, drifted.ID, report.Mismatches[0].AccountID)
	assert.True(t, decimal.RequireFromString("-12.5").Equal(report.Mismatches[0].Drift()))
	assert.True(t, decimal.RequireFromString("12.5").Equal(report.TotalDrift))
}

type failingReader struct {
	repositories.RecordReader
}

func (failingReader) DerivedBalances(context.Context) ([]*repositories.BalanceSnapshot, error) {
	return nil, errors.New("connection reset")
}

func TestRunReconciliation_ReaderFailure(t *testing.T) {
	svc := NewService(failingReader{}, logger.New("debug", "test"))
	_, err := svc.RunReconciliation(context.Background(), "manual")
	require.Error(t, err)
	assert.Nil(t, svc.LastReport())
}

func TestScheduler(t *testing.T) {
	store := memory.NewStore()
	log := logger.New("debug", "test")
	svc := NewService(store, log)

	_, err := NewScheduler(svc, log, SchedulerConfig{Schedule: "not a schedule"})
	assert.Error(t, err)

	scheduler, err := NewScheduler(svc, log, SchedulerConfig{Schedule: "@every 1h"})
	require.NoError(t, err)
	scheduler.Start()

	report, err := scheduler.RunManualReconciliation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manual", report.RunType)

	require.NoError(t, scheduler.Shutdown(time.Second))
	require.NoError(t, scheduler.Shutdown(time.Second))
}
