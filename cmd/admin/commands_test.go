package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/services/ledger"
	"github.com/flash-service/flash_service/internal/domain/services/reconciliation"
	"github.com/flash-service/flash_service/internal/infrastructure/repositories/memory"
	"github.com/flash-service/flash_service/pkg/auth"
	"github.com/flash-service/flash_service/pkg/logger"
	"github.com/flash-service/flash_service/pkg/retry"
)

var testTokens = TokenConfig{Secret: "test-secret", Issuer: "flash_service"}

// flakyLedger fails the first manual deposit with a storage failure
type flakyLedger struct {
	LedgerOps
	failures int
	calls    int
}

func (f *flakyLedger) ManualDeposit(ctx context.Context, req entities.ManualDepositRequest) (*entities.DepositResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, apperrors.StorageFailureError("manual_deposit", errors.New("lock timeout"))
	}
	return f.LedgerOps.ManualDeposit(ctx, req)
}

func fastRetrier(maxRetries int) *retry.Retrier {
	return retry.NewRetrier(retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}, nil)
}

func newTestApp(t *testing.T) (*app, *ledger.Service, *bytes.Buffer) {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore()
	svc := ledger.NewService(store, log)
	recon := reconciliation.NewService(store, log)
	out := &bytes.Buffer{}
	a := newApp(svc, func(ctx context.Context) (*reconciliation.Report, error) {
		return recon.RunReconciliation(ctx, "manual")
	}, fastRetrier(2), testTokens, out)
	return a, svc, out
}

func TestRun_Usage(t *testing.T) {
	a, _, _ := newTestApp(t)

	assert.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"launch-rockets"}), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"manual-deposit", "--account", "nope", "--amount", "5"}), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"manual-deposit", "--bogus"}), errUsage)

	var buf bytes.Buffer
	usage(&buf)
	assert.Contains(t, buf.String(), "resolve-withdrawal")
}

func TestManualDepositAndWithdrawalFlow(t *testing.T) {
	a, svc, out := newTestApp(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{})
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, []string{"manual-deposit", "--account", account.ID.String(), "--amount", "1234.5", "--notes", "wire"}))
	assert.Contains(t, out.String(), "balance 1,234.50 USDT")

	held, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: decimal.NewFromInt(200), Address: "TXyz1234567890abcdefghijk", Network: "TRC20",
	})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"pending-withdrawals"}))
	assert.Contains(t, out.String(), held.Withdrawal.ID.String())
	assert.Contains(t, out.String(), "200.00 USDT")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"resolve-withdrawal", "--id", held.Withdrawal.ID.String(), "--action", "reject"}))
	assert.Contains(t, out.String(), "rejected")
	assert.Contains(t, out.String(), "1,234.50 USDT")

	err = a.run(ctx, []string{"resolve-withdrawal", "--id", held.Withdrawal.ID.String(), "--action", "approve"})
	require.Error(t, err)
	assert.True(t, apperrors.IsAlreadyProcessed(err))
	assert.Contains(t, describe(err), "ALREADY_PROCESSED")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"reconcile"}))
	assert.Contains(t, out.String(), "no drift")
}

func TestConfirmDepositCommand(t *testing.T) {
	a, svc, out := newTestApp(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{})
	require.NoError(t, err)
	reported, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: decimal.NewFromInt(75), TxHash: "0xbeef", Network: "TRC20"})
	require.NoError(t, err)

	require.NoError(t, a.run(ctx, []string{"pending-deposits"}))
	assert.Contains(t, out.String(), "tx=0xbeef")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"confirm-deposit", "--id", reported.Deposit.ID.String(), "--action", "approve"}))
	assert.Contains(t, out.String(), "confirmed")
	assert.Contains(t, out.String(), "75.00 USDT")
}

func TestAdjustPaymentCommand(t *testing.T) {
	a, _, out := newTestApp(t)
	ctx := context.Background()

	err := a.run(ctx, []string{"adjust-payment", "--id", "00000000-0000-0000-0000-000000000001", "--status", "failed", "--delete"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))

	err = a.run(ctx, []string{"adjust-payment", "--id", "00000000-0000-0000-0000-000000000001", "--delete"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, out.String())
}

func TestAccountCommands(t *testing.T) {
	a, svc, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"create-account", "--username", "hal", "--tier", "gold"}))
	assert.Contains(t, out.String(), "tier gold")

	accounts, err := svc.ListAccounts(ctx, entities.ListParams{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	id := accounts[0].ID.String()

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"set-kyc", "--account", id, "--status", "approved"}))
	assert.Contains(t, out.String(), "verified=true")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"set-tier", "--account", id, "--tier", "silver"}))
	assert.Contains(t, out.String(), "tier silver")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"balance", "--account", id}))
	assert.Contains(t, out.String(), "0.00 USDT")
}

func TestTokenCommand(t *testing.T) {
	a, svc, out := newTestApp(t)
	account, err := svc.CreateAccount(context.Background(), entities.CreateAccountRequest{})
	require.NoError(t, err)

	require.NoError(t, a.run(context.Background(), []string{"token", "--account", account.ID.String(), "--role", "admin", "--ttl", "1h"}))

	signed, _, _ := bytes.Cut(out.Bytes(), []byte("\n"))
	claims, err := auth.ValidateToken(string(signed), testTokens.Secret, testTokens.Issuer)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.True(t, claims.IsAdmin())

	assert.ErrorIs(t, a.run(context.Background(), []string{"token", "--account", account.ID.String(), "--role", "root"}), errUsage)
}

func TestStorageFailureIsRetried(t *testing.T) {
	a, svc, out := newTestApp(t)
	ctx := context.Background()
	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{})
	require.NoError(t, err)

	flaky := &flakyLedger{LedgerOps: svc, failures: 2}
	a.ledger = flaky
	require.NoError(t, a.run(ctx, []string{"manual-deposit", "--account", account.ID.String(), "--amount", "10"}))
	assert.Equal(t, 3, flaky.calls)
	assert.Contains(t, out.String(), "10.00 USDT")

	flaky = &flakyLedger{LedgerOps: svc, failures: 5}
	a.ledger = flaky
	err = a.run(ctx, []string{"manual-deposit", "--account", account.ID.String(), "--amount", "10"})
	require.Error(t, err)
	assert.True(t, apperrors.IsStorageFailure(err))
	assert.Equal(t, 3, flaky.calls)
	assert.Contains(t, describe(err), "nothing was written")

	balance, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(balance.USDT))
}

func TestDescribeStorageFailures(t *testing.T) {
	transient := fmt.Errorf("%w: %w", retry.ErrMaxRetriesExceeded, apperrors.StorageFailureError("manual deposit", errors.New("lock timeout")))
	assert.Contains(t, describe(transient), "after retries")

	permanent := apperrors.StorageFailureError("manual deposit", errors.New("numeric field overflow")).WithRetryable(false)
	assert.Contains(t, describe(permanent), "storage rejected the operation")
	assert.NotContains(t, describe(permanent), "after retries")
}
