package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/services/ledger"
	"github.com/flash-service/flash_service/internal/infrastructure/repositories/memory"
	"github.com/flash-service/flash_service/pkg/logger"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T, opts ...memory.Option) (*ledger.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(opts...)
	return ledger.NewService(store, logger.New("debug", "test")), store
}

// fundedAccount creates an account and credits it through a manual deposit
func fundedAccount(t *testing.T, svc *ledger.Service, tier entities.Tier, usdt string) *entities.Account {
	t.Helper()
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{Tier: tier})
	require.NoError(t, err)

	if amount := d(usdt); amount.IsPositive() {
		_, err = svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: account.ID, Amount: amount, Notes: "seed"})
		require.NoError(t, err)
	}
	return account
}

func addPackage(t *testing.T, store *memory.Store, price string, active bool) *entities.Package {
	t.Helper()
	pkg := &entities.Package{
		ID:           uuid.New(),
		Name:         "Flash " + price,
		PriceUSD:     d(price),
		BTCAmount:    d("0.01"),
		DurationDays: 30,
		IsActive:     active,
	}
	require.NoError(t, store.Packages().Create(context.Background(), pkg))
	return pkg
}

func usdt(t *testing.T, svc *ledger.Service, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	balance, err := svc.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return balance.USDT
}

func assertBalance(t *testing.T, svc *ledger.Service, accountID uuid.UUID, expected string) {
	t.Helper()
	got := usdt(t, svc, accountID)
	assert.True(t, d(expected).Equal(got), "expected balance %s, got %s", expected, got)
}

// assertReconciled checks every stored balance equals the one derived from records
func assertReconciled(t *testing.T, store *memory.Store) {
	t.Helper()
	snapshots, err := store.DerivedBalances(context.Background())
	require.NoError(t, err)
	for _, s := range snapshots {
		assert.True(t, s.Stored.Equal(s.Derived), "account %s stored %s derived %s", s.AccountID, s.Stored, s.Derived)
		assert.False(t, s.Stored.IsNegative(), "account %s has negative balance", s.AccountID)
	}
}

func TestPurchase_SilverScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierSilver, "500")
	pkg := addPackage(t, store, "200", true)

	result, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)

	assert.True(t, d("14").Equal(result.Payment.Commission))
	assert.True(t, d("200").Equal(result.Payment.Amount))
	assert.Equal(t, entities.PaymentStatusCompleted, result.Payment.Status)
	assert.True(t, d("314").Equal(result.Balance.USDT))
	assertBalance(t, svc, account.ID, "314")

	stored, err := svc.GetPayment(ctx, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, stored.PackageID)
	assertReconciled(t, store)
}

func TestPurchase_GoldCommission(t *testing.T) {
	svc, store := newTestService(t)
	account := fundedAccount(t, svc, entities.TierGold, "1000")
	pkg := addPackage(t, store, "1000", true)

	result, err := svc.Purchase(context.Background(), entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)

	assert.True(t, d("100").Equal(result.Payment.Commission))
	// net debit of 900
	assertBalance(t, svc, account.ID, "100")
}

func TestPurchase_InsufficientFundsLeavesNoTrace(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "50")
	pkg := addPackage(t, store, "80", true)

	result, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsInsufficientFunds(err))

	details := apperrors.GetErrorDetails(err)
	assert.True(t, d("30").Equal(details["shortage"].(decimal.Decimal)))
	assert.True(t, d("50").Equal(details["current_balance"].(decimal.Decimal)))
	assert.True(t, d("80").Equal(details["required_amount"].(decimal.Decimal)))

	assertBalance(t, svc, account.ID, "50")
	payments, err := svc.ListPayments(ctx, account.ID, entities.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestPurchase_NotFound(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "500")
	inactive := addPackage(t, store, "10", false)

	_, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: inactive.ID})
	assert.True(t, apperrors.IsNotFound(err), "inactive package")

	_, err = svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: uuid.New()})
	assert.True(t, apperrors.IsNotFound(err), "missing package")

	active := addPackage(t, store, "10", true)
	_, err = svc.Purchase(ctx, entities.PurchaseRequest{AccountID: uuid.New(), PackageID: active.ID})
	assert.True(t, apperrors.IsNotFound(err), "missing account")

	assertBalance(t, svc, account.ID, "500")
}

func TestPurchase_FreePackage(t *testing.T) {
	svc, store := newTestService(t)
	account := fundedAccount(t, svc, entities.TierGold, "0")
	pkg := addPackage(t, store, "0", true)

	result, err := svc.Purchase(context.Background(), entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)
	assert.True(t, result.Payment.Commission.IsZero())
	assertBalance(t, svc, account.ID, "0")
}

func TestPurchase_RejectsMissingIDs(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Purchase(context.Background(), entities.PurchaseRequest{PackageID: uuid.New()})
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, "VALIDATION_ERROR", apperrors.GetErrorCode(err))
}

func TestRequestWithdrawal_InsufficientFunds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "50")

	_, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID,
		Amount:    d("80"),
		Address:   "TQ5NkXyH4dWGTbK9x7bV4nYyY5J6kDhZ2P",
		Network:   "TRC20",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientFunds(err))
	assert.True(t, d("30").Equal(apperrors.GetErrorDetails(err)["shortage"].(decimal.Decimal)))

	assertBalance(t, svc, account.ID, "50")
	withdrawals, err := svc.ListWithdrawals(ctx, account.ID, entities.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, withdrawals)
}

func TestRequestWithdrawal_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	account := fundedAccount(t, svc, entities.TierBronze, "50")

	tests := []struct {
		name string
		req  entities.CreateWithdrawalRequest
	}{
		{"zero amount", entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: decimal.Zero, Address: "addr", Network: "TRC20"}},
		{"negative amount", entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("-5"), Address: "addr", Network: "TRC20"}},
		{"missing address", entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("5"), Address: "  ", Network: "TRC20"}},
		{"unsupported network", entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("5"), Address: "addr", Network: "SOL"}},
		{"too many decimals", entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("0.0000000000000000001"), Address: "addr", Network: "TRC20"}},
		{"overflowing amount", entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("1e40"), Address: "addr", Network: "TRC20"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestWithdrawal(context.Background(), tt.req)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
	assertBalance(t, svc, account.ID, "50")
}

func TestDepositAmountBounds(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "0")

	tests := []struct {
		name   string
		amount string
		valid  bool
	}{
		{"one unit at full scale", "0.000000000000000001", true},
		{"trailing zeros beyond scale", "2.50000000000000000000", true},
		{"largest storable", "999999999999999999.999999999999999999", true},
		{"below smallest unit", "0.0000000000000000000001", false},
		{"at the upper bound", "1000000000000000000", false},
		{"exponent overflow", "1e40", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: d(tt.amount), Network: "TRC20"})
			_, manualErr := svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: uuid.New(), Amount: d(tt.amount)})
			if tt.valid {
				assert.NoError(t, err)
				assert.True(t, apperrors.IsNotFound(manualErr), "valid amount must reach the account lookup")
				return
			}
			assert.True(t, apperrors.IsInvalidInput(err), "report: %v", err)
			assert.True(t, apperrors.IsInvalidInput(manualErr), "manual: %v", manualErr)
		})
	}

	assertBalance(t, svc, account.ID, "0")
	assertReconciled(t, store)
}

func TestWithdrawal_HoldAndRefundConservation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "100")

	held, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: d("40"), Address: "0xabc", Network: "erc20",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusPending, held.Withdrawal.Status)
	assert.Equal(t, "ERC20", held.Withdrawal.Network)
	assertBalance(t, svc, account.ID, "60")

	rejected, err := svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{
		WithdrawalID: held.Withdrawal.ID, Action: entities.ResolveActionReject, Notes: "address blacklisted",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusRejected, rejected.Withdrawal.Status)
	require.NotNil(t, rejected.Withdrawal.Notes)
	assert.Equal(t, "address blacklisted", *rejected.Withdrawal.Notes)
	assert.NotNil(t, rejected.Withdrawal.ResolvedAt)
	assertBalance(t, svc, account.ID, "100")

	second, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: d("30"), Address: "0xabc", Network: "ERC20",
	})
	require.NoError(t, err)
	completed, err := svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{
		WithdrawalID: second.Withdrawal.ID, Action: entities.ResolveActionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusCompleted, completed.Withdrawal.Status)
	assertBalance(t, svc, account.ID, "70")

	assertReconciled(t, store)
}

func TestResolveWithdrawal_DoubleResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "100")

	held, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: d("25"), Address: "bc1qxyz", Network: "BTC",
	})
	require.NoError(t, err)

	_, err = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: held.Withdrawal.ID, Action: entities.ResolveActionApprove})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "75")

	for _, action := range []entities.ResolveAction{entities.ResolveActionApprove, entities.ResolveActionReject} {
		_, err = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: held.Withdrawal.ID, Action: action})
		require.Error(t, err)
		assert.True(t, apperrors.IsAlreadyProcessed(err))
		assertBalance(t, svc, account.ID, "75")
	}

	_, err = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: uuid.New(), Action: entities.ResolveActionApprove})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: held.Withdrawal.ID, Action: "maybe"})
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestDeposit_ReportThenConfirm(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "0")

	reported, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{
		AccountID: account.ID, Amount: d("25"), TxHash: "0xdeadbeef", Network: "BEP20",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.DepositStatusPending, reported.Deposit.Status)
	assertBalance(t, svc, account.ID, "0")

	pending, err := svc.ListPendingDeposits(ctx, entities.ListParams{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, reported.Deposit.ID, pending[0].ID)

	confirmed, err := svc.ConfirmDeposit(ctx, entities.ConfirmDepositRequest{DepositID: reported.Deposit.ID, Action: entities.ResolveActionApprove})
	require.NoError(t, err)
	assert.Equal(t, entities.DepositStatusConfirmed, confirmed.Deposit.Status)
	assert.True(t, d("25").Equal(confirmed.Balance.USDT))

	_, err = svc.ConfirmDeposit(ctx, entities.ConfirmDepositRequest{DepositID: reported.Deposit.ID, Action: entities.ResolveActionApprove})
	assert.True(t, apperrors.IsAlreadyProcessed(err))
	assertBalance(t, svc, account.ID, "25")

	pending, err = svc.ListPendingDeposits(ctx, entities.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, pending)
	assertReconciled(t, store)
}

func TestDeposit_RejectHasNoBalanceEffect(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "10")

	reported, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: d("500"), Network: "TRC20"})
	require.NoError(t, err)
	assert.Nil(t, reported.Deposit.TxHash)

	rejected, err := svc.ConfirmDeposit(ctx, entities.ConfirmDepositRequest{DepositID: reported.Deposit.ID, Action: entities.ResolveActionReject, Notes: "not received"})
	require.NoError(t, err)
	assert.Equal(t, entities.DepositStatusRejected, rejected.Deposit.Status)
	assertBalance(t, svc, account.ID, "10")
}

func TestDeposit_DuplicateTxHashIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "0")

	req := entities.ReportDepositRequest{AccountID: account.ID, Amount: d("5"), TxHash: "0xfeed", Network: "ERC20"}
	_, err := svc.ReportDeposit(ctx, req)
	require.NoError(t, err)

	_, err = svc.ReportDeposit(ctx, req)
	assert.True(t, apperrors.IsConflict(err))
}

func TestManualDeposit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "0")

	result, err := svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: account.ID, Amount: d("12.5"), Notes: "bank wire"})
	require.NoError(t, err)
	assert.Equal(t, entities.DepositStatusConfirmed, result.Deposit.Status)
	assert.Equal(t, entities.ManualNetwork, result.Deposit.Network)
	assert.NotNil(t, result.Deposit.ResolvedAt)
	assertBalance(t, svc, account.ID, "12.5")

	_, err = svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: account.ID, Amount: d("0")})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: uuid.New(), Amount: d("1")})
	assert.True(t, apperrors.IsNotFound(err))
}
