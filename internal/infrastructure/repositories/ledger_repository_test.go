package repositories_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/services/ledger"
	"github.com/flash-service/flash_service/internal/infrastructure/config"
	"github.com/flash-service/flash_service/internal/infrastructure/database"
	pgrepo "github.com/flash-service/flash_service/internal/infrastructure/repositories"
	"github.com/flash-service/flash_service/pkg/logger"
)

// newPostgresLedger connects to TEST_DATABASE_URL, migrates it and returns a ledger over it.
func newPostgresLedger(t *testing.T) (*ledger.Service, *pgrepo.LedgerRepository, *pgrepo.PackageRepository) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	driver := os.Getenv("TEST_DATABASE_DRIVER")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, config.DatabaseConfig{Driver: driver, URL: url}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db.DB, "../../../migrations"))

	store := pgrepo.NewLedgerRepository(db, 2*time.Second, zap.NewNop())
	return ledger.NewService(store, logger.NewNop()), store, pgrepo.NewPackageRepository(db)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createPackage(t *testing.T, packages *pgrepo.PackageRepository, price string) *entities.Package {
	t.Helper()
	pkg := &entities.Package{
		ID:           uuid.New(),
		Name:         "Flash " + price,
		PriceUSD:     d(price),
		BTCAmount:    d("0.01"),
		DurationDays: 30,
		IsActive:     true,
	}
	require.NoError(t, packages.Create(context.Background(), pkg))
	return pkg
}

func fundedAccount(t *testing.T, svc *ledger.Service, tier entities.Tier, usdt string) *entities.Account {
	t.Helper()
	ctx := context.Background()
	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{Tier: tier})
	require.NoError(t, err)
	_, err = svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: account.ID, Amount: d(usdt)})
	require.NoError(t, err)
	return account
}

func TestPostgresLedger_PurchaseAndWithdrawal(t *testing.T) {
	svc, store, packages := newPostgresLedger(t)
	ctx := context.Background()

	account := fundedAccount(t, svc, entities.TierSilver, "500")
	pkg := createPackage(t, packages, "200")

	bought, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)
	assert.True(t, d("14").Equal(bought.Payment.Commission))
	assert.True(t, d("314").Equal(bought.Balance.USDT))

	_, err = svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: d("400"), Address: "TQn9Y2khEsLJW1ChVWFMSMeRDow5KW8uE", Network: "TRC20",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientFunds(err))

	held, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: d("100"), Address: "TQn9Y2khEsLJW1ChVWFMSMeRDow5KW8uE", Network: "TRC20",
	})
	require.NoError(t, err)
	assert.True(t, d("214").Equal(held.Balance.USDT))

	rejected, err := svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: held.Withdrawal.ID, Action: entities.ResolveActionReject})
	require.NoError(t, err)
	assert.True(t, d("314").Equal(rejected.Balance.USDT))

	_, err = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: held.Withdrawal.ID, Action: entities.ResolveActionApprove})
	assert.True(t, apperrors.IsAlreadyProcessed(err))

	snapshots, err := store.DerivedBalances(ctx)
	require.NoError(t, err)
	for _, s := range snapshots {
		if s.AccountID == account.ID {
			assert.True(t, s.Stored.Equal(s.Derived), "stored %s derived %s", s.Stored, s.Derived)
		}
	}
}

func TestPostgresLedger_ConcurrentPurchase(t *testing.T) {
	svc, _, packages := newPostgresLedger(t)
	account := fundedAccount(t, svc, entities.TierBronze, "100")
	pkg := createPackage(t, packages, "100")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Purchase(context.Background(), entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.IsInsufficientFunds(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	balance, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, d("5").Equal(balance.USDT))
}

func TestPostgresLedger_DuplicateTxHash(t *testing.T) {
	svc, _, _ := newPostgresLedger(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "1")
	hash := "0x" + uuid.NewString()

	_, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: d("5"), TxHash: hash, Network: "ERC20"})
	require.NoError(t, err)

	_, err = svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: d("5"), TxHash: hash, Network: "ERC20"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}
