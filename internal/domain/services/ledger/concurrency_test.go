package ledger_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/internal/infrastructure/repositories/memory"
)

func TestPurchase_ConcurrentRace(t *testing.T) {
	svc, store := newTestService(t)
	account := fundedAccount(t, svc, entities.TierBronze, "100")
	pkg := addPackage(t, store, "100", true)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		errs      = make([]error, buyers)
		successes = make([]*entities.PurchaseResult, buyers)
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			successes[i], errs[i] = svc.Purchase(context.Background(), entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
		}(i)
	}
	close(start)
	wg.Wait()

	committed := 0
	for i := 0; i < buyers; i++ {
		if errs[i] == nil {
			committed++
			continue
		}
		assert.True(t, apperrors.IsInsufficientFunds(errs[i]), "unexpected error: %v", errs[i])
	}
	assert.Equal(t, 1, committed)

	// one purchase: 100 - 100 + 5 commission
	assertBalance(t, svc, account.ID, "5")
	payments, err := svc.ListPayments(context.Background(), account.ID, entities.ListParams{})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assertReconciled(t, store)
}

func TestLedger_RandomConcurrentTrafficKeepsInvariants(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	accounts := []*entities.Account{
		fundedAccount(t, svc, entities.TierBronze, "300"),
		fundedAccount(t, svc, entities.TierSilver, "150"),
		fundedAccount(t, svc, entities.TierGold, "75"),
	}
	packages := []*entities.Package{
		addPackage(t, store, "20", true),
		addPackage(t, store, "55.5", true),
		addPackage(t, store, "120", true),
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 6; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 40; i++ {
				account := accounts[rng.Intn(len(accounts))]
				switch rng.Intn(4) {
				case 0:
					pkg := packages[rng.Intn(len(packages))]
					_, _ = svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
				case 1:
					res, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
						AccountID: account.ID, Amount: d("7.25"), Address: "addr", Network: "TRC20",
					})
					if err == nil {
						action := entities.ResolveActionApprove
						if rng.Intn(2) == 0 {
							action = entities.ResolveActionReject
						}
						_, _ = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: res.Withdrawal.ID, Action: action})
					}
				case 2:
					res, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: d("3"), Network: "BEP20"})
					if err == nil {
						_, _ = svc.ConfirmDeposit(ctx, entities.ConfirmDepositRequest{DepositID: res.Deposit.ID, Action: entities.ResolveActionApprove})
					}
				case 3:
					payments, err := svc.ListPayments(ctx, account.ID, entities.ListParams{Limit: 1})
					if err == nil && len(payments) > 0 {
						status := entities.PaymentStatusFailed
						_, _ = svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: payments[0].ID, NewStatus: &status})
					}
				}
			}
		}(int64(worker + 1))
	}
	wg.Wait()

	assertReconciled(t, store)
}

func TestLockTimeoutSurfacesAsStorageFailure(t *testing.T) {
	svc, store := newTestService(t, memory.WithLockTimeout(20*time.Millisecond))
	account := fundedAccount(t, svc, entities.TierBronze, "100")
	pkg := addPackage(t, store, "10", true)

	locked := make(chan struct{})
	release := make(chan struct{})
	holderDone := make(chan error, 1)
	go func() {
		holderDone <- store.WithinTx(context.Background(), func(ctx context.Context, tx repositories.LedgerTx) error {
			if _, err := tx.LockAccount(ctx, account.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := svc.Purchase(context.Background(), entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.Error(t, err)
	assert.True(t, apperrors.IsStorageFailure(err))
	assert.True(t, apperrors.ShouldRetry(err))

	close(release)
	require.NoError(t, <-holderDone)

	assertBalance(t, svc, account.ID, "100")

	// retry after the lock is gone succeeds
	_, err = svc.Purchase(context.Background(), entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "90.5")
}

func TestFailedTransactionDiscardsStagedWrites(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()
	accountID := uuid.New()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		require.NoError(t, tx.InsertAccount(ctx, &entities.Account{ID: accountID, Tier: entities.TierBronze}))
		return apperrors.ValidationError("x", "abort")
	})
	require.Error(t, err)

	_, err = store.GetAccount(ctx, accountID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestResolveWithdrawal_ConcurrentRejectsRefundOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "100")

	held, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{
		AccountID: account.ID, Amount: d("60"), Address: "addr", Network: "TRC20",
	})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "40")

	const resolvers = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, resolvers)
	)
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{
				WithdrawalID: held.Withdrawal.ID, Action: entities.ResolveActionReject,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	resolved := 0
	for _, err := range errs {
		if err == nil {
			resolved++
			continue
		}
		assert.True(t, apperrors.IsAlreadyProcessed(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, resolved)

	// refunded exactly once
	assertBalance(t, svc, account.ID, "100")
	withdrawal, err := svc.GetWithdrawal(ctx, held.Withdrawal.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusRejected, withdrawal.Status)
	assertReconciled(t, store)
}

func TestConfirmDeposit_ConcurrentApprovalsCreditOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "0")

	reported, err := svc.ReportDeposit(ctx, entities.ReportDepositRequest{AccountID: account.ID, Amount: d("25"), Network: "BEP20"})
	require.NoError(t, err)

	const confirmers = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, confirmers)
	)
	for i := 0; i < confirmers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			action := entities.ResolveActionApprove
			if i%2 == 1 {
				action = entities.ResolveActionReject
			}
			_, errs[i] = svc.ConfirmDeposit(ctx, entities.ConfirmDepositRequest{DepositID: reported.Deposit.ID, Action: action})
		}(i)
	}
	close(start)
	wg.Wait()

	processed := 0
	for _, err := range errs {
		if err == nil {
			processed++
			continue
		}
		assert.True(t, apperrors.IsAlreadyProcessed(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, processed)

	deposit, err := svc.GetDeposit(ctx, reported.Deposit.ID)
	require.NoError(t, err)
	switch deposit.Status {
	case entities.DepositStatusConfirmed:
		assertBalance(t, svc, account.ID, "25")
	case entities.DepositStatusRejected:
		assertBalance(t, svc, account.ID, "0")
	default:
		t.Fatalf("deposit left in status %s", deposit.Status)
	}
	assertReconciled(t, store)
}
