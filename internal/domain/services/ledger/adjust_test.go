package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
)

func statusPtr(s entities.PaymentStatus) *entities.PaymentStatus {
	return &s
}

func TestAdminAdjustTransaction_StatusChangesMoveBalance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierSilver, "500")
	pkg := addPackage(t, store, "200", true)

	bought, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "314")

	failed, err := svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, NewStatus: statusPtr(entities.PaymentStatusFailed)})
	require.NoError(t, err)
	assert.True(t, d("186").Equal(failed.Delta))
	assert.Equal(t, entities.PaymentStatusFailed, failed.Payment.Status)
	assertBalance(t, svc, account.ID, "500")

	same, err := svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, NewStatus: statusPtr(entities.PaymentStatusFailed)})
	require.NoError(t, err)
	assert.True(t, same.Delta.IsZero())
	assertBalance(t, svc, account.ID, "500")

	pending, err := svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, NewStatus: statusPtr(entities.PaymentStatusPending)})
	require.NoError(t, err)
	assert.True(t, pending.Delta.IsZero())
	assert.Nil(t, pending.Payment.ResolvedAt)

	completed, err := svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, NewStatus: statusPtr(entities.PaymentStatusCompleted)})
	require.NoError(t, err)
	assert.True(t, d("-186").Equal(completed.Delta))
	assertBalance(t, svc, account.ID, "314")

	assertReconciled(t, store)
}

func TestAdminAdjustTransaction_DeleteRefundsCompletedPayment(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierGold, "1000")
	pkg := addPackage(t, store, "1000", true)

	bought, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)

	deleted, err := svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, Delete: true})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Nil(t, deleted.Payment)
	assert.True(t, d("900").Equal(deleted.Delta))
	assertBalance(t, svc, account.ID, "1000")

	_, err = svc.GetPayment(ctx, bought.Payment.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assertReconciled(t, store)
}

func TestAdminAdjustTransaction_RefusesNegativeBalance(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "100")
	pkg := addPackage(t, store, "100", true)

	bought, err := svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)
	_, err = svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, NewStatus: statusPtr(entities.PaymentStatusFailed)})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "100")

	_, err = svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("100"), Address: "addr", Network: "TRC20"})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "0")

	_, err = svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: bought.Payment.ID, NewStatus: statusPtr(entities.PaymentStatusCompleted)})
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientFunds(err))

	payment, err := svc.GetPayment(ctx, bought.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentStatusFailed, payment.Status)
	assertBalance(t, svc, account.ID, "0")
	assertReconciled(t, store)
}

func TestAdminAdjustTransaction_InvalidRequests(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: uuid.New()})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: uuid.New(), Delete: true, NewStatus: statusPtr(entities.PaymentStatusFailed)})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: uuid.New(), NewStatus: statusPtr("refunded")})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = svc.AdminAdjustTransaction(ctx, entities.AdjustPaymentRequest{PaymentID: uuid.New(), Delete: true})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAccountLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{Username: "satoshi"})
	require.NoError(t, err)
	assert.Equal(t, entities.TierBronze, account.Tier)
	assert.Equal(t, entities.KYCStatusNone, account.KYCStatus)
	assert.False(t, account.Verified)

	_, err = svc.CreateAccount(ctx, entities.CreateAccountRequest{Username: "SATOSHI"})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.CreateAccount(ctx, entities.CreateAccountRequest{Tier: "platinum"})
	assert.True(t, apperrors.IsInvalidInput(err))

	updated, err := svc.SetTier(ctx, account.ID, entities.TierGold)
	require.NoError(t, err)
	assert.Equal(t, entities.TierGold, updated.Tier)

	approved, err := svc.SetKYCStatus(ctx, account.ID, entities.KYCStatusApproved)
	require.NoError(t, err)
	assert.True(t, approved.Verified)

	revoked, err := svc.SetKYCStatus(ctx, account.ID, entities.KYCStatusRejected)
	require.NoError(t, err)
	assert.False(t, revoked.Verified)

	pkg := addPackage(t, store, "10", true)
	_, err = svc.ManualDeposit(ctx, entities.ManualDepositRequest{AccountID: account.ID, Amount: d("10")})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, entities.PurchaseRequest{AccountID: account.ID, PackageID: pkg.ID})
	require.NoError(t, err)
	// gold commission after the tier change
	assertBalance(t, svc, account.ID, "1")

	err = svc.DeleteAccount(ctx, account.ID)
	assert.True(t, apperrors.IsConflict(err), "non-zero balance")

	empty, err := svc.CreateAccount(ctx, entities.CreateAccountRequest{})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAccount(ctx, empty.ID))
	_, err = svc.GetAccount(ctx, empty.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteAccount_RefusedWithHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	account := fundedAccount(t, svc, entities.TierBronze, "10")

	held, err := svc.RequestWithdrawal(ctx, entities.CreateWithdrawalRequest{AccountID: account.ID, Amount: d("10"), Address: "a", Network: "TRC20"})
	require.NoError(t, err)
	_, err = svc.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{WithdrawalID: held.Withdrawal.ID, Action: entities.ResolveActionApprove})
	require.NoError(t, err)
	assertBalance(t, svc, account.ID, "0")

	err = svc.DeleteAccount(ctx, account.ID)
	assert.True(t, apperrors.IsConflict(err))
}
