package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

// Reads go straight to committed state and never take row locks.

func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return s.store.GetAccount(ctx, accountID)
}

// GetBalance returns the current spendable balances
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (*entities.Balance, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balance := account.Balance()
	return &balance, nil
}

func (s *Service) ListAccounts(ctx context.Context, params entities.ListParams) ([]*entities.Account, error) {
	return s.store.ListAccounts(ctx, params.Normalize())
}

func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error) {
	if err := requireID("payment_id", paymentID); err != nil {
		return nil, err
	}
	return s.store.GetPayment(ctx, paymentID)
}

func (s *Service) GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error) {
	if err := requireID("withdrawal_id", withdrawalID); err != nil {
		return nil, err
	}
	return s.store.GetWithdrawal(ctx, withdrawalID)
}

func (s *Service) GetDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error) {
	if err := requireID("deposit_id", depositID); err != nil {
		return nil, err
	}
	return s.store.GetDeposit(ctx, depositID)
}

func (s *Service) ListPayments(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.Payment, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, accountID, params.Normalize())
}

func (s *Service) ListWithdrawals(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.WithdrawalRequest, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return s.store.ListWithdrawals(ctx, accountID, params.Normalize())
}

func (s *Service) ListDeposits(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.DepositNotification, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return s.store.ListDeposits(ctx, accountID, params.Normalize())
}

func (s *Service) ListPendingWithdrawals(ctx context.Context, params entities.ListParams) ([]*entities.WithdrawalRequest, error) {
	return s.store.ListPendingWithdrawals(ctx, params.Normalize())
}

func (s *Service) ListPendingDeposits(ctx context.Context, params entities.ListParams) ([]*entities.DepositNotification, error) {
	return s.store.ListPendingDeposits(ctx, params.Normalize())
}
