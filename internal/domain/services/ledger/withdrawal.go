package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/pkg/security"
)

// RequestWithdrawal places a hold: the amount is debited now and the request
// waits for an admin decision.
func (s *Service) RequestWithdrawal(ctx context.Context, req entities.CreateWithdrawalRequest) (result *entities.WithdrawalResult, err error) {
	if err := requireID("account_id", req.AccountID); err != nil {
		return nil, err
	}
	if err := requireAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, apperrors.ValidationError("address", "address is required")
	}
	if !entities.IsSupportedNetwork(req.Network) {
		return nil, apperrors.ValidationError("network", "unsupported network: "+req.Network)
	}
	network := entities.NormalizeNetwork(req.Network)

	ctx, done := s.instrument(ctx, OpRequestWithdrawal,
		attribute.String("account_id", req.AccountID.String()),
		attribute.String("amount", req.Amount.String()))
	moved := decimal.Zero
	defer func() { done(err, moved) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if account.USDTBalance.LessThan(req.Amount) {
			return apperrors.InsufficientFundsError(account.USDTBalance, req.Amount)
		}

		updated, err := tx.ApplyDelta(ctx, account.ID, req.Amount.Neg(), decimal.Zero)
		if err != nil {
			return err
		}

		now := s.now()
		withdrawal := &entities.WithdrawalRequest{
			Record: entities.Record{
				ID:        uuid.New(),
				AccountID: account.ID,
				Amount:    req.Amount,
				CreatedAt: now,
				UpdatedAt: now,
			},
			Address: address,
			Network: network,
			Status:  entities.WithdrawalStatusPending,
		}
		if err := tx.InsertWithdrawal(ctx, withdrawal); err != nil {
			return err
		}

		moved = req.Amount.Neg()
		result = &entities.WithdrawalResult{Withdrawal: withdrawal, Balance: updated.Balance()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		"account_id", req.AccountID,
		"withdrawal_id", result.Withdrawal.ID,
		"amount", req.Amount.String(),
		"network", network,
		"address", security.MaskAddress(address),
		"usdt_balance", result.Balance.USDT.String())

	return result, nil
}

// ResolveWithdrawal completes or rejects a pending withdrawal. Rejection
// refunds the hold; approval leaves the balance as it is.
func (s *Service) ResolveWithdrawal(ctx context.Context, req entities.ResolveWithdrawalRequest) (result *entities.WithdrawalResult, err error) {
	if err := requireID("withdrawal_id", req.WithdrawalID); err != nil {
		return nil, err
	}
	if err := req.Action.Validate(); err != nil {
		return nil, apperrors.ValidationError("action", err.Error())
	}

	ctx, done := s.instrument(ctx, OpResolveWithdrawal,
		attribute.String("withdrawal_id", req.WithdrawalID.String()),
		attribute.String("action", string(req.Action)))
	moved := decimal.Zero
	defer func() { done(err, moved) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		withdrawal, err := tx.LockWithdrawal(ctx, req.WithdrawalID)
		if err != nil {
			return err
		}
		if withdrawal.Status != entities.WithdrawalStatusPending {
			return apperrors.AlreadyProcessedError("WITHDRAWAL", string(withdrawal.Status))
		}

		account, err := tx.LockAccount(ctx, withdrawal.AccountID)
		if err != nil {
			return err
		}

		next := entities.WithdrawalStatusCompleted
		if req.Action == entities.ResolveActionReject {
			next = entities.WithdrawalStatusRejected
		}
		if err := withdrawal.Status.ValidateTransition(next); err != nil {
			return apperrors.AlreadyProcessedError("WITHDRAWAL", string(withdrawal.Status))
		}

		if next == entities.WithdrawalStatusRejected {
			account, err = tx.ApplyDelta(ctx, account.ID, withdrawal.Amount, decimal.Zero)
			if err != nil {
				return err
			}
			moved = withdrawal.Amount
		}

		now := s.now()
		withdrawal.Status = next
		withdrawal.UpdatedAt = now
		withdrawal.ResolvedAt = &now
		if notes := optionalString(req.Notes); notes != nil {
			withdrawal.Notes = notes
		}
		if err := tx.UpdateWithdrawal(ctx, withdrawal); err != nil {
			return err
		}

		result = &entities.WithdrawalResult{Withdrawal: withdrawal, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal resolved",
		"withdrawal_id", req.WithdrawalID,
		"account_id", result.Withdrawal.AccountID,
		"status", result.Withdrawal.Status,
		"refunded", moved.String(),
		"usdt_balance", result.Balance.USDT.String())

	return result, nil
}
