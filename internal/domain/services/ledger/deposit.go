package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/pkg/security"
)

// ReportDeposit records a user-reported transfer awaiting confirmation. No balance changes.
func (s *Service) ReportDeposit(ctx context.Context, req entities.ReportDepositRequest) (result *entities.DepositResult, err error) {
	if err := requireID("account_id", req.AccountID); err != nil {
		return nil, err
	}
	if err := requireAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	if !entities.IsSupportedNetwork(req.Network) {
		return nil, apperrors.ValidationError("network", "unsupported network: "+req.Network)
	}

	ctx, done := s.instrument(ctx, OpReportDeposit,
		attribute.String("account_id", req.AccountID.String()),
		attribute.String("amount", req.Amount.String()))
	defer func() { done(err, decimal.Zero) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}

		now := s.now()
		deposit := &entities.DepositNotification{
			Record: entities.Record{
				ID:        uuid.New(),
				AccountID: account.ID,
				Amount:    req.Amount,
				CreatedAt: now,
				UpdatedAt: now,
			},
			TxHash:  optionalString(req.TxHash),
			Network: entities.NormalizeNetwork(req.Network),
			Status:  entities.DepositStatusPending,
		}
		if err := tx.InsertDeposit(ctx, deposit); err != nil {
			return err
		}

		result = &entities.DepositResult{Deposit: deposit, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deposit reported",
		"account_id", req.AccountID,
		"deposit_id", result.Deposit.ID,
		"amount", req.Amount.String(),
		"network", result.Deposit.Network,
		"tx_hash", security.MaskTxHash(result.Deposit.TxHash))

	return result, nil
}

// ConfirmDeposit approves or rejects a pending notification. Approval credits the amount.
func (s *Service) ConfirmDeposit(ctx context.Context, req entities.ConfirmDepositRequest) (result *entities.DepositResult, err error) {
	if err := requireID("deposit_id", req.DepositID); err != nil {
		return nil, err
	}
	if err := req.Action.Validate(); err != nil {
		return nil, apperrors.ValidationError("action", err.Error())
	}

	ctx, done := s.instrument(ctx, OpConfirmDeposit,
		attribute.String("deposit_id", req.DepositID.String()),
		attribute.String("action", string(req.Action)))
	moved := decimal.Zero
	defer func() { done(err, moved) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		deposit, err := tx.LockDeposit(ctx, req.DepositID)
		if err != nil {
			return err
		}
		if deposit.Status != entities.DepositStatusPending {
			return apperrors.AlreadyProcessedError("DEPOSIT", string(deposit.Status))
		}

		account, err := tx.LockAccount(ctx, deposit.AccountID)
		if err != nil {
			return err
		}

		next := entities.DepositStatusRejected
		if req.Action == entities.ResolveActionApprove {
			next = entities.DepositStatusConfirmed
			account, err = tx.ApplyDelta(ctx, account.ID, deposit.Amount, decimal.Zero)
			if err != nil {
				return err
			}
			moved = deposit.Amount
		}

		now := s.now()
		deposit.Status = next
		deposit.UpdatedAt = now
		deposit.ResolvedAt = &now
		if notes := optionalString(req.Notes); notes != nil {
			deposit.Notes = notes
		}
		if err := tx.UpdateDeposit(ctx, deposit); err != nil {
			return err
		}

		result = &entities.DepositResult{Deposit: deposit, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Deposit resolved",
		"deposit_id", req.DepositID,
		"account_id", result.Deposit.AccountID,
		"status", result.Deposit.Status,
		"credited", moved.String(),
		"usdt_balance", result.Balance.USDT.String())

	return result, nil
}

// ManualDeposit credits an account and writes an already confirmed notification in one step
func (s *Service) ManualDeposit(ctx context.Context, req entities.ManualDepositRequest) (result *entities.DepositResult, err error) {
	if err := requireID("account_id", req.AccountID); err != nil {
		return nil, err
	}
	if err := requireAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	network := entities.ManualNetwork
	if req.Network != "" {
		network = entities.NormalizeNetwork(req.Network)
	}

	ctx, done := s.instrument(ctx, OpManualDeposit,
		attribute.String("account_id", req.AccountID.String()),
		attribute.String("amount", req.Amount.String()))
	moved := decimal.Zero
	defer func() { done(err, moved) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}

		updated, err := tx.ApplyDelta(ctx, account.ID, req.Amount, decimal.Zero)
		if err != nil {
			return err
		}

		now := s.now()
		deposit := &entities.DepositNotification{
			Record: entities.Record{
				ID:         uuid.New(),
				AccountID:  account.ID,
				Amount:     req.Amount,
				CreatedAt:  now,
				UpdatedAt:  now,
				ResolvedAt: &now,
			},
			Network: network,
			Notes:   optionalString(req.Notes),
			Status:  entities.DepositStatusConfirmed,
		}
		if err := tx.InsertDeposit(ctx, deposit); err != nil {
			return err
		}

		moved = req.Amount
		result = &entities.DepositResult{Deposit: deposit, Balance: updated.Balance()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual deposit committed",
		"account_id", req.AccountID,
		"deposit_id", result.Deposit.ID,
		"amount", req.Amount.String(),
		"usdt_balance", result.Balance.USDT.String())

	return result, nil
}
