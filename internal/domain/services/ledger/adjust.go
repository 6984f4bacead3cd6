package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

// AdminAdjustTransaction corrects a payment's status or deletes it. The balance
// moves by the difference between the payment's effect before and after, so a
// completed payment deleted or failed refunds amount minus commission.
func (s *Service) AdminAdjustTransaction(ctx context.Context, req entities.AdjustPaymentRequest) (result *entities.AdjustmentResult, err error) {
	if err := requireID("payment_id", req.PaymentID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.ValidationError("status", err.Error())
	}

	attrs := []attribute.KeyValue{
		attribute.String("payment_id", req.PaymentID.String()),
		attribute.Bool("delete", req.Delete),
	}
	if req.NewStatus != nil {
		attrs = append(attrs, attribute.String("new_status", string(*req.NewStatus)))
	}
	ctx, done := s.instrument(ctx, OpAdjustPayment, attrs...)
	moved := decimal.Zero
	defer func() { done(err, moved) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		payment, err := tx.LockPayment(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		account, err := tx.LockAccount(ctx, payment.AccountID)
		if err != nil {
			return err
		}

		before := payment.BalanceEffect()

		if req.Delete {
			delta := before.Neg()
			if !delta.IsZero() {
				if account, err = tx.ApplyDelta(ctx, account.ID, delta, decimal.Zero); err != nil {
					return err
				}
			}
			if err := tx.DeletePayment(ctx, payment.ID); err != nil {
				return err
			}
			moved = delta
			result = &entities.AdjustmentResult{Deleted: true, Delta: delta, Balance: account.Balance()}
			return nil
		}

		next := *req.NewStatus
		if next == payment.Status {
			result = &entities.AdjustmentResult{Payment: payment, Delta: decimal.Zero, Balance: account.Balance()}
			return nil
		}

		delta := entities.PaymentEffect(next, payment.Amount, payment.Commission).Sub(before)
		if !delta.IsZero() {
			if account, err = tx.ApplyDelta(ctx, account.ID, delta, decimal.Zero); err != nil {
				return err
			}
		}

		now := s.now()
		payment.Status = next
		payment.UpdatedAt = now
		if next.IsTerminal() {
			payment.ResolvedAt = &now
		} else {
			payment.ResolvedAt = nil
		}
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}

		moved = delta
		result = &entities.AdjustmentResult{Payment: payment, Delta: delta, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment adjusted",
		"payment_id", req.PaymentID,
		"deleted", result.Deleted,
		"delta", result.Delta.String(),
		"usdt_balance", result.Balance.USDT.String())

	return result, nil
}
