package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
	"github.com/flash-service/flash_service/internal/domain/services/commission"
)

// Purchase buys one package. The account must hold at least the package price;
// the price is debited and the tier commission credited back in the same step.
func (s *Service) Purchase(ctx context.Context, req entities.PurchaseRequest) (result *entities.PurchaseResult, err error) {
	if err := requireID("account_id", req.AccountID); err != nil {
		return nil, err
	}
	if err := requireID("package_id", req.PackageID); err != nil {
		return nil, err
	}

	ctx, done := s.instrument(ctx, OpPurchase,
		attribute.String("account_id", req.AccountID.String()),
		attribute.String("package_id", req.PackageID.String()))
	moved := decimal.Zero
	defer func() { done(err, moved) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}

		pkg, err := tx.GetPackage(ctx, req.PackageID)
		if err != nil {
			return err
		}
		if !pkg.IsActive {
			return apperrors.NotFoundError("PACKAGE")
		}

		price := pkg.PriceUSD
		comm := commission.Commission(price, account.Tier)
		if account.USDTBalance.LessThan(price) {
			return apperrors.InsufficientFundsError(account.USDTBalance, price)
		}

		delta := comm.Sub(price)
		updated, err := tx.ApplyDelta(ctx, account.ID, delta, decimal.Zero)
		if err != nil {
			return err
		}

		now := s.now()
		payment := &entities.Payment{
			Record: entities.Record{
				ID:         uuid.New(),
				AccountID:  account.ID,
				Amount:     price,
				CreatedAt:  now,
				UpdatedAt:  now,
				ResolvedAt: &now,
			},
			PackageID:  pkg.ID,
			Commission: comm,
			Status:     entities.PaymentStatusCompleted,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}

		moved = delta
		result = &entities.PurchaseResult{
			Payment: payment,
			Balance: updated.Balance(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase committed",
		"account_id", req.AccountID,
		"package_id", req.PackageID,
		"payment_id", result.Payment.ID,
		"price", result.Payment.Amount.String(),
		"commission", result.Payment.Commission.String(),
		"usdt_balance", result.Balance.USDT.String())

	return result, nil
}
