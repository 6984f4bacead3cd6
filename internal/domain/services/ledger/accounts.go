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
)

const maxUsernameLength = 64

// CreateAccount opens a zero-balance account. An empty tier means bronze.
func (s *Service) CreateAccount(ctx context.Context, req entities.CreateAccountRequest) (account *entities.Account, err error) {
	tier := req.Tier
	if tier == "" {
		tier = entities.TierBronze
	}
	if !tier.IsValid() {
		return nil, apperrors.ValidationError("tier", "invalid tier: "+string(req.Tier))
	}
	username := strings.TrimSpace(req.Username)
	if len(username) > maxUsernameLength {
		return nil, apperrors.ValidationError("username", "username is too long")
	}

	ctx, done := s.instrument(ctx, OpCreateAccount, attribute.String("tier", string(tier)))
	defer func() { done(err, decimal.Zero) }()

	now := s.now()
	account = &entities.Account{
		ID:          uuid.New(),
		Username:    username,
		Tier:        tier,
		KYCStatus:   entities.KYCStatusNone,
		USDTBalance: decimal.Zero,
		BTCBalance:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID, "tier", tier)
	return account, nil
}

// SetTier changes the commission tier. Balances are untouched.
func (s *Service) SetTier(ctx context.Context, accountID uuid.UUID, tier entities.Tier) (*entities.Account, error) {
	if !tier.IsValid() {
		return nil, apperrors.ValidationError("tier", "invalid tier: "+string(tier))
	}
	return s.updateProfile(ctx, accountID, "tier", func(a *entities.Account) {
		a.Tier = tier
	})
}

// SetKYCStatus records a KYC decision. Only approved accounts are verified.
func (s *Service) SetKYCStatus(ctx context.Context, accountID uuid.UUID, status entities.KYCStatus) (*entities.Account, error) {
	if !status.IsValid() {
		return nil, apperrors.ValidationError("kyc_status", "invalid kyc status: "+string(status))
	}
	return s.updateProfile(ctx, accountID, "kyc_status", func(a *entities.Account) {
		a.KYCStatus = status
		a.Verified = status == entities.KYCStatusApproved
	})
}

func (s *Service) updateProfile(ctx context.Context, accountID uuid.UUID, field string, mutate func(*entities.Account)) (account *entities.Account, err error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}

	ctx, done := s.instrument(ctx, OpUpdateAccount,
		attribute.String("account_id", accountID.String()),
		attribute.String("field", field))
	defer func() { done(err, decimal.Zero) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		locked, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		mutate(locked)
		if err := tx.UpdateAccountProfile(ctx, locked); err != nil {
			return err
		}
		account = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account updated", "account_id", accountID, "field", field,
		"tier", account.Tier, "kyc_status", account.KYCStatus)
	return account, nil
}

// DeleteAccount removes an account that holds nothing and has no history
func (s *Service) DeleteAccount(ctx context.Context, accountID uuid.UUID) (err error) {
	if err := requireID("account_id", accountID); err != nil {
		return err
	}

	ctx, done := s.instrument(ctx, OpDeleteAccount, attribute.String("account_id", accountID.String()))
	defer func() { done(err, decimal.Zero) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.USDTBalance.IsZero() || !account.BTCBalance.IsZero() {
			return apperrors.ConflictError("ACCOUNT", "account balance is not zero")
		}
		records, err := tx.CountAccountRecords(ctx, accountID)
		if err != nil {
			return err
		}
		if records > 0 {
			return apperrors.ConflictError("ACCOUNT", "account has ledger records")
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Account deleted", "account_id", accountID)
	return nil
}
