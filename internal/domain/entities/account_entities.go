package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier determines the commission rate credited on purchases
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// IsValid checks if the tier is a known tier
func (t Tier) IsValid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// ParseTier parses a tier name case-insensitively
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid tier: %s", s)
	}
	return t, nil
}

// KYCStatus represents the verification state of an account
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

// IsValid checks if the KYC status is valid
func (s KYCStatus) IsValid() bool {
	switch s {
	case KYCStatusNone, KYCStatusPending, KYCStatusApproved, KYCStatusRejected:
		return true
	}
	return false
}

// Account is a custodial wallet owned by one user
type Account struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Username    string          `json:"username" db:"username"`
	Tier        Tier            `json:"tier" db:"tier"`
	KYCStatus   KYCStatus       `json:"kyc_status" db:"kyc_status"`
	Verified    bool            `json:"verified" db:"verified"`
	USDTBalance decimal.Decimal `json:"usdt_balance" db:"usdt_balance"`
	BTCBalance  decimal.Decimal `json:"btc_balance" db:"btc_balance"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Balance returns the spendable balances of the account
func (a *Account) Balance() Balance {
	return Balance{
		AccountID: a.ID,
		USDT:      a.USDTBalance,
		BTC:       a.BTCBalance,
	}
}

// Balance is a point-in-time balance pair
type Balance struct {
	AccountID uuid.UUID       `json:"account_id"`
	USDT      decimal.Decimal `json:"usdt"`
	BTC       decimal.Decimal `json:"btc"`
}

// CreateAccountRequest opens a new zero-balance account
type CreateAccountRequest struct {
	Username string
	Tier     Tier
}
