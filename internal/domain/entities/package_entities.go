package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Package is a flash BTC offering sold for USDT
type Package struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	PriceUSD     decimal.Decimal `json:"price_usd" db:"price_usd"`
	BTCAmount    decimal.Decimal `json:"btc_amount" db:"btc_amount"`
	DurationDays int             `json:"duration_days" db:"duration_days"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the package definition
func (p *Package) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("package name is required")
	}
	if p.PriceUSD.IsNegative() {
		return fmt.Errorf("package price cannot be negative")
	}
	if p.BTCAmount.IsNegative() {
		return fmt.Errorf("package btc amount cannot be negative")
	}
	if err := CheckAmountPrecision(p.PriceUSD); err != nil {
		return fmt.Errorf("package price %w", err)
	}
	if err := CheckAmountPrecision(p.BTCAmount); err != nil {
		return fmt.Errorf("package btc amount %w", err)
	}
	if p.DurationDays < 0 {
		return fmt.Errorf("package duration cannot be negative")
	}
	return nil
}

// UpsertPackageRequest creates or updates a catalog entry
type UpsertPackageRequest struct {
	Name         string          `json:"name" binding:"required,max=120"`
	Description  string          `json:"description" binding:"max=2000"`
	PriceUSD     decimal.Decimal `json:"price_usd" binding:"required"`
	BTCAmount    decimal.Decimal `json:"btc_amount"`
	DurationDays int             `json:"duration_days" binding:"gte=0"`
	IsActive     *bool           `json:"is_active"`
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
