// Package commission computes the purchase commission credited back to an account.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

var (
	rateBronze = decimal.RequireFromString("0.05")
	rateSilver = decimal.RequireFromString("0.07")
	rateGold   = decimal.RequireFromString("0.10")
)

// Rate returns the commission rate for a tier. Unknown tiers earn the bronze rate.
func Rate(tier entities.Tier) decimal.Decimal {
	switch tier {
	case entities.TierSilver:
		return rateSilver
	case entities.TierGold:
		return rateGold
	default:
		return rateBronze
	}
}

// Commission returns price × Rate(tier), truncated to the stored amount scale
func Commission(price decimal.Decimal, tier entities.Tier) decimal.Decimal {
	return price.Mul(Rate(tier)).Truncate(entities.AmountScale)
}
