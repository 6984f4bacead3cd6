package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

func TestCommission(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		tier     entities.Tier
		expected string
	}{
		{"bronze", "100", entities.TierBronze, "5"},
		{"silver package", "200", entities.TierSilver, "14"},
		{"gold large package", "1000", entities.TierGold, "100"},
		{"unknown tier falls back to bronze", "100", entities.Tier("platinum"), "5"},
		{"empty tier falls back to bronze", "40", entities.Tier(""), "2"},
		{"free package", "0", entities.TierGold, "0"},
		{"fractional price", "19.99", entities.TierSilver, "1.3993"},
		{"truncated to 18 places", "0.000000000000000019", entities.TierBronze, "0"},
		{"full scale price", "1.000000000000000003", entities.TierGold, "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Commission(decimal.RequireFromString(tt.price), tt.tier)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, "0.05", Rate(entities.TierBronze).String())
	assert.Equal(t, "0.07", Rate(entities.TierSilver).String())
	assert.Equal(t, "0.1", Rate(entities.TierGold).String())
}
