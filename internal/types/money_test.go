package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	testCases := []struct {
		name      string
		quantity  int
		unitPrice string
		want      string
	}{
		{"whole amounts", 2, "150.00", "300.00"},
		{"fractional unit price", 1, "75.50", "75.50"},
		{"rounding half up", 3, "0.335", "1.01"},
		{"minimum price", 1, "0.01", "0.01"},
		{"large quantity", 1000, "999.99", "999990.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			unit := decimal.RequireFromString(tc.unitPrice)
			got := LineTotal(tc.quantity, unit)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
				"got %s, want %s", got, tc.want)
		})
	}
}

func TestHasValidPrecision(t *testing.T) {
	assert.True(t, HasValidPrecision(decimal.RequireFromString("10.50")))
	assert.True(t, HasValidPrecision(decimal.RequireFromString("10")))
	assert.True(t, HasValidPrecision(decimal.RequireFromString("10.500")))
	assert.False(t, HasValidPrecision(decimal.RequireFromString("10.505")))
	assert.False(t, HasValidPrecision(decimal.RequireFromString("0.001")))
}

func TestIsAmountInRange(t *testing.T) {
	assert.False(t, IsAmountInRange(decimal.Zero))
	assert.False(t, IsAmountInRange(decimal.RequireFromString("0.001")))
	assert.True(t, IsAmountInRange(MinAmount))
	assert.True(t, IsAmountInRange(MaxAmount))
	assert.False(t, IsAmountInRange(decimal.RequireFromString("1000000.00")))
	assert.False(t, IsAmountInRange(decimal.RequireFromString("-5.00")))
}

func TestSumAmountsNoDrift(t *testing.T) {
	// 0.1 + 0.2 style sums must stay exact in decimal space
	amounts := []decimal.Decimal{
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("0.20"),
	}
	assert.True(t, SumAmounts(amounts).Equal(decimal.RequireFromString("0.30")))
}
