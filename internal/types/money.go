package types

import (
	"github.com/shopspring/decimal"
)

// Monetary amounts are stored with exactly two fractional digits. All
// arithmetic goes through shopspring/decimal so binary floating point never
// touches a persisted value.

var (
	// MinAmount is the smallest chargeable amount
	MinAmount = decimal.NewFromFloat(0.01)
	// MaxAmount is the largest amount a single item or payment may carry
	MaxAmount = decimal.NewFromFloat(999999.99)
)

// RoundAmount rounds a monetary amount to 2 decimal places (half up)
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HasValidPrecision reports whether the amount carries at most 2 decimal places
func HasValidPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// IsAmountInRange reports whether the amount lies within [MinAmount, MaxAmount]
func IsAmountInRange(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(MinAmount) && d.LessThanOrEqual(MaxAmount)
}

// LineTotal computes quantity × unit price rounded to 2 decimals.
// Each line is rounded before summing so the invoice total matches what
// appears on the printed document line by line.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundAmount(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// SumAmounts adds a list of already-rounded amounts
func SumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
