package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wellcare/billing/internal/domain/payment"
	"github.com/wellcare/billing/internal/types"
)

func pay(amount string, status types.PaymentStatus) *payment.Payment {
	return &payment.Payment{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		Amount:        decimal.RequireFromString(amount),
		PaymentStatus: status,
	}
}

func TestComputeBalance(t *testing.T) {
	total := decimal.RequireFromString("375.50")

	t.Run("no payments", func(t *testing.T) {
		bal := ComputeBalance(total, nil)
		assert.True(t, bal.Paid.IsZero())
		assert.True(t, bal.Remaining.Equal(total))
		assert.True(t, bal.Pending.IsZero())
		assert.True(t, bal.Available.Equal(total))
	})

	t.Run("completed and pending reserve balance", func(t *testing.T) {
		payments := []*payment.Payment{
			pay("200.00", types.PaymentStatusCompleted),
			pay("100.00", types.PaymentStatusPending),
		}
		bal := ComputeBalance(total, payments)
		assert.True(t, bal.Paid.Equal(decimal.RequireFromString("200.00")))
		assert.True(t, bal.Remaining.Equal(decimal.RequireFromString("175.50")))
		assert.True(t, bal.Pending.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, bal.Available.Equal(decimal.RequireFromString("75.50")))
	})

	t.Run("failed payments are ignored", func(t *testing.T) {
		payments := []*payment.Payment{
			pay("200.00", types.PaymentStatusFailed),
		}
		bal := ComputeBalance(total, payments)
		assert.True(t, bal.Paid.IsZero())
		assert.True(t, bal.Available.Equal(total))
	})

	t.Run("fully settled", func(t *testing.T) {
		payments := []*payment.Payment{
			pay("200.00", types.PaymentStatusCompleted),
			pay("175.50", types.PaymentStatusCompleted),
		}
		bal := ComputeBalance(total, payments)
		assert.True(t, bal.Remaining.IsZero())
		assert.True(t, bal.IsSettled())
	})
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	total := decimal.RequireFromString("100.00")

	balanceOf := func(paid string) BalanceSummary {
		return ComputeBalance(total, []*payment.Payment{
			pay(paid, types.PaymentStatusCompleted),
		})
	}

	t.Run("no payments is pending", func(t *testing.T) {
		assert.Equal(t, types.InvoiceStatusPending, DeriveStatus(ComputeBalance(total, nil), nil, now))
	})

	t.Run("partial payment is partially paid", func(t *testing.T) {
		assert.Equal(t, types.InvoiceStatusPartiallyPaid, DeriveStatus(balanceOf("40.00"), nil, now))
	})

	t.Run("exact payment is paid", func(t *testing.T) {
		assert.Equal(t, types.InvoiceStatusPaid, DeriveStatus(balanceOf("100.00"), nil, now))
	})

	t.Run("past due date with balance is overdue", func(t *testing.T) {
		assert.Equal(t, types.InvoiceStatusOverdue, DeriveStatus(balanceOf("40.00"), &past, now))
	})

	t.Run("paid wins over overdue", func(t *testing.T) {
		assert.Equal(t, types.InvoiceStatusPaid, DeriveStatus(balanceOf("100.00"), &past, now))
	})

	t.Run("future due date does not trigger overdue", func(t *testing.T) {
		assert.Equal(t, types.InvoiceStatusPartiallyPaid, DeriveStatus(balanceOf("40.00"), &future, now))
	})

	t.Run("idempotent", func(t *testing.T) {
		bal := balanceOf("40.00")
		first := DeriveStatus(bal, &future, now)
		second := DeriveStatus(bal, &future, now)
		assert.Equal(t, first, second)
	})
}

func TestComputeTotalPerLineRounding(t *testing.T) {
	items := []*InvoiceItem{
		{Description: "Consultation", Quantity: 2, UnitPrice: decimal.RequireFromString("150.00")},
		{Description: "Lab panel", Quantity: 1, UnitPrice: decimal.RequireFromString("75.50")},
	}
	assert.True(t, ComputeTotal(items).Equal(decimal.RequireFromString("375.50")))
}

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "WC-2025-0001", FormatInvoiceNumber(2025, 1))
	assert.Equal(t, "WC-2025-0002", FormatInvoiceNumber(2025, 2))
	assert.Equal(t, "WC-2026-0001", FormatInvoiceNumber(2026, 1))
	assert.Equal(t, "WC-2025-10000", FormatInvoiceNumber(2025, 10000))
}
