package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wellcare/billing/internal/domain/payment"
	"github.com/wellcare/billing/internal/types"
)

// BalanceSummary is the derived settlement position of an invoice at a point
// in time. All values are computed from the payment records on every read and
// write; nothing here is cached in storage.
type BalanceSummary struct {
	// TotalAmount is the invoice total the balance is computed against
	TotalAmount decimal.Decimal `json:"total_amount"`
	// Paid is the sum of completed payment amounts
	Paid decimal.Decimal `json:"paid"`
	// Remaining is TotalAmount − Paid
	Remaining decimal.Decimal `json:"remaining"`
	// Pending is the sum of payment amounts still awaiting confirmation;
	// these reserve balance until they complete or fail
	Pending decimal.Decimal `json:"pending"`
	// Available is Remaining − Pending: the true ceiling for a new payment
	Available decimal.Decimal `json:"available"`
}

// ComputeBalance derives the settlement position of an invoice from its
// payment records. Failed payments are ignored.
func ComputeBalance(totalAmount decimal.Decimal, payments []*payment.Payment) BalanceSummary {
	paid := decimal.Zero
	pending := decimal.Zero
	for _, p := range payments {
		switch p.PaymentStatus {
		case types.PaymentStatusCompleted:
			paid = paid.Add(p.Amount)
		case types.PaymentStatusPending:
			pending = pending.Add(p.Amount)
		}
	}

	remaining := totalAmount.Sub(paid)
	return BalanceSummary{
		TotalAmount: totalAmount,
		Paid:        paid,
		Remaining:   remaining,
		Pending:     pending,
		Available:   remaining.Sub(pending),
	}
}

// IsSettled reports whether the remaining balance is zero within the
// 2-decimal rounding granularity.
func (b BalanceSummary) IsSettled() bool {
	return b.Remaining.LessThan(types.MinAmount)
}

// DeriveStatus maps a balance summary and due date onto the invoice status.
// The derivation is idempotent: with no intervening payment it always yields
// the same value. Overdue is driven purely by the clock and is re-evaluated
// on each call, so an overdue invoice returns to paid once the balance
// clears.
func DeriveStatus(balance BalanceSummary, dueDate *time.Time, now time.Time) types.InvoiceStatus {
	if balance.IsSettled() {
		return types.InvoiceStatusPaid
	}
	if dueDate != nil && dueDate.Before(now) {
		return types.InvoiceStatusOverdue
	}
	if balance.Paid.GreaterThan(decimal.Zero) {
		return types.InvoiceStatusPartiallyPaid
	}
	return types.InvoiceStatusPending
}
