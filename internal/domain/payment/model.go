package payment

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// Payment represents a recorded transfer of funds against an invoice's
// balance. Payments are append-only: corrections are made by recording
// further payments or administrative invoice edits, never by mutating or
// deleting an existing record.
type Payment struct {
	ID            string              `db:"id" json:"id"`
	InvoiceID     string              `db:"invoice_id" json:"invoice_id"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	PaymentMethod types.PaymentMethod `db:"payment_method" json:"payment_method"`
	// TransactionID is the external processor reference; required for card
	// and bank transfer payments, and doubles as the caller's dedup key.
	TransactionID *string             `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentStatus types.PaymentStatus `db:"payment_status" json:"payment_status"`
	ReceiptNumber string              `db:"receipt_number" json:"receipt_number"`
	Notes         string              `db:"notes" json:"notes,omitempty"`
	PaidAt        time.Time           `db:"paid_at" json:"paid_at"`
	RecordedBy    *string             `db:"recorded_by" json:"recorded_by,omitempty"`

	types.BaseModel
}

// Validate checks the payment shape
func (p *Payment) Validate() error {
	if p.InvoiceID == "" {
		return ierr.NewError("invalid invoice id").
			WithHint("Payment must reference an invoice").
			Mark(ierr.ErrValidation)
	}
	if !types.HasValidPrecision(p.Amount) {
		return ierr.NewError("invalid amount").
			WithHint("Amount must have at most 2 decimal places").
			WithReportableDetails(map[string]any{
				"amount": p.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if !types.IsAmountInRange(p.Amount) {
		return ierr.NewError("invalid amount").
			WithHintf("Amount must be between %s and %s", types.MinAmount, types.MaxAmount).
			WithReportableDetails(map[string]any{
				"amount": p.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if err := p.PaymentMethod.Validate(); err != nil {
		return err
	}
	if err := p.PaymentStatus.Validate(); err != nil {
		return err
	}
	if p.PaymentMethod.RequiresTransactionID() && (p.TransactionID == nil || *p.TransactionID == "") {
		return ierr.NewError("missing transaction id").
			WithHintf("Transaction ID is required for %s payments", p.PaymentMethod).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Stats aggregates payment records for administrative reporting
type Stats struct {
	TotalCollected decimal.Decimal                       `json:"total_collected"`
	TotalPending   decimal.Decimal                       `json:"total_pending"`
	CompletedCount int                                   `json:"completed_count"`
	PendingCount   int                                   `json:"pending_count"`
	FailedCount    int                                   `json:"failed_count"`
	ByMethod       map[types.PaymentMethod]decimal.Decimal `json:"by_method"`
}
