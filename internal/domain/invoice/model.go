package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// Invoice represents the invoice domain model: a billing document raised
// against a patient, carrying line items and a derived settlement status.
type Invoice struct {
	ID            string              `db:"id" json:"id"`
	InvoiceNumber string              `db:"invoice_number" json:"invoice_number"`
	PatientID     string              `db:"patient_id" json:"patient_id"`
	AppointmentID *string             `db:"appointment_id" json:"appointment_id,omitempty"`
	InvoiceType   types.InvoiceType   `db:"invoice_type" json:"invoice_type"`
	PaymentMethod types.PaymentMethod `db:"payment_method" json:"payment_method"`
	TotalAmount   decimal.Decimal     `db:"total_amount" json:"total_amount"`
	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	DueDate       *time.Time          `db:"due_date" json:"due_date,omitempty"`
	Items         []*InvoiceItem      `json:"items,omitempty"`

	types.BaseModel
}

// InvoiceItem is one billable line on an invoice. The item's total is always
// quantity × unit price rounded to 2 decimals; it is recomputed at every
// boundary and never trusted from storage.
type InvoiceItem struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	ServiceID   *string         `db:"service_id" json:"service_id,omitempty"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`

	types.BaseModel
}

const (
	// MaxDescriptionLength bounds a line item description
	MaxDescriptionLength = 500
	// MaxQuantity bounds a line item quantity
	MaxQuantity = 1000
)

// TotalPrice returns quantity × unit price rounded to 2 decimals
func (i *InvoiceItem) TotalPrice() decimal.Decimal {
	return types.LineTotal(i.Quantity, i.UnitPrice)
}

// Validate checks a single line item
func (i *InvoiceItem) Validate() error {
	if i.Description == "" {
		return ierr.NewError("invalid description").
			WithHint("Item description must not be empty").
			Mark(ierr.ErrValidation)
	}
	if len(i.Description) > MaxDescriptionLength {
		return ierr.NewError("invalid description").
			WithHintf("Item description must not exceed %d characters", MaxDescriptionLength).
			Mark(ierr.ErrValidation)
	}
	if i.Quantity < 1 || i.Quantity > MaxQuantity {
		return ierr.NewError("invalid quantity").
			WithHintf("Quantity must be between 1 and %d", MaxQuantity).
			WithReportableDetails(map[string]any{
				"quantity": i.Quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	if !types.HasValidPrecision(i.UnitPrice) {
		return ierr.NewError("invalid unit price").
			WithHint("Unit price must have at most 2 decimal places").
			WithReportableDetails(map[string]any{
				"unit_price": i.UnitPrice,
			}).
			Mark(ierr.ErrValidation)
	}
	if !types.IsAmountInRange(i.UnitPrice) {
		return ierr.NewError("invalid unit price").
			WithHintf("Unit price must be between %s and %s", types.MinAmount, types.MaxAmount).
			WithReportableDetails(map[string]any{
				"unit_price": i.UnitPrice,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ComputeTotal sums the line totals of all items, each rounded to 2 decimals
// before summing.
func ComputeTotal(items []*InvoiceItem) decimal.Decimal {
	totals := make([]decimal.Decimal, len(items))
	for i, item := range items {
		totals[i] = item.TotalPrice()
	}
	return types.SumAmounts(totals)
}

// Validate checks the invoice and its items as a whole
func (inv *Invoice) Validate() error {
	if err := inv.InvoiceType.Validate(); err != nil {
		return err
	}
	if err := inv.PaymentMethod.Validate(); err != nil {
		return err
	}
	if err := inv.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if inv.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("invalid total amount").
			WithHint("Invoice total must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if inv.PaymentMethod.RequiresDueDate() && inv.DueDate == nil {
		return ierr.NewError("missing due date").
			WithHint("Due date is required for insurance credit invoices").
			Mark(ierr.ErrValidation)
	}
	for _, item := range inv.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if len(inv.Items) > 0 {
		if !inv.TotalAmount.Equal(ComputeTotal(inv.Items)) {
			return ierr.NewError("total amount mismatch").
				WithHint("Invoice total must equal the sum of its item totals").
				WithReportableDetails(map[string]any{
					"total_amount": inv.TotalAmount,
					"items_total":  ComputeTotal(inv.Items),
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// IsMutable reports whether line items may still be added or removed.
// Settled and overdue invoices are closed to item mutation; corrections go
// through administrative overrides instead.
func (inv *Invoice) IsMutable() bool {
	return inv.InvoiceStatus == types.InvoiceStatusPending ||
		inv.InvoiceStatus == types.InvoiceStatusPartiallyPaid
}
