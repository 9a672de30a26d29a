package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wellcare/billing/internal/domain/invoice"
	"github.com/wellcare/billing/internal/domain/payment"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
	"github.com/wellcare/billing/internal/validator"
)

// RecordPaymentRequest records a payment against an invoice
type RecordPaymentRequest struct {
	InvoiceID     string               `json:"invoice_id" validate:"required"`
	Amount        decimal.Decimal      `json:"amount" validate:"required"`
	PaymentMethod types.PaymentMethod  `json:"payment_method" validate:"required"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	PaymentStatus *types.PaymentStatus `json:"payment_status,omitempty"`
	Notes         string               `json:"notes,omitempty" validate:"max=1000"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !types.HasValidPrecision(r.Amount) {
		return ierr.NewError("invalid amount").
			WithHint("Amount must have at most 2 decimal places").
			WithReportableDetails(map[string]any{
				"amount": r.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if !types.IsAmountInRange(r.Amount) {
		return ierr.NewError("invalid amount").
			WithHintf("Amount must be between %s and %s", types.MinAmount, types.MaxAmount).
			WithReportableDetails(map[string]any{
				"amount": r.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if err := r.PaymentMethod.Validate(); err != nil {
		return err
	}
	if r.PaymentMethod.RequiresTransactionID() && (r.TransactionID == nil || *r.TransactionID == "") {
		return ierr.NewError("missing transaction id").
			WithHintf("Transaction ID is required for %s payments", r.PaymentMethod).
			Mark(ierr.ErrValidation)
	}
	if r.PaymentStatus != nil {
		if err := r.PaymentStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RecordPaymentRequest) ToPayment(ctx context.Context) *payment.Payment {
	status := types.PaymentStatusCompleted
	if r.PaymentStatus != nil {
		status = *r.PaymentStatus
	}
	paidAt := time.Now().UTC()
	if r.PaidAt != nil {
		paidAt = r.PaidAt.UTC()
	}

	p := &payment.Payment{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:     r.InvoiceID,
		Amount:        r.Amount,
		PaymentMethod: r.PaymentMethod,
		TransactionID: r.TransactionID,
		PaymentStatus: status,
		Notes:         r.Notes,
		PaidAt:        paidAt,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if userID := types.GetUserID(ctx); userID != "" {
		p.RecordedBy = &userID
	}
	return p
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	*payment.Payment
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{Payment: p}
}

// RecordPaymentResponse returns the recorded payment together with the
// invoice status and balance it left behind
type RecordPaymentResponse struct {
	*PaymentResponse
	InvoiceStatus types.InvoiceStatus    `json:"invoice_status"`
	Balance       invoice.BalanceSummary `json:"balance"`
}

// ListPaymentsResponse represents a paginated list of payments
type ListPaymentsResponse = types.ListResponse[*PaymentResponse]

// PaymentStatsResponse aggregates payments for administrative reporting
type PaymentStatsResponse struct {
	*payment.Stats
}
