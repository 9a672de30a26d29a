package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wellcare/billing/internal/domain/invoice"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
	"github.com/wellcare/billing/internal/validator"
)

// CreateInvoiceItemRequest is one billable line on an invoice creation
// request. When a catalog service is referenced, description and unit price
// may be omitted; the catalog values are copied onto the line at creation
// time and stay fixed even if the catalog price changes later.
type CreateInvoiceItemRequest struct {
	ServiceID   *string         `json:"service_id,omitempty"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Quantity    int             `json:"quantity" validate:"required,min=1,max=1000"`
	UnitPrice   decimal.Decimal `json:"unit_price,omitempty"`
}

func (r *CreateInvoiceItemRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.ServiceID == nil && r.Description == "" {
		return ierr.NewError("missing description").
			WithHint("Description is required for items without a catalog service").
			Mark(ierr.ErrValidation)
	}
	if r.ServiceID == nil || !r.UnitPrice.IsZero() {
		if !types.HasValidPrecision(r.UnitPrice) {
			return ierr.NewError("invalid unit price").
				WithHint("Unit price must have at most 2 decimal places").
				Mark(ierr.ErrValidation)
		}
		if !types.IsAmountInRange(r.UnitPrice) {
			return ierr.NewError("invalid unit price").
				WithHintf("Unit price must be between %s and %s", types.MinAmount, types.MaxAmount).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func (r *CreateInvoiceItemRequest) ToInvoiceItem(ctx context.Context, invoiceID string) *invoice.InvoiceItem {
	return &invoice.InvoiceItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM),
		InvoiceID:   invoiceID,
		ServiceID:   r.ServiceID,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

// CreateInvoiceRequest creates an invoice with at least one line item. The
// total is always computed server side from the items.
type CreateInvoiceRequest struct {
	PatientID     string                      `json:"patient_id" validate:"required"`
	AppointmentID *string                     `json:"appointment_id,omitempty"`
	InvoiceType   types.InvoiceType           `json:"invoice_type" validate:"required"`
	PaymentMethod types.PaymentMethod         `json:"payment_method" validate:"required"`
	DueDate       *time.Time                  `json:"due_date,omitempty"`
	Items         []*CreateInvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.InvoiceType.Validate(); err != nil {
		return err
	}
	if err := r.PaymentMethod.Validate(); err != nil {
		return err
	}
	if r.PaymentMethod.RequiresDueDate() && r.DueDate == nil {
		return ierr.NewError("missing due date").
			WithHint("Due date is required for insurance credit invoices").
			Mark(ierr.ErrValidation)
	}
	if r.DueDate != nil && r.DueDate.Before(time.Now().UTC()) {
		return ierr.NewError("due date in the past").
			WithHint("Due date must not be in the past").
			Mark(ierr.ErrValidation)
	}
	for _, item := range r.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		PatientID:     r.PatientID,
		AppointmentID: r.AppointmentID,
		InvoiceType:   r.InvoiceType,
		PaymentMethod: r.PaymentMethod,
		InvoiceStatus: types.InvoiceStatusPending,
		DueDate:       r.DueDate,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	items := make([]*invoice.InvoiceItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = item.ToInvoiceItem(ctx, inv.ID)
	}
	inv.Items = items
	inv.TotalAmount = invoice.ComputeTotal(items)
	return inv
}

// UpdateInvoiceRequest is the administrative override surface. Only the
// fields present are touched; item edits go through the item endpoints.
// TotalAmount overrides the invoice total directly without recomputing
// from items.
type UpdateInvoiceRequest struct {
	PaymentMethod *types.PaymentMethod `json:"payment_method,omitempty"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	InvoiceStatus *types.InvoiceStatus `json:"invoice_status,omitempty"`
	TotalAmount   *decimal.Decimal     `json:"total_amount,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if r.PaymentMethod == nil && r.DueDate == nil && r.InvoiceStatus == nil && r.TotalAmount == nil {
		return ierr.NewError("empty update").
			WithHint("At least one field must be provided").
			Mark(ierr.ErrValidation)
	}
	if r.PaymentMethod != nil {
		if err := r.PaymentMethod.Validate(); err != nil {
			return err
		}
	}
	if r.InvoiceStatus != nil {
		if err := r.InvoiceStatus.Validate(); err != nil {
			return err
		}
	}
	if r.TotalAmount != nil {
		if !types.HasValidPrecision(*r.TotalAmount) {
			return ierr.NewError("invalid total amount").
				WithHint("Total amount must have at most 2 decimal places").
				Mark(ierr.ErrValidation)
		}
		if !r.TotalAmount.IsPositive() {
			return ierr.NewError("invalid total amount").
				WithHint("Total amount must be greater than zero").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// AddInvoiceItemRequest appends a line item to an open invoice
type AddInvoiceItemRequest struct {
	CreateInvoiceItemRequest
}

// InvoiceResponse is an invoice together with its live balance breakdown
type InvoiceResponse struct {
	*invoice.Invoice
	Balance *invoice.BalanceSummary `json:"balance,omitempty"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}

func (r *InvoiceResponse) WithBalance(balance invoice.BalanceSummary) *InvoiceResponse {
	r.Balance = &balance
	return r
}

// ListInvoicesResponse represents a paginated list of invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]
