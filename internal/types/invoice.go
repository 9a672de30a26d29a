package types

import (
	"time"

	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/samber/lo"
)

// InvoiceType categorizes the clinical context an invoice was raised in
type InvoiceType string

const (
	// InvoiceTypeOPD is an out-patient department visit invoice
	InvoiceTypeOPD InvoiceType = "opd"
	// InvoiceTypeAdmission is an in-patient admission invoice
	InvoiceTypeAdmission InvoiceType = "admission"
	// InvoiceTypeRunningBill accumulates charges during an ongoing stay
	InvoiceTypeRunningBill InvoiceType = "running_bill"
)

func (t InvoiceType) String() string {
	return string(t)
}

func (t InvoiceType) Validate() error {
	allowed := []InvoiceType{
		InvoiceTypeOPD,
		InvoiceTypeAdmission,
		InvoiceTypeRunningBill,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid invoice type").
			WithHint("Please provide a valid invoice type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceStatus is derived from the invoice balance and due date; it is never
// set directly except through an administrative override.
type InvoiceStatus string

const (
	InvoiceStatusPending       InvoiceStatus = "pending"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusPending,
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentMethod is how an invoice is expected to be settled, and how an
// individual payment was made.
type PaymentMethod string

const (
	PaymentMethodCash            PaymentMethod = "cash"
	PaymentMethodCard            PaymentMethod = "card"
	PaymentMethodBankTransfer    PaymentMethod = "bank_transfer"
	PaymentMethodInsurance       PaymentMethod = "insurance"
	PaymentMethodInsuranceCredit PaymentMethod = "insurance_credit"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	allowed := []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodCard,
		PaymentMethodBankTransfer,
		PaymentMethodInsurance,
		PaymentMethodInsuranceCredit,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid payment method").
			WithHint("Please provide a valid payment method").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RequiresTransactionID reports whether payments made with this method must
// carry an external transaction reference.
func (m PaymentMethod) RequiresTransactionID() bool {
	return m == PaymentMethodCard || m == PaymentMethodBankTransfer
}

// RequiresDueDate reports whether invoices settled with this method must
// carry a due date.
func (m PaymentMethod) RequiresDueDate() bool {
	return m == PaymentMethodInsuranceCredit
}

// InvoiceFilter represents filters for listing invoices
type InvoiceFilter struct {
	*QueryFilter

	PatientID     string          `json:"patient_id,omitempty" form:"patient_id"`
	InvoiceType   InvoiceType     `json:"invoice_type,omitempty" form:"invoice_type"`
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty" form:"payment_method"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty" form:"created_after" time_format:"2006-01-02"`
	CreatedBefore *time.Time      `json:"created_before,omitempty" form:"created_before" time_format:"2006-01-02"`
}

// NewInvoiceFilter creates a new invoice filter with default pagination
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitInvoiceFilter creates a new invoice filter without pagination
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.InvoiceType != "" {
		if err := f.InvoiceType.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if f.CreatedAfter != nil && f.CreatedBefore != nil && f.CreatedBefore.Before(*f.CreatedAfter) {
		return ierr.NewError("invalid date range").
			WithHint("created_before must not precede created_after").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *InvoiceFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *InvoiceFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// IsUnlimited implements BaseFilter interface
func (f *InvoiceFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return false
	}
	return f.QueryFilter.IsUnlimited()
}
