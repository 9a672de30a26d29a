package types

import (
	"time"

	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/samber/lo"
)

// PaymentStatus is the processing state of a single payment record.
// Pending payments reserve invoice balance until they complete or fail.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusCompleted,
		PaymentStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentFilter represents filters for listing payments
type PaymentFilter struct {
	*QueryFilter

	InvoiceID     string        `json:"invoice_id,omitempty" form:"invoice_id"`
	PatientID     string        `json:"patient_id,omitempty" form:"patient_id"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty" form:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty" form:"payment_method"`
	PaidAfter     *time.Time    `json:"paid_after,omitempty" form:"paid_after" time_format:"2006-01-02"`
	PaidBefore    *time.Time    `json:"paid_before,omitempty" form:"paid_before" time_format:"2006-01-02"`
}

// NewPaymentFilter creates a new payment filter with default pagination
func NewPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitPaymentFilter creates a new payment filter without pagination
func NewNoLimitPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *PaymentFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.PaymentStatus != "" {
		if err := f.PaymentStatus.Validate(); err != nil {
			return err
		}
	}
	if f.PaymentMethod != "" {
		if err := f.PaymentMethod.Validate(); err != nil {
			return err
		}
	}
	if f.PaidAfter != nil && f.PaidBefore != nil && f.PaidBefore.Before(*f.PaidAfter) {
		return ierr.NewError("invalid date range").
			WithHint("paid_before must not precede paid_after").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *PaymentFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *PaymentFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// IsUnlimited implements BaseFilter interface
func (f *PaymentFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return false
	}
	return f.QueryFilter.IsUnlimited()
}
