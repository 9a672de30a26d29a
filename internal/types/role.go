package types

import (
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/samber/lo"
)

// UserRole identifies the kind of requester acting on billing records
type UserRole string

const (
	UserRolePatient UserRole = "patient"
	UserRoleStaff   UserRole = "staff"
	UserRoleAdmin   UserRole = "admin"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) Validate() error {
	allowed := []UserRole{
		UserRolePatient,
		UserRoleStaff,
		UserRoleAdmin,
	}
	if !lo.Contains(allowed, r) {
		return ierr.NewError("invalid user role").
			WithHint("Please provide a valid user role").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Permissions staff accounts may carry. Admin role implies all of them.
const (
	PermissionProcessPayments = "process_payments"
	PermissionEditInvoices    = "edit_invoices"
	PermissionViewReports     = "view_reports"
)
