package service

import (
	"context"

	"github.com/wellcare/billing/internal/domain/invoice"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// ensureInvoiceAccess enforces the read access rules: admins see every
// invoice, staff only when they hold the payment processing permission,
// patients only the invoices raised against their own record.
func (s ServiceParams) ensureInvoiceAccess(ctx context.Context, inv *invoice.Invoice) error {
	role := types.GetUserRole(ctx)
	if role == types.UserRoleAdmin {
		return nil
	}
	if role == types.UserRoleStaff {
		if types.HasPermission(ctx, types.PermissionProcessPayments) {
			return nil
		}
		return accessDenied()
	}

	pat, err := s.PatientRepo.GetByUserID(ctx, types.GetUserID(ctx))
	if err != nil {
		if ierr.IsNotFound(err) {
			return accessDenied()
		}
		return err
	}
	if pat.ID != inv.PatientID {
		return accessDenied()
	}
	return nil
}

// ensureBillingReader gates the broad list reads. Admins pass, staff only
// with the payment processing permission. Patients pass too; the list
// operations scope them down to their own records.
func ensureBillingReader(ctx context.Context) error {
	role := types.GetUserRole(ctx)
	if role == types.UserRoleStaff && !types.HasPermission(ctx, types.PermissionProcessPayments) {
		return accessDenied()
	}
	return nil
}

// ensurePaymentRecorder allows admins unconditionally and staff holding the
// payment processing permission. Patients never record payments.
func ensurePaymentRecorder(ctx context.Context) error {
	role := types.GetUserRole(ctx)
	if role == types.UserRoleAdmin {
		return nil
	}
	if role == types.UserRoleStaff && types.HasPermission(ctx, types.PermissionProcessPayments) {
		return nil
	}
	return accessDenied()
}

func ensureAdmin(ctx context.Context) error {
	if types.GetUserRole(ctx) == types.UserRoleAdmin {
		return nil
	}
	return accessDenied()
}

func accessDenied() error {
	return ierr.NewError("permission denied").
		WithHint("You do not have access to this resource").
		Mark(ierr.ErrPermissionDenied)
}
