package service

import (
	"context"
	"time"

	"github.com/wellcare/billing/internal/api/dto"
	"github.com/wellcare/billing/internal/domain/invoice"
	"github.com/wellcare/billing/internal/domain/payment"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// PaymentService defines the interface for payment operations
type PaymentService interface {
	RecordPayment(ctx context.Context, req dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPaymentsByInvoice(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error)
	ListPaymentsByPatient(ctx context.Context, patientID string, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
	GetPaymentStats(ctx context.Context) (*dto.PaymentStatsResponse, error)
}

type paymentService struct {
	ServiceParams
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

// RecordPayment records a payment against an invoice. The invoice row is
// locked for the duration of the transaction, so two concurrent payments
// against the same invoice are applied one after the other and the second
// sees the balance the first left behind. Pending payments reserve balance
// the same way completed ones consume it.
func (s *paymentService) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest) (*dto.RecordPaymentResponse, error) {
	if err := ensurePaymentRecorder(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.TransactionID != nil && *req.TransactionID != "" {
		existing, err := s.PaymentRepo.GetByTransactionID(ctx, *req.TransactionID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		if existing != nil {
			return nil, ierr.NewError("duplicate transaction").
				WithHintf("A payment for transaction %s already exists", *req.TransactionID).
				WithReportableDetails(map[string]any{
					"transaction_id": *req.TransactionID,
					"payment_id":     existing.ID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	var (
		p       *payment.Payment
		balance invoice.BalanceSummary
		status  types.InvoiceStatus
	)

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return err
		}

		payments, err := s.PaymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		current := invoice.ComputeBalance(inv.TotalAmount, payments)

		p = req.ToPayment(ctx)
		if err := p.Validate(); err != nil {
			return err
		}

		if p.PaymentStatus != types.PaymentStatusFailed && p.Amount.GreaterThan(current.Available) {
			return ierr.NewError("payment exceeds available balance").
				WithHintf("Only %s is available on invoice %s", current.Available.StringFixed(2), inv.InvoiceNumber).
				WithReportableDetails(map[string]any{
					"amount_requested": p.Amount,
					"remaining":        current.Remaining,
					"pending":          current.Pending,
					"available":        current.Available,
				}).
				Mark(ierr.ErrOverpayment)
		}

		p.ReceiptNumber = types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_RECEIPT)

		if err := s.PaymentRepo.Create(ctx, p); err != nil {
			return err
		}

		payments = append(payments, p)
		balance = invoice.ComputeBalance(inv.TotalAmount, payments)
		status = invoice.DeriveStatus(balance, inv.DueDate, time.Now().UTC())
		if status != inv.InvoiceStatus {
			if err := s.InvoiceRepo.UpdateStatus(ctx, inv.ID, status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"amount", p.Amount,
		"payment_status", p.PaymentStatus,
		"invoice_status", status,
		"receipt_number", p.ReceiptNumber,
	)

	return &dto.RecordPaymentResponse{
		PaymentResponse: dto.NewPaymentResponse(p),
		InvoiceStatus:   status,
		Balance:         balance,
	}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, p.InvoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInvoiceAccess(ctx, inv); err != nil {
		return nil, err
	}

	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPaymentsByInvoice(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInvoiceAccess(ctx, inv); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = dto.NewPaymentResponse(p)
	}

	return &dto.ListPaymentsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(len(items), len(items), 0),
	}, nil
}

// ListPaymentsByPatient returns payments across all of one patient's
// invoices. Patients may only ask for their own; ListPayments enforces
// that by overwriting the filter, so here it is checked up front.
func (s *paymentService) ListPaymentsByPatient(ctx context.Context, patientID string, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if _, err := s.PatientRepo.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if types.GetUserRole(ctx) == types.UserRolePatient {
		pat, err := s.PatientRepo.GetByUserID(ctx, types.GetUserID(ctx))
		if err != nil {
			return nil, err
		}
		if pat.ID != patientID {
			return nil, accessDenied()
		}
	}

	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	filter.PatientID = patientID
	return s.ListPayments(ctx, filter)
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if err := ensureBillingReader(ctx); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	// Patients only ever see payments on their own invoices.
	if types.GetUserRole(ctx) == types.UserRolePatient {
		pat, err := s.PatientRepo.GetByUserID(ctx, types.GetUserID(ctx))
		if err != nil {
			return nil, err
		}
		filter.PatientID = pat.ID
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = dto.NewPaymentResponse(p)
	}

	return &dto.ListPaymentsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

// GetPaymentStats aggregates collected and outstanding amounts for
// administrative reporting.
func (s *paymentService) GetPaymentStats(ctx context.Context) (*dto.PaymentStatsResponse, error) {
	role := types.GetUserRole(ctx)
	if role != types.UserRoleAdmin && !types.HasPermission(ctx, types.PermissionViewReports) {
		return nil, accessDenied()
	}

	stats, err := s.PaymentRepo.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentStatsResponse{Stats: stats}, nil
}
