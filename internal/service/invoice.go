package service

import (
	"context"
	"time"

	"github.com/wellcare/billing/internal/api/dto"
	"github.com/wellcare/billing/internal/domain/invoice"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// InvoiceService defines the interface for invoice operations
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	AddInvoiceItem(ctx context.Context, invoiceID string, req dto.AddInvoiceItemRequest) (*dto.InvoiceResponse, error)
	RemoveInvoiceItem(ctx context.Context, invoiceID, itemID string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	RecalculateInvoiceStatus(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkOverdueInvoices(ctx context.Context) (int, error)
	GetReceipt(ctx context.Context, invoiceID string) (*dto.ReceiptResponse, error)
}

type invoiceService struct {
	ServiceParams
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

// CreateInvoice creates an invoice with its line items. The invoice number
// is allocated and the rows inserted in one transaction so concurrent
// creations never share a number.
func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.PatientRepo.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}

	inv := req.ToInvoice(ctx)
	if err := s.resolveCatalogItems(ctx, inv.Items); err != nil {
		return nil, err
	}
	inv.TotalAmount = invoice.ComputeTotal(inv.Items)

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.InvoiceRepo.NextInvoiceNumber(ctx, inv.CreatedAt.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := inv.Validate(); err != nil {
			return err
		}

		return s.InvoiceRepo.CreateWithItems(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"patient_id", inv.PatientID,
		"total_amount", inv.TotalAmount,
	)

	balance := invoice.ComputeBalance(inv.TotalAmount, nil)
	return dto.NewInvoiceResponse(inv).WithBalance(balance), nil
}

// resolveCatalogItems copies catalog name and price onto lines that
// reference a service and left those fields unset. The copied price stays
// on the line even if the catalog changes later.
func (s *invoiceService) resolveCatalogItems(ctx context.Context, items []*invoice.InvoiceItem) error {
	for _, item := range items {
		if item.ServiceID == nil {
			continue
		}
		svc, err := s.CatalogRepo.Get(ctx, *item.ServiceID)
		if err != nil {
			return err
		}
		if item.Description == "" {
			item.Description = svc.Name
		}
		if item.UnitPrice.IsZero() {
			item.UnitPrice = svc.Price
		}
	}
	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInvoiceAccess(ctx, inv); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	balance := invoice.ComputeBalance(inv.TotalAmount, payments)
	return dto.NewInvoiceResponse(inv).WithBalance(balance), nil
}

// UpdateInvoice is the administrative override surface: due date, payment
// method, a directly overridden total and, for corrections, a forced
// settlement status. An overridden total is taken as-is rather than
// recomputed from items, but may not undercut what has already been
// collected. When the total changes and no explicit status was forced,
// the settlement status is re-derived from the recorded payments.
func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := ensureAdmin(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.PaymentMethod != nil {
			inv.PaymentMethod = *req.PaymentMethod
		}
		if req.DueDate != nil {
			inv.DueDate = req.DueDate
		}
		if req.InvoiceStatus != nil {
			inv.InvoiceStatus = *req.InvoiceStatus
		}
		if req.TotalAmount != nil {
			payments, err := s.PaymentRepo.ListByInvoice(ctx, id)
			if err != nil {
				return err
			}
			balance := invoice.ComputeBalance(*req.TotalAmount, payments)
			if balance.Paid.GreaterThan(*req.TotalAmount) {
				return ierr.NewError("total below amount paid").
					WithHintf("Total cannot be set below the %s already collected", balance.Paid).
					Mark(ierr.ErrInvalidOperation)
			}
			inv.TotalAmount = *req.TotalAmount
			if req.InvoiceStatus == nil {
				inv.InvoiceStatus = invoice.DeriveStatus(balance, inv.DueDate, time.Now().UTC())
			}
		}

		if err := inv.Validate(); err != nil {
			return err
		}
		return s.InvoiceRepo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("updated invoice", "invoice_id", id, "updated_by", types.GetUserID(ctx))
	return s.GetInvoice(ctx, id)
}

// AddInvoiceItem appends a line to an open invoice and recomputes the total
// and settlement status under the invoice row lock.
func (s *invoiceService) AddInvoiceItem(ctx context.Context, invoiceID string, req dto.AddInvoiceItemRequest) (*dto.InvoiceResponse, error) {
	if err := ensurePaymentRecorder(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsMutable() {
			return errInvoiceClosed(inv)
		}

		item := req.ToInvoiceItem(ctx, inv.ID)
		if err := s.resolveCatalogItems(ctx, []*invoice.InvoiceItem{item}); err != nil {
			return err
		}
		if err := item.Validate(); err != nil {
			return err
		}
		if err := s.InvoiceRepo.AddItem(ctx, item); err != nil {
			return err
		}

		inv.Items = append(inv.Items, item)
		return s.reprice(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, invoiceID)
}

// RemoveInvoiceItem drops a line from an open invoice. The last line cannot
// be removed, and the total may never fall below what has already been paid.
func (s *invoiceService) RemoveInvoiceItem(ctx context.Context, invoiceID, itemID string) (*dto.InvoiceResponse, error) {
	if err := ensurePaymentRecorder(ctx); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsMutable() {
			return errInvoiceClosed(inv)
		}
		if len(inv.Items) <= 1 {
			return ierr.NewError("cannot remove last item").
				WithHint("An invoice must keep at least one line item").
				Mark(ierr.ErrInvalidOperation)
		}

		remaining := make([]*invoice.InvoiceItem, 0, len(inv.Items)-1)
		found := false
		for _, item := range inv.Items {
			if item.ID == itemID {
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			return ierr.NewError("invoice item not found").
				WithHintf("Item %s is not on invoice %s", itemID, invoiceID).
				Mark(ierr.ErrNotFound)
		}

		payments, err := s.PaymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		newTotal := invoice.ComputeTotal(remaining)
		paid := invoice.ComputeBalance(inv.TotalAmount, payments).Paid
		if newTotal.LessThan(paid) {
			return ierr.NewError("total below amount paid").
				WithHint("Removing this item would drop the total below what has already been paid").
				WithReportableDetails(map[string]any{
					"new_total":   newTotal,
					"amount_paid": paid,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		if err := s.InvoiceRepo.RemoveItem(ctx, inv.ID, itemID); err != nil {
			return err
		}

		inv.Items = remaining
		return s.reprice(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, invoiceID)
}

// reprice recomputes the invoice total from its items and re-derives the
// settlement status from the recorded payments. Must run under the invoice
// row lock.
func (s *invoiceService) reprice(ctx context.Context, inv *invoice.Invoice) error {
	inv.TotalAmount = invoice.ComputeTotal(inv.Items)

	payments, err := s.PaymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	balance := invoice.ComputeBalance(inv.TotalAmount, payments)
	inv.InvoiceStatus = invoice.DeriveStatus(balance, inv.DueDate, time.Now().UTC())

	return s.InvoiceRepo.Update(ctx, inv)
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if err := ensureBillingReader(ctx); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	// Patients only ever see their own invoices, whatever the filter says.
	if types.GetUserRole(ctx) == types.UserRolePatient {
		pat, err := s.PatientRepo.GetByUserID(ctx, types.GetUserID(ctx))
		if err != nil {
			return nil, err
		}
		filter.PatientID = pat.ID
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = dto.NewInvoiceResponse(inv)
	}

	return &dto.ListInvoicesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

// RecalculateInvoiceStatus re-derives the settlement status from the
// recorded payments. Safe to call repeatedly; a no-op when the status
// already matches.
func (s *invoiceService) RecalculateInvoiceStatus(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		payments, err := s.PaymentRepo.ListByInvoice(ctx, id)
		if err != nil {
			return err
		}

		balance := invoice.ComputeBalance(inv.TotalAmount, payments)
		status := invoice.DeriveStatus(balance, inv.DueDate, time.Now().UTC())
		if status == inv.InvoiceStatus {
			return nil
		}
		return s.InvoiceRepo.UpdateStatus(ctx, id, status)
	})
	if err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, id)
}

// MarkOverdueInvoices sweeps invoices whose due date has passed and flags
// the unpaid ones overdue. Returns the number of invoices transitioned.
func (s *invoiceService) MarkOverdueInvoices(ctx context.Context) (int, error) {
	if err := ensureAdmin(ctx); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	due, err := s.InvoiceRepo.ListUnpaidDueBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for _, inv := range due {
		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			locked, err := s.InvoiceRepo.GetForUpdate(ctx, inv.ID)
			if err != nil {
				return err
			}

			payments, err := s.PaymentRepo.ListByInvoice(ctx, locked.ID)
			if err != nil {
				return err
			}

			balance := invoice.ComputeBalance(locked.TotalAmount, payments)
			status := invoice.DeriveStatus(balance, locked.DueDate, now)
			if status == locked.InvoiceStatus || status != types.InvoiceStatusOverdue {
				return nil
			}
			if err := s.InvoiceRepo.UpdateStatus(ctx, locked.ID, status); err != nil {
				return err
			}
			transitioned++
			return nil
		})
		if err != nil {
			s.Logger.Errorw("overdue sweep failed for invoice", "invoice_id", inv.ID, "error", err)
			return transitioned, err
		}
	}

	if transitioned > 0 {
		s.Logger.Infow("marked invoices overdue", "count", transitioned)
	}
	return transitioned, nil
}

// GetReceipt assembles the printable receipt: invoice lines, the payment
// history in the order payments were made, and the closing balance.
func (s *invoiceService) GetReceipt(ctx context.Context, invoiceID string) (*dto.ReceiptResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInvoiceAccess(ctx, inv); err != nil {
		return nil, err
	}

	pat, err := s.PatientRepo.Get(ctx, inv.PatientID)
	if err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	balance := invoice.ComputeBalance(inv.TotalAmount, payments)

	receipt := &dto.ReceiptResponse{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceStatus: string(inv.InvoiceStatus),
		PatientName:   pat.FullName(),
		IssuedAt:      inv.CreatedAt.Format(time.RFC3339),
		Lines:         dto.NewReceiptLines(inv.Items),
		TotalAmount:   inv.TotalAmount.StringFixed(2),
		AmountPaid:    balance.Paid.StringFixed(2),
		Balance:       balance.Remaining.StringFixed(2),
	}
	if inv.DueDate != nil {
		receipt.DueDate = inv.DueDate.Format("2006-01-02")
	}

	for _, p := range payments {
		if p.PaymentStatus == types.PaymentStatusFailed {
			continue
		}
		receipt.Payments = append(receipt.Payments, dto.ReceiptPayment{
			ReceiptNumber: p.ReceiptNumber,
			Amount:        p.Amount.StringFixed(2),
			PaymentMethod: string(p.PaymentMethod),
			PaidAt:        p.PaidAt.Format(time.RFC3339),
		})
	}

	return receipt, nil
}

func errInvoiceClosed(inv *invoice.Invoice) error {
	return ierr.NewError("invoice closed to changes").
		WithHintf("Items cannot be changed on a %s invoice", inv.InvoiceStatus).
		WithReportableDetails(map[string]any{
			"invoice_id":     inv.ID,
			"invoice_status": inv.InvoiceStatus,
		}).
		Mark(ierr.ErrInvalidOperation)
}
