package testutil

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wellcare/billing/internal/domain/payment"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
	invoicePatients map[string]string
}

// NewInMemoryPaymentStore creates a new in-memory payment repository
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore:   NewInMemoryStore[*payment.Payment](),
		invoicePatients: make(map[string]string),
	}
}

// Clear resets all stored data
func (s *InMemoryPaymentStore) Clear() {
	s.InMemoryStore.Clear()
	s.invoicePatients = make(map[string]string)
}

// LinkInvoicePatient teaches the store which patient an invoice belongs to,
// standing in for the join the SQL repository performs when filtering
// payments by patient.
func (s *InMemoryPaymentStore) LinkInvoicePatient(invoiceID, patientID string) {
	s.invoicePatients[invoiceID] = patientID
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, p.ID, p); err != nil {
		return ierr.WithError(err).
			WithHint("Payment already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	payments, err := s.InMemoryStore.List(ctx, invoiceID, func(ctx context.Context, p *payment.Payment, filter interface{}) bool {
		return p.InvoiceID == filter.(string) && p.Status == types.StatusPublished
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].PaidAt.Before(payments[j].PaidAt)
	})
	return payments, nil
}

func (s *InMemoryPaymentStore) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	payments, err := s.InMemoryStore.List(ctx, transactionID, func(ctx context.Context, p *payment.Payment, filter interface{}) bool {
		return p.TransactionID != nil && *p.TransactionID == filter.(string) && p.Status == types.StatusPublished
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ierr.NewError("payment not found").
			WithHintf("No payment recorded for transaction %s", transactionID).
			Mark(ierr.ErrNotFound)
	}
	return payments[0], nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	return s.InMemoryStore.List(ctx, filter, s.paymentFilterFn, paymentSortFn)
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, s.paymentFilterFn)
}

func (s *InMemoryPaymentStore) GetStats(ctx context.Context) (*payment.Stats, error) {
	payments, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	stats := &payment.Stats{
		TotalCollected: decimal.Zero,
		TotalPending:   decimal.Zero,
		ByMethod:       make(map[types.PaymentMethod]decimal.Decimal),
	}
	for _, p := range payments {
		if p.Status != types.StatusPublished {
			continue
		}
		switch p.PaymentStatus {
		case types.PaymentStatusCompleted:
			stats.TotalCollected = stats.TotalCollected.Add(p.Amount)
			stats.CompletedCount++
			if existing, ok := stats.ByMethod[p.PaymentMethod]; ok {
				stats.ByMethod[p.PaymentMethod] = existing.Add(p.Amount)
			} else {
				stats.ByMethod[p.PaymentMethod] = p.Amount
			}
		case types.PaymentStatusPending:
			stats.TotalPending = stats.TotalPending.Add(p.Amount)
			stats.PendingCount++
		case types.PaymentStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (s *InMemoryPaymentStore) paymentFilterFn(ctx context.Context, p *payment.Payment, filter interface{}) bool {
	f, ok := filter.(*types.PaymentFilter)
	if !ok || f == nil {
		return true
	}
	if p.Status != f.GetStatus() {
		return false
	}
	if f.InvoiceID != "" && p.InvoiceID != f.InvoiceID {
		return false
	}
	if f.PatientID != "" && s.invoicePatients[p.InvoiceID] != f.PatientID {
		return false
	}
	if f.PaymentStatus != "" && p.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.PaymentMethod != "" && p.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.PaidAfter != nil && p.PaidAt.Before(*f.PaidAfter) {
		return false
	}
	if f.PaidBefore != nil && p.PaidAt.After(*f.PaidBefore) {
		return false
	}
	return true
}

func paymentSortFn(i, j *payment.Payment) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
