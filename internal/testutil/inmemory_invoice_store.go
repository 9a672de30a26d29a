package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/wellcare/billing/internal/domain/invoice"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	mu        sync.Mutex
	rowLocks  map[string]*sync.Mutex
	sequences map[int]int64
}

// NewInMemoryInvoiceStore creates a new in-memory invoice repository
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		rowLocks:      make(map[string]*sync.Mutex),
		sequences:     make(map[int]int64),
	}
}

// Clear resets all stored data
func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InMemoryStore.Clear()
	s.rowLocks = make(map[string]*sync.Mutex)
	s.sequences = make(map[int]int64)
}

func (s *InMemoryInvoiceStore) CreateWithItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, inv.ID, inv); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

// GetForUpdate takes the invoice's row lock for the rest of the simulated
// transaction, so concurrent callers serialize exactly as they would on a
// SELECT FOR UPDATE.
func (s *InMemoryInvoiceStore) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	lock := s.rowLock(id)
	lock.Lock()
	if !RegisterTxUnlock(ctx, lock.Unlock) {
		lock.Unlock()
		return nil, ierr.NewError("row lock outside transaction").
			WithHint("GetForUpdate must be called inside a transaction").
			Mark(ierr.ErrSystem)
	}
	return s.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) rowLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, ok := s.rowLocks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.rowLocks[id] = lock
	return lock
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	inv.UpdatedAt = time.Now().UTC()
	if err := s.InMemoryStore.Update(ctx, inv.ID, inv); err != nil {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryInvoiceStore) UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inv.InvoiceStatus = status
	return s.Update(ctx, inv)
}

func (s *InMemoryInvoiceStore) AddItem(ctx context.Context, item *invoice.InvoiceItem) error {
	inv, err := s.Get(ctx, item.InvoiceID)
	if err != nil {
		return err
	}
	for _, existing := range inv.Items {
		if existing.ID == item.ID {
			return ierr.NewError("item already exists").
				WithHint("Invoice item already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	inv.Items = append(inv.Items, item)
	return nil
}

func (s *InMemoryInvoiceStore) RemoveItem(ctx context.Context, invoiceID, itemID string) error {
	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	remaining := make([]*invoice.InvoiceItem, 0, len(inv.Items))
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
	inv.Items = remaining
	return nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	return s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

// NextInvoiceNumber increments the per-year counter under the store lock
func (s *InMemoryInvoiceStore) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[year]++
	return invoice.FormatInvoiceNumber(year, s.sequences[year]), nil
}

func (s *InMemoryInvoiceStore) ListUnpaidDueBefore(ctx context.Context, t time.Time) ([]*invoice.Invoice, error) {
	return s.InMemoryStore.List(ctx, t, func(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
		cutoff := filter.(time.Time)
		if inv.Status != types.StatusPublished || inv.DueDate == nil {
			return false
		}
		open := inv.InvoiceStatus == types.InvoiceStatusPending ||
			inv.InvoiceStatus == types.InvoiceStatusPartiallyPaid
		return open && inv.DueDate.Before(cutoff)
	}, invoiceSortFn)
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}
	if inv.Status != f.GetStatus() {
		return false
	}
	if f.PatientID != "" && inv.PatientID != f.PatientID {
		return false
	}
	if f.InvoiceType != "" && inv.InvoiceType != f.InvoiceType {
		return false
	}
	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}
	if f.PaymentMethod != "" && inv.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.CreatedAfter != nil && inv.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && inv.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
