package invoice

import (
	"context"
	"time"

	"github.com/wellcare/billing/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// CreateWithItems persists an invoice header and its line items atomically
	CreateWithItems(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice by ID including its line items
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetForUpdate retrieves an invoice with a row lock held for the duration
	// of the surrounding transaction. Callers must be inside a transaction.
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// Update persists invoice header fields (total, status, due date, method)
	Update(ctx context.Context, inv *Invoice) error

	// UpdateStatus persists just the derived settlement status
	UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus) error

	// AddItem appends a line item to an existing invoice
	AddItem(ctx context.Context, item *InvoiceItem) error

	// RemoveItem deletes a line item from an invoice
	RemoveItem(ctx context.Context, invoiceID, itemID string) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// NextInvoiceNumber increments and returns the year-scoped invoice number
	// sequence. Must be called inside the transaction that inserts the invoice.
	NextInvoiceNumber(ctx context.Context, year int) (string, error)

	// ListUnpaidDueBefore retrieves invoices with a due date before t that are
	// not yet fully paid, for the overdue sweep
	ListUnpaidDueBefore(ctx context.Context, t time.Time) ([]*Invoice, error)
}
