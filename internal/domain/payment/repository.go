package payment

import (
	"context"

	"github.com/wellcare/billing/internal/types"
)

// Repository defines the interface for payment persistence
type Repository interface {
	// Create persists a new payment record
	Create(ctx context.Context, p *Payment) error

	// Get retrieves a payment by ID
	Get(ctx context.Context, id string) (*Payment, error)

	// ListByInvoice retrieves every payment against an invoice, ordered by
	// paid_at ascending (the order receipts render them in)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Payment, error)

	// GetByTransactionID retrieves a payment by its external transaction
	// reference, used to spot duplicate submissions
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)

	// List retrieves payments based on filter criteria
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)

	// Count returns the total count of payments based on filter criteria
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// GetStats aggregates payments for administrative reporting
	GetStats(ctx context.Context) (*Stats, error)
}
