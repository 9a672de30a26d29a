package invoice

import (
	"fmt"
	"time"
)

// InvoiceSequence is the per-year counter backing invoice number generation.
// The counter row is incremented inside the same transaction as the invoice
// insert so concurrent creations can never observe the same value.
type InvoiceSequence struct {
	Year      int       `db:"year"`
	LastValue int64     `db:"last_value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FormatInvoiceNumber renders a sequence value as a human-readable invoice
// number, e.g. WC-2025-0001. The sequence is scoped per year.
func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("WC-%d-%04d", year, seq)
}
