package catalog

import (
	"github.com/shopspring/decimal"
	"github.com/wellcare/billing/internal/types"
)

// Service is one billable entry in the clinic's price list. Invoice items
// copy the price at creation time; later catalog changes never touch an
// existing invoice.
type Service struct {
	ID          string          `db:"id" json:"id"`
	Code        string          `db:"code" json:"code"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`

	types.BaseModel
}
