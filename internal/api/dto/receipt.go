package dto

import (
	"github.com/wellcare/billing/internal/domain/invoice"
)

// ReceiptLine is one invoice line rendered on a receipt
type ReceiptLine struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// ReceiptPayment is one payment entry on a receipt, in the order the
// payments were made
type ReceiptPayment struct {
	ReceiptNumber string `json:"receipt_number"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PaidAt        string `json:"paid_at"`
}

// ReceiptResponse is the full printable receipt for an invoice: header,
// lines, payment history and the closing balance
type ReceiptResponse struct {
	InvoiceNumber string           `json:"invoice_number"`
	InvoiceStatus string           `json:"invoice_status"`
	PatientName   string           `json:"patient_name"`
	IssuedAt      string           `json:"issued_at"`
	DueDate       string           `json:"due_date,omitempty"`
	Lines         []ReceiptLine    `json:"lines"`
	Payments      []ReceiptPayment `json:"payments"`
	TotalAmount   string           `json:"total_amount"`
	AmountPaid    string           `json:"amount_paid"`
	Balance       string           `json:"balance"`
}

// NewReceiptLines renders invoice items as receipt lines
func NewReceiptLines(items []*invoice.InvoiceItem) []ReceiptLine {
	lines := make([]ReceiptLine, len(items))
	for i, item := range items {
		lines[i] = ReceiptLine{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Total:       item.TotalPrice().StringFixed(2),
		}
	}
	return lines
}
