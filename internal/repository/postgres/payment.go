package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wellcare/billing/internal/domain/payment"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	"github.com/wellcare/billing/internal/types"
)

type paymentRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPaymentRepository(client postgres.IClient, logger *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, logger: logger}
}

const paymentColumns = `
	id, invoice_id, amount, payment_method, transaction_id, payment_status,
	receipt_number, notes, paid_at, recorded_by,
	status, created_at, updated_at, created_by, updated_by
`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.Debugw("creating payment", "payment_id", p.ID, "invoice_id", p.InvoiceID, "amount", p.Amount)

	query := `
	INSERT INTO payments (` + paymentColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
	)
	`

	q := r.client.Querier(ctx)
	_, err := q.ExecContext(ctx, query,
		p.ID,
		p.InvoiceID,
		p.Amount,
		p.PaymentMethod,
		p.TransactionID,
		p.PaymentStatus,
		p.ReceiptNumber,
		p.Notes,
		p.PaidAt,
		p.RecordedBy,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
		p.CreatedBy,
		p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND status = $2`

	var p payment.Payment
	q := r.client.Querier(ctx)
	err := q.GetContext(ctx, &p, query, id, types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("payment not found").
				WithHintf("Payment with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"payment_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	query := `
	SELECT ` + paymentColumns + `
	FROM payments
	WHERE invoice_id = $1 AND status = $2
	ORDER BY paid_at ASC, created_at ASC
	`

	var payments []*payment.Payment
	q := r.client.Querier(ctx)
	if err := q.SelectContext(ctx, &payments, query, invoiceID, types.StatusPublished); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments for invoice").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1 AND status = $2`

	var p payment.Payment
	q := r.client.Querier(ctx)
	err := q.GetContext(ctx, &p, query, transactionID, types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("payment not found").
				WithHintf("No payment recorded for transaction %s", transactionID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment by transaction id").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	query := `SELECT ` + qualifyPaymentColumns() + ` FROM payments p`
	where, args, joined := buildPaymentWhere(filter)
	if joined {
		query = `SELECT ` + qualifyPaymentColumns() + ` FROM payments p JOIN invoices i ON i.id = p.invoice_id`
	}
	query += where
	query += fmt.Sprintf(" ORDER BY p.%s %s", paymentSortColumn(filter.GetSort()), strings.ToUpper(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var payments []*payment.Payment
	q := r.client.Querier(ctx)
	if err := q.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	query := `SELECT COUNT(*) FROM payments p`
	where, args, joined := buildPaymentWhere(filter)
	if joined {
		query = `SELECT COUNT(*) FROM payments p JOIN invoices i ON i.id = p.invoice_id`
	}
	query += where

	var count int
	q := r.client.Querier(ctx)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count payments").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *paymentRepository) GetStats(ctx context.Context) (*payment.Stats, error) {
	query := `
	SELECT payment_status, payment_method, COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS total
	FROM payments
	WHERE status = $1
	GROUP BY payment_status, payment_method
	`

	q := r.client.Querier(ctx)
	rows, err := q.QueryxContext(ctx, query, types.StatusPublished)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to aggregate payment stats").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	stats := &payment.Stats{
		TotalCollected: decimal.Zero,
		TotalPending:   decimal.Zero,
		ByMethod:       make(map[types.PaymentMethod]decimal.Decimal),
	}

	for rows.Next() {
		var (
			status types.PaymentStatus
			method types.PaymentMethod
			cnt    int
			total  decimal.Decimal
		)
		if err := rows.Scan(&status, &method, &cnt, &total); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan payment stats").
				Mark(ierr.ErrDatabase)
		}

		switch status {
		case types.PaymentStatusCompleted:
			stats.TotalCollected = stats.TotalCollected.Add(total)
			stats.CompletedCount += cnt
			if existing, ok := stats.ByMethod[method]; ok {
				stats.ByMethod[method] = existing.Add(total)
			} else {
				stats.ByMethod[method] = total
			}
		case types.PaymentStatusPending:
			stats.TotalPending = stats.TotalPending.Add(total)
			stats.PendingCount += cnt
		case types.PaymentStatusFailed:
			stats.FailedCount += cnt
		}
	}

	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate payment stats").
			Mark(ierr.ErrDatabase)
	}

	return stats, nil
}

func qualifyPaymentColumns() string {
	cols := strings.Split(paymentColumns, ",")
	for i, c := range cols {
		cols[i] = "p." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func buildPaymentWhere(filter *types.PaymentFilter) (string, []interface{}, bool) {
	conditions := []string{"p.status = $1"}
	args := []interface{}{filter.GetStatus()}
	joined := false

	if filter.InvoiceID != "" {
		args = append(args, filter.InvoiceID)
		conditions = append(conditions, fmt.Sprintf("p.invoice_id = $%d", len(args)))
	}
	if filter.PatientID != "" {
		joined = true
		args = append(args, filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("i.patient_id = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		conditions = append(conditions, fmt.Sprintf("p.payment_status = $%d", len(args)))
	}
	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		conditions = append(conditions, fmt.Sprintf("p.payment_method = $%d", len(args)))
	}
	if filter.PaidAfter != nil {
		args = append(args, *filter.PaidAfter)
		conditions = append(conditions, fmt.Sprintf("p.paid_at >= $%d", len(args)))
	}
	if filter.PaidBefore != nil {
		args = append(args, *filter.PaidBefore)
		conditions = append(conditions, fmt.Sprintf("p.paid_at <= $%d", len(args)))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, joined
}

func paymentSortColumn(sort string) string {
	switch sort {
	case "paid_at", "amount", "updated_at":
		return sort
	default:
		return "created_at"
	}
}
