package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/wellcare/billing/internal/domain/invoice"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	"github.com/wellcare/billing/internal/types"
)

type invoiceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewInvoiceRepository(client postgres.IClient, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{client: client, logger: logger}
}

const invoiceColumns = `
	id, invoice_number, patient_id, appointment_id, invoice_type,
	payment_method, total_amount, invoice_status, due_date,
	status, created_at, updated_at, created_by, updated_by
`

const invoiceItemColumns = `
	id, invoice_id, service_id, description, quantity, unit_price,
	status, created_at, updated_at, created_by, updated_by
`

func (r *invoiceRepository) CreateWithItems(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)

	query := `
	INSERT INTO invoices (` + invoiceColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)
	`

	q := r.client.Querier(ctx)
	_, err := q.ExecContext(ctx, query,
		inv.ID,
		inv.InvoiceNumber,
		inv.PatientID,
		inv.AppointmentID,
		inv.InvoiceType,
		inv.PaymentMethod,
		inv.TotalAmount,
		inv.InvoiceStatus,
		inv.DueDate,
		inv.Status,
		inv.CreatedAt,
		inv.UpdatedAt,
		inv.CreatedBy,
		inv.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}

	for _, item := range inv.Items {
		if err := r.insertItem(ctx, item); err != nil {
			return err
		}
	}

	return nil
}

func (r *invoiceRepository) insertItem(ctx context.Context, item *invoice.InvoiceItem) error {
	query := `
	INSERT INTO invoice_items (` + invoiceItemColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)
	`

	q := r.client.Querier(ctx)
	_, err := q.ExecContext(ctx, query,
		item.ID,
		item.InvoiceID,
		item.ServiceID,
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.Status,
		item.CreatedAt,
		item.UpdatedAt,
		item.CreatedBy,
		item.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice item").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.get(ctx, id, false)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *invoiceRepository) get(ctx context.Context, id string, forUpdate bool) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND status = $2`
	if forUpdate {
		// Serializes concurrent settlements against the same invoice; the
		// lock is released when the surrounding transaction ends.
		query += ` FOR UPDATE`
	}

	var inv invoice.Invoice
	q := r.client.Querier(ctx)
	err := q.GetContext(ctx, &inv, query, id, types.StatusPublished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items

	return &inv, nil
}

func (r *invoiceRepository) listItems(ctx context.Context, invoiceID string) ([]*invoice.InvoiceItem, error) {
	query := `
	SELECT ` + invoiceItemColumns + `
	FROM invoice_items
	WHERE invoice_id = $1 AND status = $2
	ORDER BY created_at ASC, id ASC
	`

	var items []*invoice.InvoiceItem
	q := r.client.Querier(ctx)
	if err := q.SelectContext(ctx, &items, query, invoiceID, types.StatusPublished); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `
	UPDATE invoices SET
		payment_method = $1,
		total_amount = $2,
		invoice_status = $3,
		due_date = $4,
		updated_at = $5,
		updated_by = $6
	WHERE id = $7 AND status = $8
	`

	q := r.client.Querier(ctx)
	result, err := q.ExecContext(ctx, query,
		inv.PaymentMethod,
		inv.TotalAmount,
		inv.InvoiceStatus,
		inv.DueDate,
		time.Now().UTC(),
		types.GetUserID(ctx),
		inv.ID,
		types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}

	return requireRowsAffected(result, "invoice", inv.ID)
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus) error {
	query := `
	UPDATE invoices SET
		invoice_status = $1,
		updated_at = $2,
		updated_by = $3
	WHERE id = $4 AND status = $5
	`

	q := r.client.Querier(ctx)
	result, err := q.ExecContext(ctx, query,
		status,
		time.Now().UTC(),
		types.GetUserID(ctx),
		id,
		types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice status").
			Mark(ierr.ErrDatabase)
	}

	return requireRowsAffected(result, "invoice", id)
}

func (r *invoiceRepository) AddItem(ctx context.Context, item *invoice.InvoiceItem) error {
	return r.insertItem(ctx, item)
}

func (r *invoiceRepository) RemoveItem(ctx context.Context, invoiceID, itemID string) error {
	query := `
	UPDATE invoice_items SET
		status = $1,
		updated_at = $2,
		updated_by = $3
	WHERE id = $4 AND invoice_id = $5 AND status = $6
	`

	q := r.client.Querier(ctx)
	result, err := q.ExecContext(ctx, query,
		types.StatusDeleted,
		time.Now().UTC(),
		types.GetUserID(ctx),
		itemID,
		invoiceID,
		types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to remove invoice item").
			Mark(ierr.ErrDatabase)
	}

	return requireRowsAffected(result, "invoice item", itemID)
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	where, args := buildInvoiceWhere(filter)
	query += where
	query += fmt.Sprintf(" ORDER BY %s %s", invoiceSortColumn(filter.GetSort()), strings.ToUpper(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var invoices []*invoice.Invoice
	q := r.client.Querier(ctx)
	if err := q.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	for _, inv := range invoices {
		items, err := r.listItems(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.Items = items
	}

	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query := `SELECT COUNT(*) FROM invoices`
	where, args := buildInvoiceWhere(filter)
	query += where

	var count int
	q := r.client.Querier(ctx)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	// Single statement upsert so concurrent creates in the same year never
	// observe the same counter value.
	query := `
	INSERT INTO invoice_sequences (year, last_value, created_at, updated_at)
	VALUES ($1, 1, NOW(), NOW())
	ON CONFLICT (year)
	DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = NOW()
	RETURNING last_value
	`

	var seq int64
	q := r.client.Querier(ctx)
	if err := q.GetContext(ctx, &seq, query, year); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to allocate invoice number").
			Mark(ierr.ErrDatabase)
	}

	return invoice.FormatInvoiceNumber(year, seq), nil
}

func (r *invoiceRepository) ListUnpaidDueBefore(ctx context.Context, t time.Time) ([]*invoice.Invoice, error) {
	query := `
	SELECT ` + invoiceColumns + `
	FROM invoices
	WHERE status = $1
		AND due_date IS NOT NULL
		AND due_date < $2
		AND invoice_status IN ($3, $4)
	ORDER BY due_date ASC
	`

	var invoices []*invoice.Invoice
	q := r.client.Querier(ctx)
	err := q.SelectContext(ctx, &invoices, query,
		types.StatusPublished,
		t,
		types.InvoiceStatusPending,
		types.InvoiceStatusPartiallyPaid,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list unpaid invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func buildInvoiceWhere(filter *types.InvoiceFilter) (string, []interface{}) {
	conditions := []string{"status = $1"}
	args := []interface{}{filter.GetStatus()}

	if filter.PatientID != "" {
		args = append(args, filter.PatientID)
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if filter.InvoiceType != "" {
		args = append(args, filter.InvoiceType)
		conditions = append(conditions, fmt.Sprintf("invoice_type = $%d", len(args)))
	}
	if len(filter.InvoiceStatus) > 0 {
		placeholders := make([]string, len(filter.InvoiceStatus))
		for i, s := range filter.InvoiceStatus {
			args = append(args, s)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("invoice_status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		conditions = append(conditions, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// invoiceSortColumn whitelists sortable columns so the sort key is never
// interpolated from raw client input.
func invoiceSortColumn(sort string) string {
	switch sort {
	case "due_date", "total_amount", "invoice_number", "updated_at":
		return sort
	default:
		return "created_at"
	}
}

func requireRowsAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to get rows affected").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError(entity + " not found").
			WithHintf("The %s with ID %s was not found", entity, id).
			WithReportableDetails(map[string]any{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
