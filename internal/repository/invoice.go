package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deppfellow/go-invoices/internal/model/invoice"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type InvoiceRepository struct {
	db DBTX
}

func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateInvoice inserts inv and returns the id Postgres assigned to it.
func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (string, error) {
	const stmt = `
		INSERT INTO invoices (customer_id, amount, status, date)
		VALUES (@customer_id::uuid, @amount, @status, @date::date)
		RETURNING id::text`

	var id string
	err := r.db.QueryRow(ctx, stmt, pgx.NamedArgs{
		"customer_id": inv.CustomerID,
		"amount":      inv.Amount,
		"status":      string(inv.Status),
		"date":        inv.Date,
	}).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert invoice: %w", err)
	}
	return id, nil
}

// UpdateInvoice overwrites the customer, amount and status of invoice id.
// It returns the number of rows changed.
func (r *InvoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (int64, error) {
	const stmt = `
		UPDATE invoices
		SET customer_id = @customer_id::uuid, amount = @amount, status = @status
		WHERE id = @id::uuid`

	tag, err := r.db.Exec(ctx, stmt, pgx.NamedArgs{
		"id":          inv.ID,
		"customer_id": inv.CustomerID,
		"amount":      inv.Amount,
		"status":      string(inv.Status),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update invoice %s: %w", inv.ID, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteInvoice removes invoice id and returns the number of rows removed.
func (r *InvoiceRepository) DeleteInvoice(ctx context.Context, id string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1::uuid`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete invoice %s: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

const selectSummary = `
	SELECT
		i.id::text AS id,
		i.customer_id::text AS customer_id,
		i.amount,
		i.status,
		to_char(i.date, 'YYYY-MM-DD') AS date,
		c.name,
		c.email
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id`

// ListInvoices returns every invoice with its customer, newest first.
func (r *InvoiceRepository) ListInvoices(ctx context.Context) ([]invoice.Summary, error) {
	rows, err := r.db.Query(ctx, selectSummary+` ORDER BY i.date DESC, i.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, pgx.RowToStructByName[invoice.Summary])
	if err != nil {
		return nil, fmt.Errorf("failed to collect invoices: %w", err)
	}
	return summaries, nil
}

// GetInvoice returns invoice id with its customer.
func (r *InvoiceRepository) GetInvoice(ctx context.Context, id string) (*invoice.Summary, error) {
	rows, err := r.db.Query(ctx, selectSummary+` WHERE i.id = $1::uuid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice %s: %w", id, err)
	}

	summary, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[invoice.Summary])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("table:invoices: %w", err)
		}
		return nil, fmt.Errorf("failed to collect invoice %s: %w", id, err)
	}
	return summary, nil
}
