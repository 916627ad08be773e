package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llantera-erp/llantera-erp/internal/inventory"
	"github.com/llantera-erp/llantera-erp/internal/platform/db"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

const invoiceColumns = `id, folio, customer_name, COALESCE(customer_rfc, ''), status, subtotal_cents, tax_cents, total_cents, issued_by, issued_at, cancelled_at, COALESCE(cancel_reason, '')`

// Repository persists invoices. Stock arithmetic goes through the
// inventory repository inside the same transaction so a failed line
// rolls back the whole document.
type Repository struct {
	pool  *pgxpool.Pool
	stock *inventory.Repository
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, stock *inventory.Repository) *Repository {
	return &Repository{pool: pool, stock: stock}
}

// CreateInvoice inserts the invoice with its lines and decrements stock
// for each line. Insufficient stock on any line aborts the whole
// invoice with shared.ErrInsufficientStock.
func (r *Repository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (folio, customer_name, customer_rfc, status, subtotal_cents, tax_cents, total_cents, issued_by, issued_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, NOW())
			RETURNING id, issued_at`,
			inv.Folio, inv.CustomerName, inv.CustomerRFC, StatusIssued, inv.SubtotalCents, inv.TaxCents, inv.TotalCents, inv.IssuedBy,
		).Scan(&inv.ID, &inv.IssuedAt)
		if err != nil {
			return err
		}
		for i := range inv.Lines {
			line := &inv.Lines[i]
			line.InvoiceID = inv.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_lines (invoice_id, product_id, sku, description, qty, unit_price_cents, total_cents)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				line.InvoiceID, line.ProductID, line.SKU, line.Description, line.Qty, line.UnitPriceCents, line.TotalCents,
			).Scan(&line.ID)
			if err != nil {
				return err
			}
			if err := r.stock.AdjustStockTx(ctx, tx, line.ProductID, -line.Qty, inventory.MovementSale, inv.Folio, "", inv.IssuedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	inv.Status = StatusIssued
	return inv, nil
}

// CancelInvoice flips the status and restores stocked quantities.
func (r *Repository) CancelInvoice(ctx context.Context, id int64, reason string, actorID int64) (Invoice, error) {
	var inv Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		row := tx.QueryRow(ctx, `
			UPDATE invoices SET status = $2, cancelled_at = NOW(), cancel_reason = NULLIF($3, '')
			WHERE id = $1
			RETURNING `+invoiceColumns,
			id, StatusCancelled, reason)
		inv, err = scanInvoice(row)
		if err != nil {
			return err
		}
		lines, err := r.linesTx(ctx, tx, id)
		if err != nil {
			return err
		}
		inv.Lines = lines
		for _, line := range lines {
			if err := r.stock.AdjustStockTx(ctx, tx, line.ProductID, line.Qty, inventory.MovementCancel, inv.Folio, reason, actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// GetInvoice fetches an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.ErrNotFound
		}
		return Invoice{}, err
	}
	rows, err := r.pool.Query(ctx, lineQuery, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	inv.Lines, err = scanLines(rows)
	return inv, err
}

// ListInvoices returns a page of invoices, newest first, without lines.
func (r *Repository) ListInvoices(ctx context.Context, page, perPage int) ([]Invoice, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY id DESC LIMIT $1 OFFSET $2`, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

const lineQuery = `
	SELECT id, invoice_id, product_id, sku, description, qty, unit_price_cents, total_cents
	FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`

func (r *Repository) linesTx(ctx context.Context, tx pgx.Tx, invoiceID int64) ([]Line, error) {
	rows, err := tx.Query(ctx, lineQuery, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Folio, &inv.CustomerName, &inv.CustomerRFC, &inv.Status,
		&inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents, &inv.IssuedBy, &inv.IssuedAt, &inv.CancelledAt, &inv.CancelReason)
	return inv, err
}

func scanLines(rows pgx.Rows) ([]Line, error) {
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.SKU, &l.Description, &l.Qty, &l.UnitPriceCents, &l.TotalCents); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
