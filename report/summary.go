package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llantera-erp/llantera-erp/internal/sales"
)

// DailySummary aggregates one day of issued invoices.
type DailySummary struct {
	Day           time.Time `json:"dia"`
	InvoiceCount  int       `json:"facturas"`
	UnitsSold     int       `json:"piezas"`
	SubtotalCents int64     `json:"subtotalCentavos"`
	TaxCents      int64     `json:"ivaCentavos"`
	TotalCents    int64     `json:"totalCentavos"`
}

// Repository runs reporting queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesByDay aggregates issued invoices per day over the range.
// Cancelled invoices are excluded.
func (r *Repository) SalesByDay(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.day, COUNT(*), COALESCE(SUM(t.units), 0),
		       COALESCE(SUM(t.subtotal_cents), 0), COALESCE(SUM(t.tax_cents), 0), COALESCE(SUM(t.total_cents), 0)
		FROM (
			SELECT i.id, date_trunc('day', i.issued_at) AS day,
			       i.subtotal_cents, i.tax_cents, i.total_cents,
			       (SELECT COALESCE(SUM(l.qty), 0) FROM invoice_lines l WHERE l.invoice_id = i.id) AS units
			FROM invoices i
			WHERE i.status = $1 AND i.issued_at >= $2 AND i.issued_at < $3
		) t
		GROUP BY t.day ORDER BY t.day`,
		sales.StatusIssued, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailySummary
	for rows.Next() {
		var s DailySummary
		if err := rows.Scan(&s.Day, &s.InvoiceCount, &s.UnitsSold, &s.SubtotalCents, &s.TaxCents, &s.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
