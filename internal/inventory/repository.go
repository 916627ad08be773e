package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llantera-erp/llantera-erp/internal/platform/db"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

// ErrDuplicateSKU indicates the SKU already exists.
var ErrDuplicateSKU = errors.New("inventory: duplicate sku")

const productColumns = `id, sku, brand, model, measure, price_cents, cost_cents, stock, min_stock, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProducts returns a page of active products plus the total count.
func (r *Repository) ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY sku LIMIT $1 OFFSET $2`, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	products, err := scanProducts(rows)
	return products, total, err
}

// GetProduct fetches a product by ID.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, brand, model, measure, price_cents, cost_cents, stock, min_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, TRUE, NOW(), NOW())
		RETURNING `+productColumns,
		in.SKU, in.Brand, in.Model, in.Measure, in.PriceCents, in.CostCents, in.MinStock)
	product, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, err
	}
	return product, nil
}

// UpdateProduct updates product master data, not stock.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET sku = $2, brand = $3, model = $4, measure = $5, price_cents = $6, cost_cents = $7, min_stock = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		id, in.SKU, in.Brand, in.Model, in.Measure, in.PriceCents, in.CostCents, in.MinStock)
	return scanProduct(row)
}

// DeactivateProduct soft-deletes a product.
func (r *Repository) DeactivateProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AdjustStock applies a signed stock delta inside its own transaction.
func (r *Repository) AdjustStock(ctx context.Context, productID int64, delta int, kind MovementKind, refID, note string, actorID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return r.AdjustStockTx(ctx, tx, productID, delta, kind, refID, note, actorID)
	})
}

// AdjustStockTx applies a signed stock delta and records the movement
// within the caller's transaction. Invoice and order-receipt flows use
// it so document rows and stock commit together. A delta that would
// leave negative stock fails with shared.ErrInsufficientStock.
func (r *Repository) AdjustStockTx(ctx context.Context, tx pgx.Tx, productID int64, delta int, kind MovementKind, refID, note string, actorID int64) error {
	var stock int
	err := tx.QueryRow(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1 RETURNING stock`, productID, delta).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		// 23514: check constraint (stock >= 0)
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return shared.ErrInsufficientStock
		}
		return err
	}
	if stock < 0 {
		return shared.ErrInsufficientStock
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (product_id, kind, qty, ref_id, note, actor_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NOW())`,
		productID, kind, delta, refID, note, actorID)
	return err
}

// ListMovements returns the movement card for a product.
func (r *Repository) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, kind, qty, COALESCE(ref_id, ''), COALESCE(note, ''), actor_id, created_at
		FROM stock_movements WHERE product_id = $1 ORDER BY id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Qty, &m.RefID, &m.Note, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// LowStockProducts lists active products at or below their minimum.
func (r *Repository) LowStockProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active AND stock <= min_stock ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Brand, &p.Model, &p.Measure, &p.PriceCents, &p.CostCents, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Brand, &p.Model, &p.Measure, &p.PriceCents, &p.CostCents, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
