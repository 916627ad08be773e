package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llantera-erp/llantera-erp/internal/inventory"
	"github.com/llantera-erp/llantera-erp/internal/platform/db"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

// Repository persists suppliers and purchase orders.
type Repository struct {
	pool  *pgxpool.Pool
	stock *inventory.Repository
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, stock *inventory.Repository) *Repository {
	return &Repository{pool: pool, stock: stock}
}

const supplierColumns = `id, name, COALESCE(rfc, ''), COALESCE(phone, ''), COALESCE(email, ''), is_active, created_at`

// ListSuppliers returns active suppliers.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.RFC, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, rfc, phone, email, is_active, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), TRUE, NOW())
		RETURNING `+supplierColumns,
		in.Name, in.RFC, in.Phone, in.Email)
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.RFC, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt)
	return s, err
}

// UpdateSupplier updates supplier master data.
func (r *Repository) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE suppliers SET name = $2, rfc = NULLIF($3, ''), phone = NULLIF($4, ''), email = NULLIF($5, '')
		WHERE id = $1
		RETURNING `+supplierColumns,
		id, in.Name, in.RFC, in.Phone, in.Email)
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.RFC, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

const orderColumns = `id, supplier_id, status, COALESCE(notes, ''), created_by, created_at, COALESCE(received_by, 0), received_at`

// CreateOrder inserts an open order with its lines.
func (r *Repository) CreateOrder(ctx context.Context, order Order) (Order, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO supplier_orders (supplier_id, status, notes, created_by, created_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, NOW())
			RETURNING id, created_at`,
			order.SupplierID, StatusOpen, order.Notes, order.CreatedBy,
		).Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			return err
		}
		for i := range order.Lines {
			line := &order.Lines[i]
			line.OrderID = order.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO supplier_order_lines (order_id, product_id, qty, unit_cost_cents)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				line.OrderID, line.ProductID, line.Qty, line.UnitCostCents,
			).Scan(&line.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order.Status = StatusOpen
	return order, nil
}

// ReceiveOrder marks an open order received and increments stock for
// every line in the same transaction.
func (r *Repository) ReceiveOrder(ctx context.Context, id, actorID int64) (Order, error) {
	var order Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM supplier_orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if status == StatusReceived {
			return ErrAlreadyReceived
		}
		row := tx.QueryRow(ctx, `
			UPDATE supplier_orders SET status = $2, received_by = $3, received_at = NOW()
			WHERE id = $1
			RETURNING `+orderColumns,
			id, StatusReceived, actorID)
		order, err = scanOrder(row)
		if err != nil {
			return err
		}
		lines, err := linesTx(ctx, tx, id)
		if err != nil {
			return err
		}
		order.Lines = lines
		ref := orderRef(order.ID)
		for _, line := range lines {
			if err := r.stock.AdjustStockTx(ctx, tx, line.ProductID, line.Qty, inventory.MovementReceipt, ref, "", actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// GetOrder fetches an order with lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM supplier_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx, orderLineQuery, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	order.Lines, err = scanOrderLines(rows)
	return order, err
}

// ListOrders returns a page of orders, newest first, without lines.
func (r *Repository) ListOrders(ctx context.Context, page, perPage int) ([]Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM supplier_orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM supplier_orders ORDER BY id DESC LIMIT $1 OFFSET $2`, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

const orderLineQuery = `
	SELECT id, order_id, product_id, qty, unit_cost_cents
	FROM supplier_order_lines WHERE order_id = $1 ORDER BY id`

func linesTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]OrderLine, error) {
	rows, err := tx.Query(ctx, orderLineQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderLines(rows)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.SupplierID, &o.Status, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.ReceivedBy, &o.ReceivedAt)
	return o, err
}

func scanOrderLines(rows pgx.Rows) ([]OrderLine, error) {
	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Qty, &l.UnitCostCents); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func orderRef(id int64) string {
	return fmt.Sprintf("OC-%d", id)
}
