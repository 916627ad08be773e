package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending notification and returns its ID.
func (r *Repository) Create(ctx context.Context, n Notification) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (kind, subject, body, recipient, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		RETURNING id`,
		n.Kind, n.Subject, n.Body, n.Recipient).Scan(&id)
	return id, err
}

// MarkSent stamps the delivery time.
func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET sent_at = NOW() WHERE id = $1`, id)
	return err
}

// Get fetches a notification.
func (r *Repository) Get(ctx context.Context, id int64) (Notification, error) {
	var n Notification
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, subject, body, COALESCE(recipient, ''), created_at, sent_at
		FROM notifications WHERE id = $1`, id,
	).Scan(&n.ID, &n.Kind, &n.Subject, &n.Body, &n.Recipient, &n.CreatedAt, &n.SentAt)
	return n, err
}

// ListPending returns notifications not yet delivered.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, subject, body, COALESCE(recipient, ''), created_at, sent_at
		FROM notifications WHERE sent_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.Subject, &n.Body, &n.Recipient, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
