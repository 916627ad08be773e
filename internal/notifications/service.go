package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/llantera-erp/llantera-erp/internal/inventory"
)

// RepositoryPort defines notification persistence.
type RepositoryPort interface {
	Create(ctx context.Context, n Notification) (int64, error)
	MarkSent(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Notification, error)
	ListPending(ctx context.Context, limit int) ([]Notification, error)
}

// Enqueuer hands a stored notification to the delivery queue.
type Enqueuer interface {
	EnqueueNotificationSend(ctx context.Context, notificationID int64) error
}

// Service records notifications and queues their delivery. It
// satisfies the inventory low-stock notifier.
type Service struct {
	repo     RepositoryPort
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewService builds a Service. enqueuer may be nil; notifications are
// then stored for the pending sweep only.
func NewService(repo RepositoryPort, enqueuer Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, enqueuer: enqueuer, logger: logger}
}

// NotifyLowStock records a replenishment alert for a product that hit
// its minimum.
func (s *Service) NotifyLowStock(ctx context.Context, p inventory.Product) error {
	n := Notification{
		Kind:    KindLowStock,
		Subject: fmt.Sprintf("Existencias bajas: %s", p.SKU),
		Body:    fmt.Sprintf("%s %s %s quedó en %d piezas (mínimo %d).", p.Brand, p.Model, p.Measure, p.Stock, p.MinStock),
	}
	return s.dispatch(ctx, n)
}

// NotifyOrderReceived records a goods-in notice.
func (s *Service) NotifyOrderReceived(ctx context.Context, orderID int64, lineCount int) error {
	n := Notification{
		Kind:    KindOrderReceived,
		Subject: fmt.Sprintf("Orden de compra %d recibida", orderID),
		Body:    fmt.Sprintf("Se recibieron %d partidas y las existencias fueron actualizadas.", lineCount),
	}
	return s.dispatch(ctx, n)
}

func (s *Service) dispatch(ctx context.Context, n Notification) error {
	id, err := s.repo.Create(ctx, n)
	if err != nil {
		return err
	}
	if s.enqueuer == nil {
		return nil
	}
	if err := s.enqueuer.EnqueueNotificationSend(ctx, id); err != nil {
		// the pending sweep picks it up later
		s.logger.Warn("notification enqueue failed", "notification_id", id, "error", err)
	}
	return nil
}

// Deliver marks a notification delivered. The worker calls this after
// pushing it out.
func (s *Service) Deliver(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.MarkSent(ctx, id)
}

// Pending lists undelivered notifications for the sweep job.
func (s *Service) Pending(ctx context.Context, limit int) ([]Notification, error) {
	return s.repo.ListPending(ctx, limit)
}
