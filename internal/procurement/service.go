package procurement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort defines supplier and order persistence.
type RepositoryPort interface {
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error)
	CreateOrder(ctx context.Context, order Order) (Order, error)
	ReceiveOrder(ctx context.Context, id, actorID int64) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, page, perPage int) ([]Order, int, error)
}

// ReceiptNotifier receives goods-in notices after an order lands.
type ReceiptNotifier interface {
	NotifyOrderReceived(ctx context.Context, orderID int64, lineCount int) error
}

// Service handles purchasing logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	notifier ReceiptNotifier
	logger   *slog.Logger
}

// NewService builds a Service. notifier may be nil.
func NewService(repo RepositoryPort, notifier ReceiptNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: validator.New(), notifier: notifier, logger: logger}
}

// ListSuppliers returns active suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// CreateSupplier validates and inserts a supplier.
func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	if err := s.validate.Struct(in); err != nil {
		return Supplier{}, fmt.Errorf("procurement: validate supplier: %w", err)
	}
	return s.repo.CreateSupplier(ctx, in)
}

// UpdateSupplier validates and updates a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error) {
	if err := s.validate.Struct(in); err != nil {
		return Supplier{}, fmt.Errorf("procurement: validate supplier: %w", err)
	}
	return s.repo.UpdateSupplier(ctx, id, in)
}

// CreateOrder validates the draft and opens a purchase order.
func (s *Service) CreateOrder(ctx context.Context, draft OrderDraft, createdBy int64) (Order, error) {
	if err := s.validate.Struct(draft); err != nil {
		return Order{}, fmt.Errorf("procurement: validate order: %w", err)
	}
	order := Order{SupplierID: draft.SupplierID, Notes: draft.Notes, CreatedBy: createdBy}
	for _, dl := range draft.Lines {
		order.Lines = append(order.Lines, OrderLine{
			ProductID:     dl.ProductID,
			Qty:           dl.Qty,
			UnitCostCents: dl.UnitCostCents,
		})
	}
	return s.repo.CreateOrder(ctx, order)
}

// ReceiveOrder marks the order received; stock increments happen with
// the status flip so a crash cannot leave one without the other. The
// goods-in notice is advisory and never fails the receipt.
func (s *Service) ReceiveOrder(ctx context.Context, id, actorID int64) (Order, error) {
	order, err := s.repo.ReceiveOrder(ctx, id, actorID)
	if err != nil {
		return Order{}, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyOrderReceived(ctx, order.ID, len(order.Lines)); err != nil {
			s.logger.Warn("order received notice", slog.Int64("order_id", order.ID), slog.Any("error", err))
		}
	}
	return order, nil
}

// GetOrder returns one order with lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns a page of orders.
func (s *Service) ListOrders(ctx context.Context, page, perPage int) ([]Order, int, error) {
	return s.repo.ListOrders(ctx, page, perPage)
}
