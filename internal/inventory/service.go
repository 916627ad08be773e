package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort defines data access methods for products and stock.
type RepositoryPort interface {
	ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, productID int64, delta int, kind MovementKind, refID, note string, actorID int64) error
	ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error)
	LowStockProducts(ctx context.Context) ([]Product, error)
}

// CostGate decides whether the context principal may see cost figures.
// Satisfied by authz.Guard.
type CostGate interface {
	Allows(ctx context.Context, permission string) bool
}

// LowStockNotifier receives products that dropped to their minimum.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, product Product) error
}

// Service handles product catalog and stock logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	notifier LowStockNotifier
	logger   *slog.Logger
}

// NewService builds a Service. notifier may be nil.
func NewService(repo RepositoryPort, notifier LowStockNotifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		notifier: notifier,
		logger:   logger,
	}
}

// ListProducts returns a catalog page.
func (s *Service) ListProducts(ctx context.Context, page, perPage int) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, page, perPage)
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct validates and inserts a product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return Product{}, fmt.Errorf("inventory: validate product: %w", err)
	}
	return s.repo.CreateProduct(ctx, in)
}

// UpdateProduct validates and updates product master data.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return Product{}, fmt.Errorf("inventory: validate product: %w", err)
	}
	return s.repo.UpdateProduct(ctx, id, in)
}

// DeactivateProduct soft-deletes a product.
func (s *Service) DeactivateProduct(ctx context.Context, id int64) error {
	return s.repo.DeactivateProduct(ctx, id)
}

// AdjustStock applies a manual correction and records the movement.
// When the adjustment leaves the product at or below its minimum the
// low-stock notifier is told.
func (s *Service) AdjustStock(ctx context.Context, productID int64, delta int, note string, actorID int64) error {
	if err := s.repo.AdjustStock(ctx, productID, delta, MovementAdjust, "", note, actorID); err != nil {
		return err
	}
	s.checkLowStock(ctx, productID)
	return nil
}

// Movements returns the movement card for a product.
func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	return s.repo.ListMovements(ctx, productID, limit)
}

// LowStockProducts returns replenishment candidates.
func (s *Service) LowStockProducts(ctx context.Context) ([]Product, error) {
	return s.repo.LowStockProducts(ctx)
}

func (s *Service) checkLowStock(ctx context.Context, productID int64) {
	if s.notifier == nil {
		return
	}
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		s.logger.Warn("low stock check failed", "product_id", productID, "error", err)
		return
	}
	if p.Stock > p.MinStock {
		return
	}
	if err := s.notifier.NotifyLowStock(ctx, p); err != nil {
		s.logger.Warn("low stock notification failed", "product_id", productID, "error", err)
	}
}

// RedactCosts strips cost figures from products the caller may not
// price-audit. A nil gate redacts.
func RedactCosts(ctx context.Context, gate CostGate, permission string, products []Product) []Product {
	if gate != nil && gate.Allows(ctx, permission) {
		return products
	}
	out := make([]Product, len(products))
	for i, p := range products {
		p.CostCents = 0
		out[i] = p
	}
	return out
}
