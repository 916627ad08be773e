package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/llantera-erp/llantera-erp/internal/inventory"
)

// RepositoryPort defines invoice persistence.
type RepositoryPort interface {
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	CancelInvoice(ctx context.Context, id int64, reason string, actorID int64) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, page, perPage int) ([]Invoice, int, error)
}

// CatalogReader resolves products when pricing invoice lines.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (inventory.Product, error)
}

// IdempotencyPort guards retried invoice submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ReceiptEnqueuer hands a committed invoice to the print queue.
type ReceiptEnqueuer interface {
	EnqueueReceiptPrint(ctx context.Context, invoiceID int64) error
}

const idempotencyModule = "sales"

// Service handles invoice business logic.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogReader
	idempotency IdempotencyPort
	printer     ReceiptEnqueuer
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewService builds a Service. idempotency and printer may be nil.
func NewService(repo RepositoryPort, catalog CatalogReader, idempotency IdempotencyPort, printer ReceiptEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		catalog:     catalog,
		idempotency: idempotency,
		printer:     printer,
		validate:    validator.New(),
		logger:      logger,
	}
}

// CreateInvoice prices the draft against the catalog, assigns a folio
// and persists invoice, lines and stock decrements atomically. When an
// idempotency key is supplied a replayed submission returns
// shared.ErrIdempotencyConflict instead of a second invoice.
func (s *Service) CreateInvoice(ctx context.Context, draft Draft, idempotencyKey string, issuedBy int64) (Invoice, error) {
	if err := s.validate.Struct(draft); err != nil {
		return Invoice{}, fmt.Errorf("sales: validate draft: %w", err)
	}
	if len(draft.Lines) == 0 {
		return Invoice{}, ErrEmptyInvoice
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return Invoice{}, err
		}
	}

	inv := Invoice{
		Folio:        newFolio(),
		CustomerName: draft.CustomerName,
		CustomerRFC:  draft.CustomerRFC,
		IssuedBy:     issuedBy,
	}
	for _, dl := range draft.Lines {
		product, err := s.catalog.GetProduct(ctx, dl.ProductID)
		if err != nil {
			s.releaseKey(ctx, idempotencyKey)
			return Invoice{}, err
		}
		line := Line{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Description:    fmt.Sprintf("%s %s %s", product.Brand, product.Model, product.Measure),
			Qty:            dl.Qty,
			UnitPriceCents: product.PriceCents,
			TotalCents:     product.PriceCents * int64(dl.Qty),
		}
		inv.SubtotalCents += line.TotalCents
		inv.Lines = append(inv.Lines, line)
	}
	inv.TaxCents = inv.SubtotalCents * TaxRateBP / 10000
	inv.TotalCents = inv.SubtotalCents + inv.TaxCents

	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		s.releaseKey(ctx, idempotencyKey)
		return Invoice{}, err
	}
	if s.printer != nil {
		if err := s.printer.EnqueueReceiptPrint(ctx, created.ID); err != nil {
			s.logger.Warn("receipt print enqueue failed", "invoice_id", created.ID, "error", err)
		}
	}
	return created, nil
}

// CancelInvoice voids an issued invoice and restores its stock.
func (s *Service) CancelInvoice(ctx context.Context, id int64, reason string, actorID int64) (Invoice, error) {
	return s.repo.CancelInvoice(ctx, id, reason, actorID)
}

// GetInvoice returns an invoice with lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns a page of invoices.
func (s *Service) ListInvoices(ctx context.Context, page, perPage int) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, page, perPage)
}

// ReprintReceipt re-enqueues the thermal receipt for an invoice.
func (s *Service) ReprintReceipt(ctx context.Context, id int64) error {
	if _, err := s.repo.GetInvoice(ctx, id); err != nil {
		return err
	}
	if s.printer == nil {
		return fmt.Errorf("sales: no printer queue configured")
	}
	return s.printer.EnqueueReceiptPrint(ctx, id)
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, key); err != nil {
		s.logger.Warn("idempotency key release failed", "key", key, "error", err)
	}
}

func newFolio() string {
	return "F-" + strings.ToUpper(uuid.NewString()[:8])
}
