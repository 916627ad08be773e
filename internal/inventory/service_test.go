package inventory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	products  map[int64]Product
	adjusted  []Movement
	failOn    string
	movements []Movement
}

func newStubRepo(products ...Product) *stubRepo {
	m := make(map[int64]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &stubRepo{products: m}
}

func (s *stubRepo) ListProducts(_ context.Context, _, _ int) ([]Product, int, error) {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (s *stubRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := s.products[id]
	if !ok {
		return Product{}, assert.AnError
	}
	return p, nil
}

func (s *stubRepo) CreateProduct(_ context.Context, in ProductInput) (Product, error) {
	p := Product{ID: int64(len(s.products) + 1), SKU: in.SKU, Brand: in.Brand, Measure: in.Measure}
	s.products[p.ID] = p
	return p, nil
}

func (s *stubRepo) UpdateProduct(_ context.Context, id int64, in ProductInput) (Product, error) {
	p := s.products[id]
	p.SKU = in.SKU
	s.products[id] = p
	return p, nil
}

func (s *stubRepo) DeactivateProduct(_ context.Context, id int64) error {
	p := s.products[id]
	p.IsActive = false
	s.products[id] = p
	return nil
}

func (s *stubRepo) AdjustStock(_ context.Context, productID int64, delta int, kind MovementKind, refID, note string, actorID int64) error {
	p := s.products[productID]
	p.Stock += delta
	s.products[productID] = p
	s.adjusted = append(s.adjusted, Movement{ProductID: productID, Kind: kind, Qty: delta, RefID: refID, Note: note, ActorID: actorID})
	return nil
}

func (s *stubRepo) ListMovements(_ context.Context, _ int64, _ int) ([]Movement, error) {
	return s.movements, nil
}

func (s *stubRepo) LowStockProducts(_ context.Context) ([]Product, error) {
	var out []Product
	for _, p := range s.products {
		if p.IsActive && p.Stock <= p.MinStock {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubNotifier struct {
	notified []Product
}

func (n *stubNotifier) NotifyLowStock(_ context.Context, p Product) error {
	n.notified = append(n.notified, p)
	return nil
}

type staticGate bool

func (g staticGate) Allows(context.Context, string) bool { return bool(g) }

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestCreateProductValidates(t *testing.T) {
	svc := NewService(newStubRepo(), nil, testLogger())

	_, err := svc.CreateProduct(context.Background(), ProductInput{Brand: "Michelin"})
	require.Error(t, err)

	p, err := svc.CreateProduct(context.Background(), ProductInput{SKU: "MICH-205-55R16", Brand: "Michelin", Measure: "205/55R16"})
	require.NoError(t, err)
	assert.Equal(t, "MICH-205-55R16", p.SKU)
}

func TestAdjustStockRecordsManualMovement(t *testing.T) {
	repo := newStubRepo(Product{ID: 1, Stock: 10, MinStock: 2, IsActive: true})
	svc := NewService(repo, nil, testLogger())

	require.NoError(t, svc.AdjustStock(context.Background(), 1, -3, "conteo físico", 7))

	require.Len(t, repo.adjusted, 1)
	assert.Equal(t, MovementAdjust, repo.adjusted[0].Kind)
	assert.Equal(t, -3, repo.adjusted[0].Qty)
	assert.Equal(t, int64(7), repo.adjusted[0].ActorID)
}

func TestAdjustStockNotifiesAtMinimum(t *testing.T) {
	repo := newStubRepo(Product{ID: 1, Stock: 3, MinStock: 2, IsActive: true})
	notifier := &stubNotifier{}
	svc := NewService(repo, notifier, testLogger())

	require.NoError(t, svc.AdjustStock(context.Background(), 1, -1, "", 1))
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, int64(1), notifier.notified[0].ID)
}

func TestAdjustStockAboveMinimumStaysQuiet(t *testing.T) {
	repo := newStubRepo(Product{ID: 1, Stock: 10, MinStock: 2, IsActive: true})
	notifier := &stubNotifier{}
	svc := NewService(repo, notifier, testLogger())

	require.NoError(t, svc.AdjustStock(context.Background(), 1, -1, "", 1))
	assert.Empty(t, notifier.notified)
}

func TestRedactCosts(t *testing.T) {
	products := []Product{{ID: 1, PriceCents: 150000, CostCents: 90000}}

	visible := RedactCosts(context.Background(), staticGate(true), "VerCostos", products)
	assert.Equal(t, int64(90000), visible[0].CostCents)

	hidden := RedactCosts(context.Background(), staticGate(false), "VerCostos", products)
	assert.Zero(t, hidden[0].CostCents)
	assert.Equal(t, int64(150000), hidden[0].PriceCents)

	nilGate := RedactCosts(context.Background(), nil, "VerCostos", products)
	assert.Zero(t, nilGate[0].CostCents)
}
