package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llantera-erp/llantera-erp/internal/shared"
)

type stubRepo struct {
	suppliers []Supplier
	orders    map[int64]Order
	received  []int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: map[int64]Order{}}
}

func (s *stubRepo) ListSuppliers(context.Context) ([]Supplier, error) {
	return s.suppliers, nil
}

func (s *stubRepo) CreateSupplier(_ context.Context, in SupplierInput) (Supplier, error) {
	sup := Supplier{ID: int64(len(s.suppliers) + 1), Name: in.Name, RFC: in.RFC, IsActive: true}
	s.suppliers = append(s.suppliers, sup)
	return sup, nil
}

func (s *stubRepo) UpdateSupplier(_ context.Context, id int64, in SupplierInput) (Supplier, error) {
	return Supplier{ID: id, Name: in.Name}, nil
}

func (s *stubRepo) CreateOrder(_ context.Context, order Order) (Order, error) {
	order.ID = int64(len(s.orders) + 1)
	order.Status = StatusOpen
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubRepo) ReceiveOrder(_ context.Context, id, actorID int64) (Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	if order.Status == StatusReceived {
		return Order{}, ErrAlreadyReceived
	}
	order.Status = StatusReceived
	order.ReceivedBy = actorID
	s.orders[id] = order
	s.received = append(s.received, id)
	return order, nil
}

func (s *stubRepo) GetOrder(_ context.Context, id int64) (Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return order, nil
}

func (s *stubRepo) ListOrders(context.Context, int, int) ([]Order, int, error) {
	return nil, 0, nil
}

type stubNotifier struct {
	orderIDs   []int64
	lineCounts []int
	err        error
}

func (s *stubNotifier) NotifyOrderReceived(_ context.Context, orderID int64, lineCount int) error {
	s.orderIDs = append(s.orderIDs, orderID)
	s.lineCounts = append(s.lineCounts, lineCount)
	return s.err
}

func TestCreateSupplierValidates(t *testing.T) {
	svc := NewService(newStubRepo(), nil, nil)

	_, err := svc.CreateSupplier(context.Background(), SupplierInput{})
	require.Error(t, err)

	_, err = svc.CreateSupplier(context.Background(), SupplierInput{Name: "Llantas del Norte", Email: "not-an-email"})
	require.Error(t, err)

	sup, err := svc.CreateSupplier(context.Background(), SupplierInput{Name: "Llantas del Norte"})
	require.NoError(t, err)
	assert.Equal(t, "Llantas del Norte", sup.Name)
}

func TestCreateOrderRequiresLines(t *testing.T) {
	svc := NewService(newStubRepo(), nil, nil)

	_, err := svc.CreateOrder(context.Background(), OrderDraft{SupplierID: 1}, 1)
	require.Error(t, err)

	order, err := svc.CreateOrder(context.Background(), OrderDraft{
		SupplierID: 1,
		Lines:      []OrderDraftLine{{ProductID: 3, Qty: 10, UnitCostCents: 180000}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, order.Status)
	require.Len(t, order.Lines, 1)
}

func TestReceiveOrderOnce(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil, nil)
	order, err := svc.CreateOrder(context.Background(), OrderDraft{
		SupplierID: 1,
		Lines:      []OrderDraftLine{{ProductID: 3, Qty: 10}},
	}, 1)
	require.NoError(t, err)

	received, err := svc.ReceiveOrder(context.Background(), order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	assert.Equal(t, int64(2), received.ReceivedBy)

	_, err = svc.ReceiveOrder(context.Background(), order.ID, 2)
	assert.ErrorIs(t, err, ErrAlreadyReceived)
}

func TestReceiveOrderNotifies(t *testing.T) {
	repo := newStubRepo()
	notifier := &stubNotifier{}
	svc := NewService(repo, notifier, nil)
	order, err := svc.CreateOrder(context.Background(), OrderDraft{
		SupplierID: 1,
		Lines: []OrderDraftLine{
			{ProductID: 3, Qty: 10},
			{ProductID: 4, Qty: 4},
		},
	}, 1)
	require.NoError(t, err)

	_, err = svc.ReceiveOrder(context.Background(), order.ID, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{order.ID}, notifier.orderIDs)
	assert.Equal(t, []int{2}, notifier.lineCounts)
}

func TestReceiveOrderToleratesNotifierFailure(t *testing.T) {
	repo := newStubRepo()
	notifier := &stubNotifier{err: errors.New("cola no disponible")}
	svc := NewService(repo, notifier, nil)
	order, err := svc.CreateOrder(context.Background(), OrderDraft{
		SupplierID: 1,
		Lines:      []OrderDraftLine{{ProductID: 3, Qty: 10}},
	}, 1)
	require.NoError(t, err)

	received, err := svc.ReceiveOrder(context.Background(), order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	require.Len(t, notifier.orderIDs, 1)
}
