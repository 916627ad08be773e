package notifications

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llantera-erp/llantera-erp/internal/inventory"
)

type stubRepo struct {
	stored []Notification
	sent   []int64
	nextID int64
}

func (s *stubRepo) Create(_ context.Context, n Notification) (int64, error) {
	s.nextID++
	n.ID = s.nextID
	s.stored = append(s.stored, n)
	return n.ID, nil
}

func (s *stubRepo) MarkSent(_ context.Context, id int64) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubRepo) Get(_ context.Context, id int64) (Notification, error) {
	for _, n := range s.stored {
		if n.ID == id {
			return n, nil
		}
	}
	return Notification{}, errors.New("not found")
}

func (s *stubRepo) ListPending(context.Context, int) ([]Notification, error) {
	return s.stored, nil
}

type stubEnqueuer struct {
	ids []int64
	err error
}

func (s *stubEnqueuer) EnqueueNotificationSend(_ context.Context, id int64) error {
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, id)
	return nil
}

func TestNotifyLowStockStoresAndEnqueues(t *testing.T) {
	repo := &stubRepo{}
	enq := &stubEnqueuer{}
	svc := NewService(repo, enq, slog.Default())

	p := inventory.Product{SKU: "LL-205-55-16-CONT", Brand: "Continental", Model: "PowerContact 2", Measure: "205/55R16", Stock: 3, MinStock: 6}
	require.NoError(t, svc.NotifyLowStock(context.Background(), p))

	require.Len(t, repo.stored, 1)
	assert.Equal(t, KindLowStock, repo.stored[0].Kind)
	assert.Contains(t, repo.stored[0].Subject, "LL-205-55-16-CONT")
	assert.Equal(t, []int64{1}, enq.ids)
}

func TestDispatchToleratesEnqueueFailure(t *testing.T) {
	repo := &stubRepo{}
	enq := &stubEnqueuer{err: errors.New("redis down")}
	svc := NewService(repo, enq, slog.Default())

	require.NoError(t, svc.NotifyOrderReceived(context.Background(), 9, 3))
	assert.Len(t, repo.stored, 1)
}

func TestDispatchWithoutEnqueuerStoresOnly(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, slog.Default())

	require.NoError(t, svc.NotifyOrderReceived(context.Background(), 9, 3))
	assert.Len(t, repo.stored, 1)
}

func TestDeliverMarksSent(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, slog.Default())

	require.NoError(t, svc.NotifyOrderReceived(context.Background(), 9, 3))
	require.NoError(t, svc.Deliver(context.Background(), 1))
	assert.Equal(t, []int64{1}, repo.sent)

	assert.Error(t, svc.Deliver(context.Background(), 99))
}
