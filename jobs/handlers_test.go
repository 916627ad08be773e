package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llantera-erp/llantera-erp/internal/notifications"
	"github.com/llantera-erp/llantera-erp/internal/sales"
)

type stubInvoices struct {
	invoice sales.Invoice
	err     error
}

func (s *stubInvoices) GetInvoice(context.Context, int64) (sales.Invoice, error) {
	return s.invoice, s.err
}

type memSpool struct {
	folios []string
	texts  []string
}

func (m *memSpool) Spool(_ context.Context, folio, text string) error {
	m.folios = append(m.folios, folio)
	m.texts = append(m.texts, text)
	return nil
}

func TestReceiptPrintHandler(t *testing.T) {
	invoices := &stubInvoices{invoice: sales.Invoice{
		ID:           7,
		Folio:        "F-TEST0001",
		CustomerName: "Cliente",
		Status:       sales.StatusIssued,
		IssuedAt:     time.Now(),
	}}
	spool := &memSpool{}
	handler := NewReceiptPrintHandler(invoices, spool, "Llantera El Camino", slog.Default())

	task, err := NewReceiptPrintTask(ReceiptPrintPayload{InvoiceID: 7})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))

	require.Len(t, spool.folios, 1)
	assert.Equal(t, "F-TEST0001", spool.folios[0])
	assert.Contains(t, spool.texts[0], "F-TEST0001")
}

func TestReceiptPrintHandlerBadPayload(t *testing.T) {
	handler := NewReceiptPrintHandler(&stubInvoices{}, &memSpool{}, "x", slog.Default())

	err := handler(context.Background(), asynq.NewTask(TaskTypeReceiptPrint, []byte("{broken")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubDeliverer struct {
	delivered []int64
}

func (s *stubDeliverer) Deliver(_ context.Context, id int64) error {
	s.delivered = append(s.delivered, id)
	return nil
}

func TestNotifySendHandler(t *testing.T) {
	svc := &stubDeliverer{}
	handler := NewNotifySendHandler(svc, slog.Default())

	payload, _ := json.Marshal(NotifySendPayload{NotificationID: 12})
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskTypeNotifySend, payload)))
	assert.Equal(t, []int64{12}, svc.delivered)
}

type stubSweeper struct {
	pending []notifications.Notification
	limit   int
}

func (s *stubSweeper) Pending(_ context.Context, limit int) ([]notifications.Notification, error) {
	s.limit = limit
	return s.pending, nil
}

type stubSendQueue struct {
	enqueued []int64
	failOn   int64
}

func (s *stubSendQueue) EnqueueNotificationSend(_ context.Context, id int64) error {
	if id == s.failOn {
		return errors.New("cola llena")
	}
	s.enqueued = append(s.enqueued, id)
	return nil
}

func TestNotifySweepHandlerRequeuesPending(t *testing.T) {
	sweeper := &stubSweeper{pending: []notifications.Notification{{ID: 4}, {ID: 9}}}
	queue := &stubSendQueue{}
	handler := NewNotifySweepHandler(sweeper, queue, slog.Default())

	payload, _ := json.Marshal(NotifySweepPayload{})
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskTypeNotifySweep, payload)))
	assert.Equal(t, 100, sweeper.limit)
	assert.Equal(t, []int64{4, 9}, queue.enqueued)
}

func TestNotifySweepHandlerSkipsFailedEnqueue(t *testing.T) {
	sweeper := &stubSweeper{pending: []notifications.Notification{{ID: 4}, {ID: 9}}}
	queue := &stubSendQueue{failOn: 4}
	handler := NewNotifySweepHandler(sweeper, queue, slog.Default())

	payload, _ := json.Marshal(NotifySweepPayload{Limit: 10})
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskTypeNotifySweep, payload)))
	assert.Equal(t, 10, sweeper.limit)
	assert.Equal(t, []int64{9}, queue.enqueued)
}

type stubPruner struct {
	olderThan time.Duration
}

func (s *stubPruner) PruneAuditLogs(_ context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return 3, nil
}

type stubKeyCleaner struct {
	olderThan time.Duration
	err       error
}

func (s *stubKeyCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	s.olderThan = olderThan
	return s.err
}

func TestAuditPruneHandlerDefaultsRetention(t *testing.T) {
	pruner := &stubPruner{}
	handler := NewAuditPruneHandler(pruner, nil, slog.Default())

	payload, _ := json.Marshal(AuditPrunePayload{})
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskTypeAuditPrune, payload)))
	assert.Equal(t, 90*24*time.Hour, pruner.olderThan)
}

func TestAuditPruneHandlerSweepsIdempotencyKeys(t *testing.T) {
	pruner := &stubPruner{}
	cleaner := &stubKeyCleaner{}
	handler := NewAuditPruneHandler(pruner, cleaner, slog.Default())

	payload, _ := json.Marshal(AuditPrunePayload{RetentionDays: 30})
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskTypeAuditPrune, payload)))
	assert.Equal(t, 30*24*time.Hour, pruner.olderThan)
	assert.Equal(t, 7*24*time.Hour, cleaner.olderThan)

	cleaner.err = errors.New("pg down")
	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskTypeAuditPrune, payload)))
}
