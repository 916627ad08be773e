package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/llantera-erp/llantera-erp/internal/notifications"
	"github.com/llantera-erp/llantera-erp/internal/sales"
	"github.com/llantera-erp/llantera-erp/report"
)

// InvoiceReader fetches invoices for receipt printing.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, id int64) (sales.Invoice, error)
}

// ReceiptSpool takes a rendered receipt to the physical printer.
type ReceiptSpool interface {
	Spool(ctx context.Context, folio, text string) error
}

// LogSpool is the default spool: it logs the receipt. The counter
// printer daemon tails these entries in the shop deployment.
type LogSpool struct {
	Logger *slog.Logger
}

// Spool logs the rendered receipt.
func (s LogSpool) Spool(_ context.Context, folio, text string) error {
	s.Logger.Info("receipt spooled", "folio", folio, "bytes", len(text))
	return nil
}

// NewReceiptPrintHandler processes TaskTypeReceiptPrint tasks.
func NewReceiptPrintHandler(invoices InvoiceReader, spool ReceiptSpool, shopName string, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReceiptPrintPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		inv, err := invoices.GetInvoice(ctx, payload.InvoiceID)
		if err != nil {
			return err
		}
		text := report.RenderReceipt(inv, shopName)
		if err := spool.Spool(ctx, inv.Folio, text); err != nil {
			return err
		}
		logger.Info("receipt printed", "invoice_id", inv.ID, "folio", inv.Folio)
		return nil
	}
}

// NotificationService is the slice of the notifications service the
// worker needs.
type NotificationService interface {
	Deliver(ctx context.Context, id int64) error
}

// NewNotifySendHandler processes TaskTypeNotifySend tasks.
func NewNotifySendHandler(svc NotificationService, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifySendPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := svc.Deliver(ctx, payload.NotificationID); err != nil {
			return err
		}
		logger.Info("notification delivered", "notification_id", payload.NotificationID)
		return nil
	}
}

// NotificationSweeper lists stored notifications that never made it
// onto the queue.
type NotificationSweeper interface {
	Pending(ctx context.Context, limit int) ([]notifications.Notification, error)
}

// NewNotifySweepHandler processes TaskTypeNotifySweep tasks. It picks
// up notifications stranded by a failed enqueue and queues them again.
func NewNotifySweepHandler(sweeper NotificationSweeper, enqueuer notifications.Enqueuer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifySweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		limit := payload.Limit
		if limit <= 0 {
			limit = 100
		}
		pending, err := sweeper.Pending(ctx, limit)
		if err != nil {
			return err
		}
		requeued := 0
		for _, n := range pending {
			if err := enqueuer.EnqueueNotificationSend(ctx, n.ID); err != nil {
				logger.Warn("notification requeue failed", "notification_id", n.ID, "error", err)
				continue
			}
			requeued++
		}
		if requeued > 0 {
			logger.Info("pending notifications requeued", "count", requeued)
		}
		return nil
	}
}

// AuditPruner trims old audit rows.
type AuditPruner interface {
	PruneAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleaner removes processed request keys past their useful
// life.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewAuditPruneHandler processes TaskTypeAuditPrune tasks. Besides the
// audit rows it sweeps expired idempotency keys; client retries span
// minutes, so a week of keys is ample.
func NewAuditPruneHandler(pruner AuditPruner, keys IdempotencyCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		days := payload.RetentionDays
		if days <= 0 {
			days = 90
		}
		removed, err := pruner.PruneAuditLogs(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			return err
		}
		if keys != nil {
			if err := keys.Cleanup(ctx, 7*24*time.Hour); err != nil {
				logger.Warn("idempotency key cleanup", "error", err)
			}
		}
		logger.Info("audit logs pruned", "removed", removed, "retention_days", days)
		return nil
	}
}

var (
	_ notifications.Enqueuer = (*Client)(nil)
	_ sales.ReceiptEnqueuer  = (*Client)(nil)
)
