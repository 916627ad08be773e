package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReceiptPrint renders and spools a thermal receipt.
	TaskTypeReceiptPrint = "receipt:print"
	// TaskTypeNotifySend delivers a stored notification.
	TaskTypeNotifySend = "notify:send"
	// TaskTypeNotifySweep requeues stored notifications whose send
	// task was lost.
	TaskTypeNotifySweep = "notify:sweep"
	// TaskTypeAuditPrune trims old authorization audit rows.
	TaskTypeAuditPrune = "audit:prune"
)

// ReceiptPrintPayload identifies the invoice to print.
type ReceiptPrintPayload struct {
	InvoiceID int64 `json:"invoiceId"`
}

// NewReceiptPrintTask constructs an Asynq task.
func NewReceiptPrintTask(payload ReceiptPrintPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptPrint, data), nil
}

// NotifySendPayload identifies the notification to deliver.
type NotifySendPayload struct {
	NotificationID int64 `json:"notificationId"`
}

// NewNotifySendTask constructs an Asynq task.
func NewNotifySendTask(payload NotifySendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifySend, data), nil
}

// NotifySweepPayload caps how many pending notifications one sweep
// picks up.
type NotifySweepPayload struct {
	Limit int `json:"limit"`
}

// NewNotifySweepTask constructs an Asynq task, typically registered on
// a cron schedule.
func NewNotifySweepTask(payload NotifySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifySweep, data), nil
}

// AuditPrunePayload sets the retention window in days.
type AuditPrunePayload struct {
	RetentionDays int `json:"retentionDays"`
}

// NewAuditPruneTask constructs an Asynq task, typically registered on
// a cron schedule.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditPrune, data), nil
}
