package notifications

import "time"

// Notification kinds.
const (
	KindLowStock      = "EXISTENCIAS_BAJAS"
	KindOrderReceived = "ORDEN_RECIBIDA"
)

// Notification is a queued internal message for the shop staff.
type Notification struct {
	ID        int64
	Kind      string
	Subject   string
	Body      string
	Recipient string
	CreatedAt time.Time
	SentAt    *time.Time
}
