package inventory

import "time"

// Product is a tire SKU in stock.
type Product struct {
	ID         int64
	SKU        string
	Brand      string
	Model      string
	Measure    string // e.g. 205/55R16
	PriceCents int64
	CostCents  int64
	Stock      int
	MinStock   int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MovementKind enumerates stock movements.
type MovementKind string

const (
	// MovementSale is an outbound movement from an invoice.
	MovementSale MovementKind = "VENTA"
	// MovementReceipt is an inbound movement from a supplier order.
	MovementReceipt MovementKind = "RECEPCION"
	// MovementAdjust is a manual correction.
	MovementAdjust MovementKind = "AJUSTE"
	// MovementCancel restores stock from a cancelled invoice.
	MovementCancel MovementKind = "CANCELACION"
)

// Movement records one stock change for the product card.
type Movement struct {
	ID        int64
	ProductID int64
	Kind      MovementKind
	Qty       int // signed: negative for outbound
	RefID     string
	Note      string
	ActorID   int64
	CreatedAt time.Time
}

// ProductInput describes creation/update input.
type ProductInput struct {
	SKU        string `validate:"required"`
	Brand      string `validate:"required"`
	Model      string
	Measure    string `validate:"required"`
	PriceCents int64  `validate:"gte=0"`
	CostCents  int64  `validate:"gte=0"`
	MinStock   int    `validate:"gte=0"`
}
