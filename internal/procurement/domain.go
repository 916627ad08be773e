package procurement

import (
	"errors"
	"time"
)

// Supplier order status values as stored.
const (
	StatusOpen     = "ABIERTA"
	StatusReceived = "RECIBIDA"
)

// ErrAlreadyReceived indicates a second receive attempt on an order.
var ErrAlreadyReceived = errors.New("procurement: order already received")

// Supplier is a tire distributor.
type Supplier struct {
	ID        int64
	Name      string
	RFC       string
	Phone     string
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

// SupplierInput describes creation/update input.
type SupplierInput struct {
	Name  string `validate:"required"`
	RFC   string
	Phone string
	Email string `validate:"omitempty,email"`
}

// Order is a purchase order against a supplier.
type Order struct {
	ID         int64
	SupplierID int64
	Status     string
	Notes      string
	CreatedBy  int64
	CreatedAt  time.Time
	ReceivedBy int64
	ReceivedAt *time.Time
	Lines      []OrderLine
}

// OrderLine is one ordered product with its agreed unit cost.
type OrderLine struct {
	ID            int64
	OrderID       int64
	ProductID     int64
	Qty           int
	UnitCostCents int64
}

// OrderDraftLine is the requested quantity and cost for a product.
type OrderDraftLine struct {
	ProductID     int64 `validate:"required,gt=0"`
	Qty           int   `validate:"required,gt=0"`
	UnitCostCents int64 `validate:"gte=0"`
}

// OrderDraft is the order creation input.
type OrderDraft struct {
	SupplierID int64 `validate:"required,gt=0"`
	Notes      string
	Lines      []OrderDraftLine `validate:"required,min=1,dive"`
}
