package sales

import (
	"errors"
	"time"
)

// Invoice status values as stored.
const (
	StatusIssued    = "EMITIDA"
	StatusCancelled = "CANCELADA"
)

// TaxRateBP is the IVA rate in basis points.
const TaxRateBP = 1600

var (
	// ErrEmptyInvoice indicates an invoice draft without lines.
	ErrEmptyInvoice = errors.New("sales: invoice needs at least one line")
	// ErrAlreadyCancelled indicates a second cancellation attempt.
	ErrAlreadyCancelled = errors.New("sales: invoice already cancelled")
)

// Invoice is a point-of-sale document.
type Invoice struct {
	ID            int64
	Folio         string
	CustomerName  string
	CustomerRFC   string
	Status        string
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	IssuedBy      int64
	IssuedAt      time.Time
	CancelledAt   *time.Time
	CancelReason  string
	Lines         []Line
}

// Line is one invoice item. SKU and price are copied from the product
// at issue time so later catalog edits do not alter issued documents.
type Line struct {
	ID             int64
	InvoiceID      int64
	ProductID      int64
	SKU            string
	Description    string
	Qty            int
	UnitPriceCents int64
	TotalCents     int64
}

// DraftLine is the requested quantity for a product.
type DraftLine struct {
	ProductID int64 `validate:"required,gt=0"`
	Qty       int   `validate:"required,gt=0"`
}

// Draft is the invoice creation input.
type Draft struct {
	CustomerName string `validate:"required"`
	CustomerRFC  string
	Lines        []DraftLine `validate:"required,min=1,dive"`
}
