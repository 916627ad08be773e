package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/llantera-erp/llantera-erp/internal/sales"
)

func sampleInvoice() sales.Invoice {
	return sales.Invoice{
		ID:            1,
		Folio:         "F-AB12CD34",
		CustomerName:  "Público General",
		Status:        sales.StatusIssued,
		SubtotalCents: 500000,
		TaxCents:      80000,
		TotalCents:    580000,
		IssuedAt:      time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Lines: []sales.Line{
			{SKU: "MICH-205-55R16", Description: "Michelin Primacy 4 205/55R16", Qty: 2, UnitPriceCents: 250000, TotalCents: 500000},
		},
	}
}

func TestRenderReceiptContents(t *testing.T) {
	out := RenderReceipt(sampleInvoice(), "Llantera El Camino")

	assert.Contains(t, out, "Llantera El Camino")
	assert.Contains(t, out, "F-AB12CD34")
	assert.Contains(t, out, "MICH-205-55R16")
	assert.Contains(t, out, "TOTAL")
	assert.NotContains(t, out, "CANCELADA")
}

func TestRenderReceiptCancelledBanner(t *testing.T) {
	inv := sampleInvoice()
	inv.Status = sales.StatusCancelled

	out := RenderReceipt(inv, "Llantera El Camino")
	assert.Contains(t, out, "** CANCELADA **")
}

func TestRenderReceiptLineWidth(t *testing.T) {
	out := RenderReceipt(sampleInvoice(), "Llantera El Camino")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), receiptWidth+8, "line too wide: %q", line)
	}
}

func TestInvoiceHTMLEscapes(t *testing.T) {
	inv := sampleInvoice()
	inv.CustomerName = `<script>alert("x")</script>`

	out := InvoiceHTML(inv, "Llantera El Camino")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "F-AB12CD34")
	assert.Contains(t, out, "Subtotal")
}
