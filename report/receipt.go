package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/llantera-erp/llantera-erp/internal/sales"
)

// receiptWidth is the column count of the thermal printer.
const receiptWidth = 32

var moneyPrinter = message.NewPrinter(language.MustParse("es-MX"))

func money(cents int64) string {
	return moneyPrinter.Sprintf("$%.2f", float64(cents)/100)
}

// RenderReceipt formats an invoice as plain text for the thermal
// printer at the counter.
func RenderReceipt(inv sales.Invoice, shopName string) string {
	var b strings.Builder
	line := strings.Repeat("-", receiptWidth)

	b.WriteString(center(shopName) + "\n")
	b.WriteString(center("Folio: "+inv.Folio) + "\n")
	b.WriteString(inv.IssuedAt.Format("02/01/2006 15:04") + "\n")
	b.WriteString("Cliente: " + inv.CustomerName + "\n")
	if inv.CustomerRFC != "" {
		b.WriteString("RFC: " + inv.CustomerRFC + "\n")
	}
	b.WriteString(line + "\n")
	for _, l := range inv.Lines {
		b.WriteString(l.SKU + "\n")
		qty := fmt.Sprintf("%d x %s", l.Qty, money(l.UnitPriceCents))
		b.WriteString(pad(qty, money(l.TotalCents)) + "\n")
	}
	b.WriteString(line + "\n")
	b.WriteString(pad("Subtotal", money(inv.SubtotalCents)) + "\n")
	b.WriteString(pad("IVA", money(inv.TaxCents)) + "\n")
	b.WriteString(pad("TOTAL", money(inv.TotalCents)) + "\n")
	if inv.Status == sales.StatusCancelled {
		b.WriteString(line + "\n")
		b.WriteString(center("** CANCELADA **") + "\n")
	}
	b.WriteString(line + "\n")
	b.WriteString(center("Gracias por su compra") + "\n")
	return b.String()
}

func center(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	left := (receiptWidth - len(s)) / 2
	return strings.Repeat(" ", left) + s
}

// pad right-aligns value against label on one receipt line.
func pad(label, value string) string {
	gap := receiptWidth - len(label) - len(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}
