package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/llantera-erp/llantera-erp/internal/sales"
)

// InvoiceHTML renders an invoice as a printable HTML document for PDF
// conversion.
func InvoiceHTML(inv sales.Invoice, shopName string) string {
	var b strings.Builder
	b.WriteString(`<html><head><meta charset="utf-8"><style>
body { font-family: sans-serif; margin: 2em; }
h1 { font-size: 1.4em; }
table { width: 100%; border-collapse: collapse; margin-top: 1em; }
th, td { border-bottom: 1px solid #ccc; padding: 4px 8px; text-align: left; }
td.num, th.num { text-align: right; }
tfoot td { border: none; font-weight: bold; }
.cancelled { color: #b00; font-size: 1.2em; }
</style></head><body>`)
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(shopName))
	fmt.Fprintf(&b, "<p>Folio: <strong>%s</strong><br>Fecha: %s</p>",
		html.EscapeString(inv.Folio), inv.IssuedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "<p>Cliente: %s", html.EscapeString(inv.CustomerName))
	if inv.CustomerRFC != "" {
		fmt.Fprintf(&b, "<br>RFC: %s", html.EscapeString(inv.CustomerRFC))
	}
	b.WriteString("</p>")
	if inv.Status == sales.StatusCancelled {
		b.WriteString(`<p class="cancelled">FACTURA CANCELADA</p>`)
	}
	b.WriteString(`<table><thead><tr><th>SKU</th><th>Descripción</th><th class="num">Cant.</th><th class="num">P. Unitario</th><th class="num">Importe</th></tr></thead><tbody>`)
	for _, l := range inv.Lines {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td class="num">%d</td><td class="num">%s</td><td class="num">%s</td></tr>`,
			html.EscapeString(l.SKU), html.EscapeString(l.Description), l.Qty, money(l.UnitPriceCents), money(l.TotalCents))
	}
	b.WriteString("</tbody><tfoot>")
	fmt.Fprintf(&b, `<tr><td colspan="4" class="num">Subtotal</td><td class="num">%s</td></tr>`, money(inv.SubtotalCents))
	fmt.Fprintf(&b, `<tr><td colspan="4" class="num">IVA</td><td class="num">%s</td></tr>`, money(inv.TaxCents))
	fmt.Fprintf(&b, `<tr><td colspan="4" class="num">Total</td><td class="num">%s</td></tr>`, money(inv.TotalCents))
	b.WriteString("</tfoot></table></body></html>")
	return b.String()
}
