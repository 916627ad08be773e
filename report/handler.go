package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/llantera-erp/llantera-erp/internal/authz"
	"github.com/llantera-erp/llantera-erp/internal/platform/httpx"
	"github.com/llantera-erp/llantera-erp/internal/sales"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

// InvoiceReader fetches invoices for rendering.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, id int64) (sales.Invoice, error)
}

// Handler manages report and document endpoints.
type Handler struct {
	logger   *slog.Logger
	client   *Client
	invoices InvoiceReader
	repo     *Repository
	mw       authz.Middleware
	shopName string
}

// NewHandler creates a report handler. client may be nil; PDF routes
// then answer 503.
func NewHandler(logger *slog.Logger, client *Client, invoices InvoiceReader, repo *Repository, mw authz.Middleware, shopName string) *Handler {
	return &Handler{logger: logger, client: client, invoices: invoices, repo: repo, mw: mw, shopName: shopName}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermVerReportes))
		r.Get("/ventas/diario", h.dailySales)
		r.Get("/ping", h.ping)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermExportarReportes))
		r.Get("/facturas/{id}/pdf", h.invoicePDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermImprimirRecibos))
		r.Get("/facturas/{id}/recibo", h.invoiceReceipt)
	})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("desde"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "desde must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("hasta"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "hasta must be YYYY-MM-DD")
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}
	summaries, err := h.repo.SalesByDay(r.Context(), from, to)
	if err != nil {
		h.logger.Error("daily sales report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	if h.client == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), InvoiceHTML(inv, h.shopName))
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Int64("invoice_id", inv.ID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", inv.Folio))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) invoiceReceipt(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(RenderReceipt(inv, h.shopName)))
}

func (h *Handler) loadInvoice(w http.ResponseWriter, r *http.Request) (sales.Invoice, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return sales.Invoice{}, false
	}
	inv, err := h.invoices.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		} else {
			h.logger.Error("load invoice", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return sales.Invoice{}, false
	}
	return inv, true
}
