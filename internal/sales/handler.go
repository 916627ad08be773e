package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/llantera-erp/llantera-erp/internal/authz"
	"github.com/llantera-erp/llantera-erp/internal/platform/httpx"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

// Handler exposes invoicing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers invoicing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermVerFacturas))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermCrearFacturas))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermCancelarFacturas))
		r.Post("/{id}/cancelar", h.cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermImprimirRecibos))
		r.Post("/{id}/recibo", h.reprint)
	})
}

type lineResponse struct {
	ProductID      int64  `json:"productoId"`
	SKU            string `json:"sku"`
	Description    string `json:"descripcion"`
	Qty            int    `json:"cantidad"`
	UnitPriceCents int64  `json:"precioUnitarioCentavos"`
	TotalCents     int64  `json:"totalCentavos"`
}

type invoiceResponse struct {
	ID            int64          `json:"id"`
	Folio         string         `json:"folio"`
	CustomerName  string         `json:"cliente"`
	CustomerRFC   string         `json:"rfc,omitempty"`
	Status        string         `json:"estado"`
	SubtotalCents int64          `json:"subtotalCentavos"`
	TaxCents      int64          `json:"ivaCentavos"`
	TotalCents    int64          `json:"totalCentavos"`
	IssuedBy      int64          `json:"emitidaPor"`
	IssuedAt      time.Time      `json:"emitidaEn"`
	CancelledAt   *time.Time     `json:"canceladaEn,omitempty"`
	CancelReason  string         `json:"motivoCancelacion,omitempty"`
	Lines         []lineResponse `json:"lineas,omitempty"`
}

func toResponse(inv Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		Folio:         inv.Folio,
		CustomerName:  inv.CustomerName,
		CustomerRFC:   inv.CustomerRFC,
		Status:        inv.Status,
		SubtotalCents: inv.SubtotalCents,
		TaxCents:      inv.TaxCents,
		TotalCents:    inv.TotalCents,
		IssuedBy:      inv.IssuedBy,
		IssuedAt:      inv.IssuedAt,
		CancelledAt:   inv.CancelledAt,
		CancelReason:  inv.CancelReason,
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ProductID:      l.ProductID,
			SKU:            l.SKU,
			Description:    l.Description,
			Qty:            l.Qty,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.TotalCents,
		})
	}
	return resp
}

type listResponse struct {
	Invoices   []invoiceResponse `json:"facturas"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	invoices, total, err := h.service.ListInvoices(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Invoices: out, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

type draftLineRequest struct {
	ProductID int64 `json:"productoId"`
	Qty       int   `json:"cantidad"`
}

type createInvoiceRequest struct {
	CustomerName string             `json:"cliente"`
	CustomerRFC  string             `json:"rfc"`
	Lines        []draftLineRequest `json:"lineas"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	draft := Draft{CustomerName: req.CustomerName, CustomerRFC: req.CustomerRFC}
	for _, l := range req.Lines {
		draft.Lines = append(draft.Lines, DraftLine{ProductID: l.ProductID, Qty: l.Qty})
	}
	actor := authz.PrincipalFromContext(r.Context())
	inv, err := h.service.CreateInvoice(r.Context(), draft, r.Header.Get("Idempotency-Key"), actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv))
}

type cancelRequest struct {
	Reason string `json:"motivo"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor := authz.PrincipalFromContext(r.Context())
	inv, err := h.service.CancelInvoice(r.Context(), id, req.Reason, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) reprint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.ReprintReceipt(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", "existencias insuficientes")
	case errors.Is(err, ErrAlreadyCancelled):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrEmptyInvoice):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("sales handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
