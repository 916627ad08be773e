package inventory

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
	"github.com/llantera-erp/llantera-erp/internal/view"
)

// Handler exposes the product catalog as JSON plus the catalog page.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
	guard   *authz.Guard
	views   *view.Engine
}

// NewHandler builds a Handler instance. views may be nil for API-only use.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware, guard *authz.Guard, views *view.Engine) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, guard: guard, views: views}
}

// MountRoutes registers catalog API routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermVerProductos))
		r.Get("/", h.list)
		r.Get("/bajo-minimo", h.lowStock)
		r.Get("/{id}", h.get)
		r.Get("/{id}/movimientos", h.movements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermCrearProductos))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermEditarProductos))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermEliminarProductos))
		r.Delete("/{id}", h.deactivate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermAjustarInventario))
		r.Post("/{id}/ajustes", h.adjust)
	})
}

// MountPages registers the HTML catalog page.
func (h *Handler) MountPages(r chi.Router, resolver *authz.Resolver) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermVerProductos))
		r.Get("/productos", h.page(resolver))
	})
}

// productResponse is the JSON shape. CostCents is a pointer so callers
// without cost visibility get the field omitted, not a zero they might
// mistake for a real cost.
type productResponse struct {
	ID         int64     `json:"id"`
	SKU        string    `json:"sku"`
	Brand      string    `json:"marca"`
	Model      string    `json:"modelo"`
	Measure    string    `json:"medida"`
	PriceCents int64     `json:"precioCentavos"`
	CostCents  *int64    `json:"costoCentavos,omitempty"`
	Stock      int       `json:"existencias"`
	MinStock   int       `json:"existenciasMinimas"`
	IsActive   bool      `json:"activo"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h *Handler) toResponse(r *http.Request, p Product) productResponse {
	resp := productResponse{
		ID:         p.ID,
		SKU:        p.SKU,
		Brand:      p.Brand,
		Model:      p.Model,
		Measure:    p.Measure,
		PriceCents: p.PriceCents,
		Stock:      p.Stock,
		MinStock:   p.MinStock,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
	}
	if h.guard != nil && h.guard.Allows(r.Context(), shared.PermVerCostos) {
		cost := p.CostCents
		resp.CostCents = &cost
	}
	return resp
}

func (h *Handler) toResponses(r *http.Request, products []Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, h.toResponse(r, p))
	}
	return out
}

type listResponse struct {
	Products   []productResponse `json:"productos"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	products, total, err := h.service.ListProducts(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Products:   h.toResponses(r, products),
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(r, product))
}

type productRequest struct {
	SKU        string `json:"sku"`
	Brand      string `json:"marca"`
	Model      string `json:"modelo"`
	Measure    string `json:"medida"`
	PriceCents int64  `json:"precioCentavos"`
	CostCents  int64  `json:"costoCentavos"`
	MinStock   int    `json:"existenciasMinimas"`
}

func (r productRequest) toInput() ProductInput {
	return ProductInput{
		SKU:        r.SKU,
		Brand:      r.Brand,
		Model:      r.Model,
		Measure:    r.Measure,
		PriceCents: r.PriceCents,
		CostCents:  r.CostCents,
		MinStock:   r.MinStock,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	product, err := h.service.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toResponse(r, product))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(r, product))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateProduct(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"nota"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "delta must be non-zero")
		return
	}
	actor := authz.PrincipalFromContext(r.Context())
	if err := h.service.AdjustStock(r.Context(), id, req.Delta, req.Note, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type movementResponse struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"tipo"`
	Qty       int       `json:"cantidad"`
	RefID     string    `json:"referencia,omitempty"`
	Note      string    `json:"nota,omitempty"`
	ActorID   int64     `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), id, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementResponse{
			ID:        m.ID,
			Kind:      string(m.Kind),
			Qty:       m.Qty,
			RefID:     m.RefID,
			Note:      m.Note,
			ActorID:   m.ActorID,
			CreatedAt: m.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStockProducts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponses(r, products))
}

type catalogPage struct {
	Products   []Product
	Pagination shared.Pagination
}

func (h *Handler) page(resolver *authz.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage := shared.PageFromRequest(r)
		products, total, err := h.service.ListProducts(r.Context(), page, perPage)
		if err != nil {
			h.logger.Error("catalog page", slog.Any("error", err))
			http.Error(w, "error interno", http.StatusInternalServerError)
			return
		}
		gate := view.NewGate(r.Context(), resolver)
		err = h.views.Render(w, "productos.html", view.TemplateData{
			Title:       "Productos",
			CurrentPath: r.URL.Path,
			Gate:        gate,
			Data: catalogPage{
				Products:   products,
				Pagination: shared.NewPagination(page, perPage, total),
			},
		})
		if err != nil {
			h.logger.Error("render productos", slog.Any("error", err))
		}
	}
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
	case errors.Is(err, ErrDuplicateSKU):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("inventory handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
