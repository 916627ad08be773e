package procurement

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

// Handler exposes supplier and purchase-order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountSupplierRoutes registers supplier routes.
func (h *Handler) MountSupplierRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermVerProveedores))
		r.Get("/", h.listSuppliers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermEditarProveedores))
		r.Post("/", h.createSupplier)
		r.Put("/{id}", h.updateSupplier)
	})
}

// MountOrderRoutes registers purchase-order routes.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermVerOrdenesCompra))
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermCrearOrdenesCompra))
		r.Post("/", h.createOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(shared.PermRecibirOrdenesCompra))
		r.Post("/{id}/recibir", h.receiveOrder)
	})
}

type supplierResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nombre"`
	RFC       string    `json:"rfc,omitempty"`
	Phone     string    `json:"telefono,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"activo"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSupplierResponse(s Supplier) supplierResponse {
	return supplierResponse{ID: s.ID, Name: s.Name, RFC: s.RFC, Phone: s.Phone, Email: s.Email, IsActive: s.IsActive, CreatedAt: s.CreatedAt}
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]supplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, toSupplierResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type supplierRequest struct {
	Name  string `json:"nombre"`
	RFC   string `json:"rfc"`
	Phone string `json:"telefono"`
	Email string `json:"email"`
}

func (r supplierRequest) toInput() SupplierInput {
	return SupplierInput{Name: r.Name, RFC: r.RFC, Phone: r.Phone, Email: r.Email}
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSupplierResponse(supplier))
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	supplier, err := h.service.UpdateSupplier(r.Context(), id, req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(supplier))
}

type orderLineResponse struct {
	ProductID     int64 `json:"productoId"`
	Qty           int   `json:"cantidad"`
	UnitCostCents int64 `json:"costoUnitarioCentavos"`
}

type orderResponse struct {
	ID         int64               `json:"id"`
	SupplierID int64               `json:"proveedorId"`
	Status     string              `json:"estado"`
	Notes      string              `json:"notas,omitempty"`
	CreatedBy  int64               `json:"creadaPor"`
	CreatedAt  time.Time           `json:"creadaEn"`
	ReceivedBy int64               `json:"recibidaPor,omitempty"`
	ReceivedAt *time.Time          `json:"recibidaEn,omitempty"`
	Lines      []orderLineResponse `json:"lineas,omitempty"`
}

func toOrderResponse(o Order) orderResponse {
	resp := orderResponse{
		ID:         o.ID,
		SupplierID: o.SupplierID,
		Status:     o.Status,
		Notes:      o.Notes,
		CreatedBy:  o.CreatedBy,
		CreatedAt:  o.CreatedAt,
		ReceivedBy: o.ReceivedBy,
		ReceivedAt: o.ReceivedAt,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{ProductID: l.ProductID, Qty: l.Qty, UnitCostCents: l.UnitCostCents})
	}
	return resp
}

type orderListResponse struct {
	Orders     []orderResponse   `json:"ordenes"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	orders, total, err := h.service.ListOrders(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	httpx.JSON(w, http.StatusOK, orderListResponse{Orders: out, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}

type orderLineRequest struct {
	ProductID     int64 `json:"productoId"`
	Qty           int   `json:"cantidad"`
	UnitCostCents int64 `json:"costoUnitarioCentavos"`
}

type createOrderRequest struct {
	SupplierID int64              `json:"proveedorId"`
	Notes      string             `json:"notas"`
	Lines      []orderLineRequest `json:"lineas"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	draft := OrderDraft{SupplierID: req.SupplierID, Notes: req.Notes}
	for _, l := range req.Lines {
		draft.Lines = append(draft.Lines, OrderDraftLine{ProductID: l.ProductID, Qty: l.Qty, UnitCostCents: l.UnitCostCents})
	}
	actor := authz.PrincipalFromContext(r.Context())
	order, err := h.service.CreateOrder(r.Context(), draft, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) receiveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor := authz.PrincipalFromContext(r.Context())
	order, err := h.service.ReceiveOrder(r.Context(), id, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
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
	case errors.Is(err, ErrAlreadyReceived):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("procurement handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
