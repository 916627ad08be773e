package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/llantera-erp/llantera-erp/internal/auth"
	"github.com/llantera-erp/llantera-erp/internal/authz"
	"github.com/llantera-erp/llantera-erp/internal/inventory"
	"github.com/llantera-erp/llantera-erp/internal/observability"
	"github.com/llantera-erp/llantera-erp/internal/procurement"
	"github.com/llantera-erp/llantera-erp/internal/rbac"
	"github.com/llantera-erp/llantera-erp/internal/sales"
	"github.com/llantera-erp/llantera-erp/internal/shared"
	"github.com/llantera-erp/llantera-erp/internal/users"
	"github.com/llantera-erp/llantera-erp/internal/view"
	"github.com/llantera-erp/llantera-erp/jobs"
	"github.com/llantera-erp/llantera-erp/report"
	"github.com/llantera-erp/llantera-erp/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Authz          *authz.Middleware
	Resolver       *authz.Resolver

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RBACHandler        *rbac.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	ProcurementHandler *procurement.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Authz:          params.Authz,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		data := view.TemplateData{
			Title:       params.Config.ShopName,
			CSRFToken:   csrfToken,
			Flash:       sess.PopFlash(),
			CurrentPath: r.URL.Path,
			Gate:        view.NewGate(r.Context(), params.Resolver),
			Data: map[string]any{
				"AppEnv":   params.Config.AppEnv,
				"ShopName": params.Config.ShopName,
			},
		}
		if err := params.Templates.Render(w, "inicio.html", data); err != nil {
			params.Logger.Error("render inicio", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountAPIRoutes(r)
		r.Route("/usuarios", params.UsersHandler.MountRoutes)
		r.Route("/productos", params.InventoryHandler.MountRoutes)
		r.Route("/facturas", params.SalesHandler.MountRoutes)
		r.Route("/proveedores", params.ProcurementHandler.MountSupplierRoutes)
		r.Route("/ordenes-compra", params.ProcurementHandler.MountOrderRoutes)
		params.RBACHandler.MountRoutes(r)
	})
	params.InventoryHandler.MountPages(r, params.Resolver)
	r.Route("/reportes", params.ReportHandler.MountRoutes)
	r.Route("/jobs", params.JobHandler.MountRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
