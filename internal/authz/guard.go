package authz

import (
	"context"
	"encoding/json"
	"net/http"
)

// Denial is the structured body returned on 401/403 responses. Field
// names keep the wire contract the shop's existing clients consume.
type Denial struct {
	Message          string `json:"message"`
	PermisoRequerido string `json:"permisoRequerido,omitempty"`
	TienePermiso     bool   `json:"tienePermiso"`
	Usuario          string `json:"usuario,omitempty"`
	EsAdministrador  bool   `json:"esAdministrador"`
	UserID           int64  `json:"userId,omitempty"`
}

// Guard performs handler-level permission checks for code paths that
// need more than a route-level gate (conditional logic inside an
// action, field redaction decisions).
type Guard struct {
	resolver *Resolver
}

// NewGuard constructs a Guard over the resolver.
func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// Check resolves the permission for the context principal. It returns
// nil when the caller may proceed, otherwise the denial to send along
// with its HTTP status.
func (g *Guard) Check(ctx context.Context, permission string) (*Denial, int) {
	p := PrincipalFromContext(ctx)
	if !p.Authenticated {
		return &Denial{
			Message:          "Autenticación requerida",
			PermisoRequerido: permission,
		}, http.StatusUnauthorized
	}
	d := g.resolver.Check(ctx, p, permission)
	if d.Granted {
		return nil, http.StatusOK
	}
	den := denialFor(d)
	return &den, denialStatus(d)
}

// Require writes the denial response when the context principal lacks
// the permission and reports whether the handler may continue.
func (g *Guard) Require(w http.ResponseWriter, r *http.Request, permission string) bool {
	den, status := g.Check(r.Context(), permission)
	if den == nil {
		return true
	}
	writeDenial(w, status, *den)
	return false
}

// Allows reports the bare boolean for the context principal, for call
// sites that redact rather than reject.
func (g *Guard) Allows(ctx context.Context, permission string) bool {
	return g.resolver.HasPermission(ctx, PrincipalFromContext(ctx), permission)
}

func writeDenial(w http.ResponseWriter, status int, den Denial) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(den)
}
