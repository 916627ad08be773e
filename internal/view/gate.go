package view

import (
	"context"
	"html/template"

	"github.com/llantera-erp/llantera-erp/internal/authz"
)

// PermissionGate decides per-request whether gated template fragments
// render. It is a thin branch over the resolver's boolean answer: the
// fragment renders when the permission holds, is suppressed otherwise,
// and any ambiguity (zero-value gate, unauthenticated principal)
// suppresses as well.
type PermissionGate struct {
	ctx      context.Context
	resolver *authz.Resolver
}

// NewGate builds a gate bound to the request context's principal.
func NewGate(ctx context.Context, resolver *authz.Resolver) *PermissionGate {
	return &PermissionGate{ctx: ctx, resolver: resolver}
}

// Can reports whether the current principal holds the permission.
func (g *PermissionGate) Can(permission string) bool {
	if g == nil || g.resolver == nil || g.ctx == nil {
		return false
	}
	return g.resolver.HasPermission(g.ctx, authz.PrincipalFromContext(g.ctx), permission)
}

// CanAny reports whether the principal holds at least one permission.
func (g *PermissionGate) CanAny(permissions ...string) bool {
	for _, p := range permissions {
		if g.Can(p) {
			return true
		}
	}
	return false
}

// Denied renders the placeholder message when the permission is
// missing, and nothing when it holds. Lets templates substitute a note
// where a fragment was suppressed.
func (g *PermissionGate) Denied(permission, placeholder string) template.HTML {
	if g.Can(permission) {
		return ""
	}
	if placeholder == "" {
		return ""
	}
	return template.HTML("<p class=\"denied\">" + template.HTMLEscapeString(placeholder) + "</p>")
}
