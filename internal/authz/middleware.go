package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/llantera-erp/llantera-erp/internal/shared"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, Anonymous when absent.
func PrincipalFromContext(ctx context.Context) Principal {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return Anonymous
	}
	return p
}

// SessionChecker reports whether a session record is still active in
// the backing store. Satisfied by the auth repository. Implementations
// may return shared.ErrSessionRevoked instead of (false, nil); the
// gate treats both the same.
type SessionChecker interface {
	SessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Middleware bundles the request-scoped authorization plumbing: it
// derives the principal, keeps its snapshot fresh and gates routes on
// permissions.
type Middleware struct {
	Resolver    *Resolver
	TokenSecret []byte
	Sessions    SessionChecker
	Logger      *slog.Logger
}

// Principal derives the request principal from the bearer token or the
// cookie session and stores it in context. Requests without credentials
// proceed as Anonymous; rejection is left to the gates downstream.
func (m Middleware) Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), m.principalFor(r))))
	})
}

func (m Middleware) principalFor(r *http.Request) Principal {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := ParseToken(m.TokenSecret, token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("bearer token rejected", slog.Any("error", err))
			}
			return Anonymous
		}
		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return Anonymous
		}
		return Principal{
			UserID:        userID,
			Name:          claims.Name,
			Roles:         claims.Roles,
			Token:         token,
			Authenticated: true,
		}
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return Anonymous
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("session user id malformed", slog.String("value", sess.User()))
		}
		return Anonymous
	}
	return Principal{UserID: userID, SessionID: sess.ID, Authenticated: true}
}

// RefreshSnapshots keeps the principal's snapshot fresh. A stale or
// dirty snapshot is refetched before any downstream check runs in the
// same request. The reserved query parameter forces an unconditional
// invalidate-and-refetch; GET requests are then redirected to the same
// path with the parameter stripped so back-navigation does not force
// again.
func (m Middleware) RefreshSnapshots(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if !p.Authenticated {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Query().Has(RefreshParam) {
			m.Resolver.Cache().Invalidate(p.UserID)
			if err := m.Resolver.Refresh(r.Context(), p); err != nil && m.Logger != nil {
				m.Logger.Error("forced permission refresh", slog.Any("error", err))
			}
			if r.Method == http.MethodGet {
				q := r.URL.Query()
				q.Del(RefreshParam)
				target := r.URL.Path
				if encoded := q.Encode(); encoded != "" {
					target += "?" + encoded
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if m.Resolver.Cache().NeedsRefresh(p.UserID) {
			if err := m.Resolver.Refresh(r.Context(), p); err != nil && m.Logger != nil {
				// The check itself stays fail-closed; the refresh here
				// is only proactive.
				m.Logger.Warn("proactive permission refresh", slog.Any("error", err))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionGate rejects requests whose backing session record is no
// longer active, regardless of any permission outcome. Token-based
// principals pass through; their lifetime is bounded by the token
// expiry instead.
func (m Middleware) SessionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if !p.Authenticated || p.SessionID == "" || m.Sessions == nil {
			next.ServeHTTP(w, r)
			return
		}
		active, err := m.Sessions.SessionActive(r.Context(), p.SessionID)
		if err == nil && !active {
			err = shared.ErrSessionRevoked
		}
		if err != nil {
			if errors.Is(err, shared.ErrSessionRevoked) {
				writeDenial(w, http.StatusUnauthorized, Denial{
					Message: "La sesión ya no está activa",
					UserID:  p.UserID,
				})
				return
			}
			if m.Logger != nil {
				m.Logger.Error("session liveness check", slog.Any("error", err))
			}
			writeDenial(w, http.StatusUnauthorized, Denial{
				Message: "Sesión no verificable",
				UserID:  p.UserID,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route on a single permission.
func (m Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return m.require(func(ctx context.Context, p Principal) Decision {
		return m.Resolver.Check(ctx, p, permission)
	}, permission)
}

// RequireAny gates a route on holding at least one of the permissions.
func (m Middleware) RequireAny(permissions ...string) func(http.Handler) http.Handler {
	label := strings.Join(permissions, "|")
	return m.require(func(ctx context.Context, p Principal) Decision {
		var last Decision
		for _, perm := range permissions {
			last = m.Resolver.Check(ctx, p, perm)
			if last.Granted || last.LookupErr != nil {
				return last
			}
		}
		last.Permission = label
		return last
	}, label)
}

// RequireAll gates a route on holding every permission.
func (m Middleware) RequireAll(permissions ...string) func(http.Handler) http.Handler {
	label := strings.Join(permissions, "&")
	return m.require(func(ctx context.Context, p Principal) Decision {
		last := Decision{Granted: true, UserID: p.UserID, UserName: p.Name}
		for _, perm := range permissions {
			last = m.Resolver.Check(ctx, p, perm)
			if !last.Granted {
				return last
			}
		}
		return last
	}, label)
}

func (m Middleware) require(check func(context.Context, Principal) Decision, label string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if !p.Authenticated {
				writeDenial(w, http.StatusUnauthorized, Denial{
					Message:          "Autenticación requerida",
					PermisoRequerido: label,
				})
				return
			}
			d := check(r.Context(), p)
			if d.Granted {
				next.ServeHTTP(w, r)
				return
			}
			writeDenial(w, denialStatus(d), denialFor(d))
		})
	}
}

func denialStatus(d Decision) int {
	if d.LookupErr != nil {
		return http.StatusInternalServerError
	}
	return http.StatusForbidden
}

func denialFor(d Decision) Denial {
	den := Denial{
		Message:          "No tiene permiso para realizar esta acción",
		PermisoRequerido: d.Permission,
		Usuario:          d.UserName,
		EsAdministrador:  d.IsAdmin,
		UserID:           d.UserID,
	}
	if d.LookupErr != nil {
		den.Message = "No fue posible verificar el permiso"
		// Short operator hint only; backing-store internals stay out
		// of the response.
		if errors.Is(d.LookupErr, ErrInvalidToken) {
			den.Message = "Token inválido"
		}
	}
	return den
}
