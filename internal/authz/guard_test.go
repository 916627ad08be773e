package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardCheckGranted(t *testing.T) {
	g := NewGuard(newTestResolver(sellerStrategy(), Config{}))

	ctx := ContextWithPrincipal(context.Background(), seller())
	den, status := g.Check(ctx, "VerProductos")
	assert.Nil(t, den)
	assert.Equal(t, http.StatusOK, status)
}

func TestGuardCheckUnauthenticated(t *testing.T) {
	g := NewGuard(newTestResolver(sellerStrategy(), Config{}))

	den, status := g.Check(context.Background(), "VerProductos")
	assert.Equal(t, http.StatusUnauthorized, status)
	if assert.NotNil(t, den) {
		assert.Equal(t, "VerProductos", den.PermisoRequerido)
		assert.False(t, den.TienePermiso)
	}
}

func TestGuardCheckDenied(t *testing.T) {
	g := NewGuard(newTestResolver(sellerStrategy(), Config{}))

	ctx := ContextWithPrincipal(context.Background(), seller())
	den, status := g.Check(ctx, "VerCostos")
	assert.Equal(t, http.StatusForbidden, status)
	if assert.NotNil(t, den) {
		assert.Equal(t, "VerCostos", den.PermisoRequerido)
		assert.Equal(t, "Vendedor Uno", den.Usuario)
		assert.Equal(t, int64(10), den.UserID)
	}
}

func TestGuardCheckLookupFailure(t *testing.T) {
	g := NewGuard(newTestResolver(&fakeStrategy{err: errors.New("db down")}, Config{}))

	ctx := ContextWithPrincipal(context.Background(), seller())
	den, status := g.Check(ctx, "VerProductos")
	assert.Equal(t, http.StatusInternalServerError, status)
	if assert.NotNil(t, den) {
		assert.Equal(t, "No fue posible verificar el permiso", den.Message)
	}
}

func TestGuardRequireWritesDenial(t *testing.T) {
	g := NewGuard(newTestResolver(sellerStrategy(), Config{}))

	rec := httptest.NewRecorder()
	r := requestAs(seller(), "/api/productos")
	assert.False(t, g.Require(rec, r, "VerCostos"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	assert.True(t, g.Require(rec, r, "VerProductos"))
	assert.Empty(t, rec.Body.String())
}

func TestGuardAllowsFailsClosed(t *testing.T) {
	g := NewGuard(newTestResolver(sellerStrategy(), Config{}))

	ctx := ContextWithPrincipal(context.Background(), seller())
	assert.True(t, g.Allows(ctx, "VerProductos"))
	assert.False(t, g.Allows(ctx, "VerCostos"))
	assert.False(t, g.Allows(context.Background(), "VerProductos"))
}
