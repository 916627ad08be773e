package view

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llantera-erp/llantera-erp/internal/authz"
)

type fixedStrategy struct {
	permissions []string
}

func (s fixedStrategy) Fetch(_ context.Context, p authz.Principal) (authz.Snapshot, error) {
	return authz.NewSnapshot(p.UserID, p.Name, nil, s.permissions, nil), nil
}

func gateFor(t *testing.T, permissions ...string) *PermissionGate {
	t.Helper()
	resolver := authz.NewResolver(fixedStrategy{permissions: permissions}, nil, authz.Config{}, nil, nil, nil)
	ctx := authz.ContextWithPrincipal(context.Background(), authz.Principal{
		UserID:        7,
		Name:          "Mostrador",
		Authenticated: true,
	})
	return NewGate(ctx, resolver)
}

func TestGateCan(t *testing.T) {
	g := gateFor(t, "VerProductos")
	assert.True(t, g.Can("VerProductos"))
	assert.False(t, g.Can("VerCostos"))
}

func TestGateCanAny(t *testing.T) {
	g := gateFor(t, "VerProductos")
	assert.True(t, g.CanAny("VerCostos", "VerProductos"))
	assert.False(t, g.CanAny("VerCostos", "VerReportes"))
	assert.False(t, g.CanAny())
}

func TestGateSuppressesForAnonymous(t *testing.T) {
	resolver := authz.NewResolver(fixedStrategy{permissions: []string{"VerProductos"}}, nil, authz.Config{}, nil, nil, nil)
	g := NewGate(context.Background(), resolver)
	assert.False(t, g.Can("VerProductos"))
}

func TestGateNilSafe(t *testing.T) {
	var g *PermissionGate
	assert.False(t, g.Can("VerProductos"))
	assert.False(t, g.CanAny("VerProductos"))

	g = NewGate(context.Background(), nil)
	assert.False(t, g.Can("VerProductos"))
}

func TestGateDeniedPlaceholder(t *testing.T) {
	g := gateFor(t, "VerProductos")

	assert.Empty(t, g.Denied("VerProductos", "sin acceso"))
	assert.Equal(t, `<p class="denied">Costos ocultos &lt;b&gt;</p>`, string(g.Denied("VerCostos", "Costos ocultos <b>")))
	assert.Empty(t, g.Denied("VerCostos", ""))
}
