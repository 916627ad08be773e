package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("prueba-secreta-0123456789abcdef")

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, 42, "Cajera", []string{"Cajero"}, []string{"CrearFacturas"}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "Cajera", claims.Name)
	assert.Equal(t, []string{"Cajero"}, claims.Roles)
	assert.Equal(t, []string{"CrearFacturas"}, claims.Permissions)
}

func TestIssueTokenRequiresUserAndTTL(t *testing.T) {
	_, err := IssueToken(testSecret, 0, "", nil, nil, time.Hour)
	assert.Error(t, err)

	_, err = IssueToken(testSecret, 1, "", nil, nil, 0)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, 42, "", nil, nil, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("otra-clave"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken(testSecret, 42, "", nil, nil, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = ParseToken(testSecret, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "   ", "not.a.jwt"} {
		_, err := ParseToken(testSecret, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestClaimsStrategyFetch(t *testing.T) {
	token, err := IssueToken(testSecret, 7, "Cajera", []string{"Cajero"}, []string{"CrearFacturas", "VerFacturas"}, time.Hour)
	require.NoError(t, err)

	strategy := NewClaimsStrategy(testSecret, nil)
	snap, err := strategy.Fetch(context.Background(), Principal{UserID: 7, Token: token, Authenticated: true})
	require.NoError(t, err)

	assert.Equal(t, int64(7), snap.UserID)
	assert.True(t, snap.Has("CrearFacturas"))
	assert.False(t, snap.Has("VerCostos"))
	assert.False(t, snap.IsAdmin)
}

func TestClaimsStrategyAdminRole(t *testing.T) {
	token, err := IssueToken(testSecret, 1, "Dueño", []string{"Administrador"}, nil, time.Hour)
	require.NoError(t, err)

	strategy := NewClaimsStrategy(testSecret, nil)
	snap, err := strategy.Fetch(context.Background(), Principal{UserID: 1, Token: token, Authenticated: true})
	require.NoError(t, err)

	assert.True(t, snap.IsAdmin)
	assert.True(t, snap.Has("CualquierPermiso"))
}

func TestClaimsStrategyRejectsSubjectMismatch(t *testing.T) {
	token, err := IssueToken(testSecret, 7, "", nil, nil, time.Hour)
	require.NoError(t, err)

	strategy := NewClaimsStrategy(testSecret, nil)
	_, err = strategy.Fetch(context.Background(), Principal{UserID: 8, Token: token, Authenticated: true})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
