package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/llantera-erp/llantera-erp/internal/authz"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

type stubRepo struct {
	users    map[string]*User
	sessions map[string]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[string]*User), sessions: make(map[string]bool)}
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) CreateSession(_ context.Context, id string, _ int64, _ time.Time, _, _ string) error {
	s.sessions[id] = true
	return nil
}

func (s *stubRepo) RevokeSession(_ context.Context, id string) error {
	s.sessions[id] = false
	return nil
}

func (s *stubRepo) SessionActive(_ context.Context, id string) (bool, error) {
	return s.sessions[id], nil
}

type stubGrants struct {
	roles []string
	perms []string
}

func (s stubGrants) UserRoles(context.Context, int64) ([]string, error) { return s.roles, nil }

func (s stubGrants) EffectivePermissions(context.Context, int64) ([]string, error) {
	return s.perms, nil
}

var tokenSecret = []byte("secreto-prueba-0123456789abcdef")

func addUser(t *testing.T, repo *stubRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{ID: 42, Email: email, Name: "Caja Uno", PasswordHash: string(hash), IsActive: active}
	repo.users[email] = u
	return u
}

func TestAuthenticate(t *testing.T) {
	repo := newStubRepo()
	addUser(t, repo, "caja@llantera.local", "caja123", true)
	svc := NewService(repo, stubGrants{}, tokenSecret, time.Hour)

	user, err := svc.Authenticate(context.Background(), "caja@llantera.local", "caja123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newStubRepo()
	addUser(t, repo, "caja@llantera.local", "caja123", true)
	svc := NewService(repo, stubGrants{}, tokenSecret, time.Hour)

	_, err := svc.Authenticate(context.Background(), "caja@llantera.local", "otra")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newStubRepo(), stubGrants{}, tokenSecret, time.Hour)

	_, err := svc.Authenticate(context.Background(), "nadie@llantera.local", "x")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newStubRepo()
	addUser(t, repo, "baja@llantera.local", "caja123", false)
	svc := NewService(repo, stubGrants{}, tokenSecret, time.Hour)

	_, err := svc.Authenticate(context.Background(), "baja@llantera.local", "caja123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestIssueTokenEmbedsGrants(t *testing.T) {
	repo := newStubRepo()
	user := addUser(t, repo, "caja@llantera.local", "caja123", true)
	grants := stubGrants{roles: []string{"Cajero"}, perms: []string{"VerProductos", "CrearFacturas"}}
	svc := NewService(repo, grants, tokenSecret, time.Hour)

	token, err := svc.IssueToken(context.Background(), user)
	require.NoError(t, err)

	claims, err := authz.ParseToken(tokenSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, []string{"Cajero"}, claims.Roles)
	assert.Equal(t, []string{"VerProductos", "CrearFacturas"}, claims.Permissions)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, stubGrants{}, tokenSecret, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "s1", 42, time.Now().Add(time.Hour), "127.0.0.1", "prueba"))
	active, err := repo.SessionActive(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, svc.RevokeSession(ctx, "s1"))
	active, err = repo.SessionActive(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, active)
}
