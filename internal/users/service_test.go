package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubRepo struct {
	users      map[int64]User
	active     map[int64]bool
	revoked    []int64
	lastHash   string
	nextUserID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[int64]User), active: make(map[int64]bool), nextUserID: 1}
}

func (s *stubRepo) ListUsers(context.Context) ([]User, error) { return nil, nil }

func (s *stubRepo) GetUser(_ context.Context, id int64) (User, error) {
	return s.users[id], nil
}

func (s *stubRepo) CreateUser(_ context.Context, email, name, passwordHash string) (User, error) {
	u := User{ID: s.nextUserID, Email: email, Name: name, IsActive: true}
	s.users[u.ID] = u
	s.active[u.ID] = true
	s.lastHash = passwordHash
	s.nextUserID++
	return u, nil
}

func (s *stubRepo) SetActive(_ context.Context, id int64, active bool) error {
	s.active[id] = active
	return nil
}

func (s *stubRepo) RevokeUserSessions(_ context.Context, id int64) error {
	s.revoked = append(s.revoked, id)
	return nil
}

type dirtyRecorder struct{ marked []int64 }

func (d *dirtyRecorder) MarkDirty(userID int64) { d.marked = append(d.marked, userID) }

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	u, err := svc.CreateUser(context.Background(), "caja@llantera.local", "Caja Uno", "caja123")
	require.NoError(t, err)
	assert.Equal(t, "caja@llantera.local", u.Email)
	assert.NotEqual(t, "caja123", repo.lastHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("caja123")))
}

func TestDeactivateRevokesSessionsAndDirtiesSnapshot(t *testing.T) {
	repo := newStubRepo()
	rec := &dirtyRecorder{}
	svc := NewService(repo, rec)

	require.NoError(t, svc.SetActive(context.Background(), 42, false))
	assert.False(t, repo.active[42])
	assert.Equal(t, []int64{42}, repo.revoked)
	assert.Equal(t, []int64{42}, rec.marked)
}

func TestReactivateKeepsSessionsRevoked(t *testing.T) {
	repo := newStubRepo()
	rec := &dirtyRecorder{}
	svc := NewService(repo, rec)

	require.NoError(t, svc.SetActive(context.Background(), 42, true))
	assert.True(t, repo.active[42])
	assert.Empty(t, repo.revoked)
	assert.Equal(t, []int64{42}, rec.marked)
}
