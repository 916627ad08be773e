package users

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	RevokeUserSessions(ctx context.Context, id int64) error
}

// Invalidator marks permission snapshots untrusted when an account
// changes state. Satisfied by authz.SnapshotCache.
type Invalidator interface {
	MarkDirty(userID int64)
}

// Service handles user administration logic.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
}

// NewService builds a Service instance. invalidator may be nil.
func NewService(repo RepositoryPort, invalidator Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, email, name, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, email, name, string(hash))
}

// SetActive toggles an account. Deactivation also revokes the user's
// sessions and dirties its permission snapshot so the lockout takes
// effect on the next request instead of after the TTL.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		if err := s.repo.RevokeUserSessions(ctx, id); err != nil {
			return err
		}
	}
	if s.invalidator != nil {
		s.invalidator.MarkDirty(id)
	}
	return nil
}
