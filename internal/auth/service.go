package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/llantera-erp/llantera-erp/internal/authz"
	"github.com/llantera-erp/llantera-erp/internal/shared"
)

// GrantSource provides roles and effective permissions for a user,
// used when embedding claims into API tokens. Satisfied by the rbac
// service.
type GrantSource interface {
	UserRoles(ctx context.Context, userID int64) ([]string, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	grants      GrantSource
	tokenSecret []byte
	tokenTTL    time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, grants GrantSource, tokenSecret []byte, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &Service{repo: repo, grants: grants, tokenSecret: tokenSecret, tokenTTL: tokenTTL}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RevokeSession deactivates a session record; the session gate starts
// rejecting the cookie on the next request.
func (s *Service) RevokeSession(ctx context.Context, id string) error {
	return s.repo.RevokeSession(ctx, id)
}

// IssueToken signs an API token for the user, embedding its current
// roles and effective permission names as claims.
func (s *Service) IssueToken(ctx context.Context, user *User) (string, error) {
	roles, err := s.grants.UserRoles(ctx, user.ID)
	if err != nil {
		return "", err
	}
	perms, err := s.grants.EffectivePermissions(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return authz.IssueToken(s.tokenSecret, user.ID, user.Name, roles, perms, s.tokenTTL)
}

// TokenTTL exposes the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
