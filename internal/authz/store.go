package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreStrategy resolves permissions from PostgreSQL by joining user,
// role membership and role-permission assignments.
type StoreStrategy struct {
	pool       *pgxpool.Pool
	adminRoles []string
}

// NewStoreStrategy constructs the database-backed strategy.
func NewStoreStrategy(pool *pgxpool.Pool, adminRoles []string) *StoreStrategy {
	if len(adminRoles) == 0 {
		adminRoles = []string{defaultAdminRole}
	}
	return &StoreStrategy{pool: pool, adminRoles: adminRoles}
}

// Fetch builds a fresh snapshot for the principal from the database.
func (s *StoreStrategy) Fetch(ctx context.Context, principal Principal) (Snapshot, error) {
	if principal.UserID == 0 {
		return Snapshot{}, errors.New("authz: principal has no user id")
	}

	var name string
	var active bool
	err := s.pool.QueryRow(ctx, `SELECT name, is_active FROM users WHERE id = $1`, principal.UserID).Scan(&name, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("authz: user %d not found", principal.UserID)
		}
		return Snapshot{}, fmt.Errorf("authz: load user: %w", err)
	}
	if !active {
		// An inactive user keeps an empty snapshot: every check denies
		// without hitting the database again until the TTL elapses.
		return NewSnapshot(principal.UserID, name, nil, nil, s.adminRoles), nil
	}

	roles, err := s.userRoles(ctx, principal.UserID)
	if err != nil {
		return Snapshot{}, err
	}
	perms, err := s.userPermissions(ctx, principal.UserID)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(principal.UserID, name, roles, perms, s.adminRoles), nil
}

func (s *StoreStrategy) userRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("authz: load roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("authz: scan role: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (s *StoreStrategy) userPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("authz: load permissions: %w", err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("authz: scan permission: %w", err)
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

var _ Strategy = (*StoreStrategy)(nil)
