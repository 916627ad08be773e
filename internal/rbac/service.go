package rbac

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/llantera-erp/llantera-erp/internal/shared"
)

// Invalidator receives cache invalidation signals when grants change.
// Satisfied by authz.SnapshotCache.
type Invalidator interface {
	MarkDirty(userID int64)
	InvalidateAll()
}

// Service orchestrates role and permission administration. Every grant
// mutation signals the snapshot cache so downstream permission checks
// refetch instead of trusting stale data, and records an audit entry.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService constructs a Service. invalidator and audit may be nil.
func NewService(repo RepositoryPort, invalidator Invalidator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, audit: audit, logger: logger}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, actorID, "role.created", role.ID, nil)
	return role, nil
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	// Renaming a role can change who counts as administrator.
	s.invalidateRoleMembers(ctx, id)
	s.recordAudit(ctx, actorID, "role.updated", id, nil)
	return role, nil
}

// DeleteRole removes a role and invalidates every cached snapshot; the
// membership rows are gone by the time we could enumerate them.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}
	s.recordAudit(ctx, actorID, "role.deleted", id, nil)
	return nil
}

// ListPermissions returns all registered permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// EnsurePermission upserts a permission definition.
func (s *Service) EnsurePermission(ctx context.Context, name, description, module string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}
	return s.repo.EnsurePermission(ctx, name, strings.TrimSpace(description), strings.TrimSpace(module))
}

// SetRolePermissions replaces the permission set of a role and marks
// every member's snapshot dirty.
func (s *Service) SetRolePermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	current, err := s.repo.RolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	s.invalidateRoleMembers(ctx, roleID)
	s.recordAudit(ctx, actorID, "role.permissions_set", roleID, map[string]any{"count": len(permissionIDs)})
	return nil
}

// AssignRole assigns a role to the given user.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.MarkDirty(userID)
	}
	s.recordAudit(ctx, actorID, "role.assigned", roleID, map[string]any{"user_id": userID})
	return nil
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.MarkDirty(userID)
	}
	s.recordAudit(ctx, actorID, "role.removed", roleID, map[string]any{"user_id": userID})
	return nil
}

// UserRoles returns the role names assigned to a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserRoles(ctx, userID)
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.EffectivePermissions(ctx, userID)
}

// SeedPermissions registers every permission the application declares,
// grouped by module. Run at startup so new code-level permissions show
// up for role editing without a migration.
func (s *Service) SeedPermissions(ctx context.Context) error {
	groups := map[string][]string{
		"core":       shared.CoreScopes(),
		"inventario": shared.InventoryScopes(),
		"ventas":     shared.SalesScopes(),
		"compras":    shared.ProcurementScopes(),
		"reportes":   shared.ReportScopes(),
	}
	for module, names := range groups {
		for _, name := range names {
			if _, err := s.EnsurePermission(ctx, name, "", module); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) invalidateRoleMembers(ctx context.Context, roleID int64) {
	if s.invalidator == nil {
		return
	}
	members, err := s.repo.RoleMemberIDs(ctx, roleID)
	if err != nil {
		s.logger.Warn("enumerate role members, invalidating all", slog.Any("error", err))
		s.invalidator.InvalidateAll()
		return
	}
	for _, userID := range members {
		s.invalidator.MarkDirty(userID)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "rbac",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit rbac", slog.String("action", action), slog.Any("error", err))
	}
}
