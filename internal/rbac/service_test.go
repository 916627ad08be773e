package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	roles       map[int64]Role
	rolePerms   map[int64][]int64
	roleMembers map[int64][]int64
	attached    []int64
	detached    []int64
	membersErr  error
	nextRoleID  int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		roles:       make(map[int64]Role),
		rolePerms:   make(map[int64][]int64),
		roleMembers: make(map[int64][]int64),
		nextRoleID:  1,
	}
}

func (s *stubRepo) ListRoles(context.Context) ([]Role, error) {
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRepo) GetRole(_ context.Context, id int64) (Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (s *stubRepo) CreateRole(_ context.Context, name, description string) (Role, error) {
	r := Role{ID: s.nextRoleID, Name: name, Description: description}
	s.roles[r.ID] = r
	s.nextRoleID++
	return r, nil
}

func (s *stubRepo) UpdateRole(_ context.Context, id int64, name, description string) (Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	r.Name, r.Description = name, description
	s.roles[id] = r
	return r, nil
}

func (s *stubRepo) DeleteRole(_ context.Context, id int64) error {
	if _, ok := s.roles[id]; !ok {
		return ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (s *stubRepo) ListPermissions(context.Context) ([]Permission, error) { return nil, nil }

func (s *stubRepo) EnsurePermission(_ context.Context, name, description, module string) (Permission, error) {
	return Permission{ID: 1, Name: name, Description: description, Module: module}, nil
}

func (s *stubRepo) RolePermissionIDs(_ context.Context, roleID int64) ([]int64, error) {
	return s.rolePerms[roleID], nil
}

func (s *stubRepo) AttachPermission(_ context.Context, roleID, permissionID int64) error {
	s.attached = append(s.attached, permissionID)
	s.rolePerms[roleID] = append(s.rolePerms[roleID], permissionID)
	return nil
}

func (s *stubRepo) DetachPermission(_ context.Context, roleID, permissionID int64) error {
	s.detached = append(s.detached, permissionID)
	return nil
}

func (s *stubRepo) AssignRole(_ context.Context, userID, roleID int64) error {
	s.roleMembers[roleID] = append(s.roleMembers[roleID], userID)
	return nil
}

func (s *stubRepo) RemoveRole(context.Context, int64, int64) error { return nil }

func (s *stubRepo) RoleMemberIDs(_ context.Context, roleID int64) ([]int64, error) {
	if s.membersErr != nil {
		return nil, s.membersErr
	}
	return s.roleMembers[roleID], nil
}

func (s *stubRepo) UserRoles(context.Context, int64) ([]string, error) { return nil, nil }

func (s *stubRepo) EffectivePermissions(context.Context, int64) ([]string, error) { return nil, nil }

type recordingInvalidator struct {
	dirty          []int64
	invalidatedAll int
}

func (r *recordingInvalidator) MarkDirty(userID int64) { r.dirty = append(r.dirty, userID) }
func (r *recordingInvalidator) InvalidateAll()         { r.invalidatedAll++ }

func TestCreateRoleRequiresName(t *testing.T) {
	svc := NewService(newStubRepo(), nil, nil, nil)

	_, err := svc.CreateRole(context.Background(), 1, "  ", "")
	assert.Error(t, err)
}

func TestAssignRoleMarksUserDirty(t *testing.T) {
	repo := newStubRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil, nil)

	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, 7))
	assert.Equal(t, []int64{42}, inv.dirty)
}

func TestRemoveRoleMarksUserDirty(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := NewService(newStubRepo(), inv, nil, nil)

	require.NoError(t, svc.RemoveRole(context.Background(), 1, 42, 7))
	assert.Equal(t, []int64{42}, inv.dirty)
}

func TestSetRolePermissionsDiffsAndInvalidatesMembers(t *testing.T) {
	repo := newStubRepo()
	repo.rolePerms[7] = []int64{1, 2}
	repo.roleMembers[7] = []int64{10, 11}
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil, nil)

	require.NoError(t, svc.SetRolePermissions(context.Background(), 1, 7, []int64{2, 3}))

	assert.Equal(t, []int64{3}, repo.attached)
	assert.Equal(t, []int64{1}, repo.detached)
	assert.ElementsMatch(t, []int64{10, 11}, inv.dirty)
}

func TestSetRolePermissionsFallsBackToFullInvalidation(t *testing.T) {
	repo := newStubRepo()
	repo.membersErr = errors.New("query failed")
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil, nil)

	require.NoError(t, svc.SetRolePermissions(context.Background(), 1, 7, []int64{1}))
	assert.Equal(t, 1, inv.invalidatedAll)
	assert.Empty(t, inv.dirty)
}

func TestDeleteRoleInvalidatesAll(t *testing.T) {
	repo := newStubRepo()
	repo.roles[7] = Role{ID: 7, Name: "Cajero"}
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil, nil)

	require.NoError(t, svc.DeleteRole(context.Background(), 1, 7))
	assert.Equal(t, 1, inv.invalidatedAll)
}

func TestUpdateRoleInvalidatesMembers(t *testing.T) {
	repo := newStubRepo()
	repo.roles[7] = Role{ID: 7, Name: "Mostrador"}
	repo.roleMembers[7] = []int64{42}
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil, nil)

	_, err := svc.UpdateRole(context.Background(), 1, 7, "Gerente", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, inv.dirty)
}
