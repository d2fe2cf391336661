// Copyright (c) 2026 Hemeroteca. All rights reserved.

package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/rbac"
)

// fakeGraph is an in-memory grant graph implementing every rbac repository
// interface. EffectivePermissions reproduces the shadow rule so the service
// tests exercise the semantics end to end.
type fakeGraph struct {
	roles       map[string]*rbac.Role       // roleID -> role
	permissions map[string]*rbac.Permission // permissionID -> permission
	userRoles   map[string][]string         // userID -> roleIDs
	rolePerms   map[string][]string         // roleID -> permissionIDs
	userPerms   map[string][]string         // userID -> permissionIDs (direct grants)
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		roles:       make(map[string]*rbac.Role),
		permissions: make(map[string]*rbac.Permission),
		userRoles:   make(map[string][]string),
		rolePerms:   make(map[string][]string),
		userPerms:   make(map[string][]string),
	}
}

// fakeRoleRepo and fakePermissionRepo wrap the shared graph: the two
// repository interfaces declare identically named methods with different
// signatures, so one type cannot satisfy both.
type fakeRoleRepo struct{ *fakeGraph }

func (r fakeRoleRepo) Create(_ context.Context, role *rbac.Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r fakeRoleRepo) List(_ context.Context) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, role := range r.roles {
		if role.DeletedAt == nil {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r fakeRoleRepo) FindByID(_ context.Context, id string) (*rbac.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	return role, nil
}

func (r fakeRoleRepo) Update(_ context.Context, role *rbac.Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r fakeRoleRepo) SetSessionTimeout(_ context.Context, roleID string, minutes int) error {
	r.roles[roleID].SessionTimeoutMin = &minutes
	return nil
}

func (r fakeRoleRepo) SoftDelete(_ context.Context, id string) error {
	delete(r.roles, id)
	return nil
}

func (r fakeRoleRepo) HardDelete(_ context.Context, id string) error {
	delete(r.roles, id)
	delete(r.rolePerms, id)
	return nil
}

type fakePermissionRepo struct{ *fakeGraph }

func (r fakePermissionRepo) Create(_ context.Context, permission *rbac.Permission) error {
	r.permissions[permission.ID] = permission
	return nil
}

func (r fakePermissionRepo) List(_ context.Context) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for _, permission := range r.permissions {
		out = append(out, *permission)
	}
	return out, nil
}

func (r fakePermissionRepo) Update(_ context.Context, permission *rbac.Permission) error {
	r.permissions[permission.ID] = permission
	return nil
}

func (r fakePermissionRepo) SoftDelete(_ context.Context, id string) error {
	delete(r.permissions, id)
	return nil
}

func (r fakePermissionRepo) HardDelete(_ context.Context, id string) error {
	delete(r.permissions, id)
	return nil
}

// ── AssignmentRepository ──

func (g *fakeGraph) AssignRoleToUser(_ context.Context, userID, roleID string) error {
	g.userRoles[userID] = append(g.userRoles[userID], roleID)
	return nil
}

func (g *fakeGraph) RemoveRoleFromUser(_ context.Context, userID, roleID string) error {
	g.userRoles[userID] = remove(g.userRoles[userID], roleID)
	return nil
}

func (g *fakeGraph) AssignPermissionToRole(_ context.Context, roleID, permissionID string) error {
	g.rolePerms[roleID] = append(g.rolePerms[roleID], permissionID)
	return nil
}

func (g *fakeGraph) RemovePermissionFromRole(_ context.Context, roleID, permissionID string) error {
	g.rolePerms[roleID] = remove(g.rolePerms[roleID], permissionID)
	return nil
}

func (g *fakeGraph) AssignPermissionToUser(_ context.Context, userID, permissionID string) error {
	g.userPerms[userID] = append(g.userPerms[userID], permissionID)
	return nil
}

func (g *fakeGraph) RemovePermissionFromUser(_ context.Context, userID, permissionID string) error {
	g.userPerms[userID] = remove(g.userPerms[userID], permissionID)
	if len(g.userPerms[userID]) == 0 {
		delete(g.userPerms, userID)
	}
	return nil
}

func (g *fakeGraph) RolePermissionMatrix(_ context.Context) ([]rbac.RolePermissionRow, error) {
	return nil, nil
}

func (g *fakeGraph) UserPermissionMatrix(_ context.Context) ([]rbac.UserPermissionRow, error) {
	return nil, nil
}

// ── GrantReader ──

// EffectivePermissions applies the shadow rule: any direct grant replaces
// the whole role-derived set.
func (g *fakeGraph) EffectivePermissions(_ context.Context, userID string) ([]rbac.Permission, error) {
	if direct, ok := g.userPerms[userID]; ok && len(direct) > 0 {
		return g.resolve(direct), nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, roleID := range g.userRoles[userID] {
		for _, permissionID := range g.rolePerms[roleID] {
			if !seen[permissionID] {
				seen[permissionID] = true
				ids = append(ids, permissionID)
			}
		}
	}
	return g.resolve(ids), nil
}

func (g *fakeGraph) PrimaryRole(_ context.Context, userID string) (string, error) {
	roleIDs := g.userRoles[userID]
	if len(roleIDs) == 0 {
		return "", nil
	}
	return g.roles[roleIDs[0]].Name, nil
}

func (g *fakeGraph) resolve(ids []string) []rbac.Permission {
	var out []rbac.Permission
	for _, id := range ids {
		if permission, ok := g.permissions[id]; ok {
			out = append(out, *permission)
		}
	}
	return out
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}

// ── Fixtures ──

type graphEnv struct {
	graph   *fakeGraph
	service *rbac.Service
	ctx     context.Context

	userID    string
	roleID    string
	readID    string
	writeID   string
	manageID  string
	readName  string
	writeName string
}

func newGraphEnv(t *testing.T) *graphEnv {
	t.Helper()

	graph := newFakeGraph()
	env := &graphEnv{
		graph:     graph,
		service:   rbac.NewService(fakeRoleRepo{graph}, fakePermissionRepo{graph}, graph, graph),
		ctx:       context.Background(),
		userID:    "11111111-1111-7111-8111-111111111111",
		roleID:    "22222222-2222-7222-8222-222222222222",
		readID:    "33333333-3333-7333-8333-333333333333",
		writeID:   "44444444-4444-7444-8444-444444444444",
		manageID:  "55555555-5555-7555-8555-555555555555",
		readName:  "revistas_read",
		writeName: "revistas_write",
	}

	graph.roles[env.roleID] = &rbac.Role{ID: env.roleID, Name: "editor"}
	graph.permissions[env.readID] = &rbac.Permission{ID: env.readID, Name: env.readName}
	graph.permissions[env.writeID] = &rbac.Permission{ID: env.writeID, Name: env.writeName}
	graph.permissions[env.manageID] = &rbac.Permission{ID: env.manageID, Name: "users_manage"}

	require.NoError(t, env.service.AssignRoleToUser(env.ctx, env.userID, env.roleID))
	require.NoError(t, env.service.AssignPermissionToRole(env.ctx, env.roleID, env.readID))
	require.NoError(t, env.service.AssignPermissionToRole(env.ctx, env.roleID, env.writeID))

	return env
}

func names(permissions []rbac.Permission) []string {
	out := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		out = append(out, permission.Name)
	}
	return out
}

// ── Tests ──

func TestEffectivePermissions_RoleDerived(t *testing.T) {
	env := newGraphEnv(t)

	permissions, err := env.service.EffectivePermissions(env.ctx, env.userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{env.readName, env.writeName}, names(permissions))
}

func TestEffectivePermissions_DirectGrantShadowsRoles(t *testing.T) {
	env := newGraphEnv(t)

	// One direct grant replaces the whole role-derived set, it does not
	// union with it.
	require.NoError(t, env.service.AssignPermissionToUser(env.ctx, env.userID, env.manageID))

	permissions, err := env.service.EffectivePermissions(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"users_manage"}, names(permissions))
}

func TestEffectivePermissions_RemovingLastDirectGrantRestoresRoles(t *testing.T) {
	env := newGraphEnv(t)

	require.NoError(t, env.service.AssignPermissionToUser(env.ctx, env.userID, env.manageID))
	require.NoError(t, env.service.RemovePermissionFromUser(env.ctx, env.userID, env.manageID))

	permissions, err := env.service.EffectivePermissions(env.ctx, env.userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{env.readName, env.writeName}, names(permissions))
}

func TestAuthorize_AllowsGrantedPermission(t *testing.T) {
	env := newGraphEnv(t)

	assert.NoError(t, env.service.Authorize(env.ctx, env.userID, env.readName))
}

func TestAuthorize_DeniesMissingPermission(t *testing.T) {
	env := newGraphEnv(t)

	err := env.service.Authorize(env.ctx, env.userID, "users_manage")
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Equal(t, "You do not have permission to perform this action", appErr.Message)
}

func TestAuthorize_DirectGrantRevokesRoleAccess(t *testing.T) {
	env := newGraphEnv(t)

	// Granting users_manage directly shadows the editor role, so the
	// role-derived write permission is no longer effective.
	require.NoError(t, env.service.AssignPermissionToUser(env.ctx, env.userID, env.manageID))

	assert.Error(t, env.service.Authorize(env.ctx, env.userID, env.writeName))
	assert.NoError(t, env.service.Authorize(env.ctx, env.userID, "users_manage"))
}

func TestPrimaryRole(t *testing.T) {
	env := newGraphEnv(t)

	role, err := env.service.PrimaryRole(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "editor", role)

	noRole, err := env.service.PrimaryRole(env.ctx, "99999999-9999-7999-8999-999999999999")
	require.NoError(t, err)
	assert.Empty(t, noRole)
}

func TestSetRoleSessionTimeout(t *testing.T) {
	env := newGraphEnv(t)

	require.NoError(t, env.service.SetRoleSessionTimeout(env.ctx, env.roleID, 45))
	require.NotNil(t, env.graph.roles[env.roleID].SessionTimeoutMin)
	assert.Equal(t, 45, *env.graph.roles[env.roleID].SessionTimeoutMin)

	err := env.service.SetRoleSessionTimeout(env.ctx, env.roleID, 0)
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", apperr.As(err).Code)

	err = env.service.SetRoleSessionTimeout(env.ctx, "88888888-8888-7888-8888-888888888888", 30)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}
