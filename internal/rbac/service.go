// Copyright (c) 2026 Hemeroteca. All rights reserved.

package rbac

import (
	"context"
	"fmt"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/pkg/uuid"
)

// Service implements the authorization engine and the graph administration
// use cases.
type Service struct {
	roleRepository       RoleRepository
	permissionRepository PermissionRepository
	assignments          AssignmentRepository
	grants               GrantReader
}

// NewService constructs a new rbac [Service] with necessary dependencies.
func NewService(
	roleRepo RoleRepository,
	permissionRepo PermissionRepository,
	assignments AssignmentRepository,
	grants GrantReader,
) *Service {
	return &Service{
		roleRepository:       roleRepo,
		permissionRepository: permissionRepo,
		assignments:          assignments,
		grants:               grants,
	}
}

// ── Authorization Engine ─────────────────────────────────────────────────────

// EffectivePermissions resolves the user's effective permission set.
//
// Direct grants fully shadow role-derived grants. The set is recomputed on
// every call, never cached: an administrative edit is live on the next
// request, trading a little latency for always-fresh authorization.
func (service *Service) EffectivePermissions(ctx context.Context, userID string) ([]Permission, error) {
	permissions, err := service.grants.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_effective_permissions_failed: %w", err)
	}
	return permissions, nil
}

// PrimaryRole returns the name of the user's assigned role.
func (service *Service) PrimaryRole(ctx context.Context, userID string) (string, error) {
	return service.grants.PrimaryRole(ctx, userID)
}

// Authorize rejects the request when the user's effective set does not
// contain the required permission name.
//
// # Returns
//   - nil when the permission is present.
//   - [apperr.Forbidden] when it is absent.
func (service *Service) Authorize(ctx context.Context, userID, required string) error {
	permissions, err := service.EffectivePermissions(ctx, userID)
	if err != nil {
		return err
	}

	for _, permission := range permissions {
		if permission.Name == required {
			return nil
		}
	}

	return apperr.Forbidden("You do not have permission to perform this action")
}

// ── Role Administration ──────────────────────────────────────────────────────

// RoleInput holds the writable fields of a role.
type RoleInput struct {
	Name        string
	Description string
}

// CreateRole registers a new role.
func (service *Service) CreateRole(ctx context.Context, input RoleInput) (*Role, error) {
	role := &Role{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
	}

	if err := service.roleRepository.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// ListRoles returns all active roles.
func (service *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return service.roleRepository.List(ctx)
}

// UpdateRole renames or re-describes a role.
func (service *Service) UpdateRole(ctx context.Context, roleID string, input RoleInput) error {
	role, err := service.roleRepository.FindByID(ctx, roleID)
	if err != nil {
		return err
	}

	role.Name = input.Name
	role.Description = input.Description
	return service.roleRepository.Update(ctx, role)
}

// SetRoleSessionTimeout replaces the role's session duration override.
func (service *Service) SetRoleSessionTimeout(ctx context.Context, roleID string, minutes int) error {
	if minutes <= 0 {
		return apperr.BadRequest("The duration must be a positive number of minutes")
	}

	// Surface a 404 before attempting the write.
	if _, err := service.roleRepository.FindByID(ctx, roleID); err != nil {
		return err
	}

	return service.roleRepository.SetSessionTimeout(ctx, roleID, minutes)
}

// DeleteRole soft-deletes a role.
func (service *Service) DeleteRole(ctx context.Context, roleID string) error {
	return service.roleRepository.SoftDelete(ctx, roleID)
}

// DeleteRolePermanently removes a role and its join rows.
func (service *Service) DeleteRolePermanently(ctx context.Context, roleID string) error {
	return service.roleRepository.HardDelete(ctx, roleID)
}

// ── Permission Administration ────────────────────────────────────────────────

// PermissionInput holds the writable fields of a permission.
type PermissionInput struct {
	Name        string
	Description string
	Resource    string
	Action      string
}

// CreatePermission registers a new permission.
func (service *Service) CreatePermission(ctx context.Context, input PermissionInput) (*Permission, error) {
	permission := &Permission{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Resource:    input.Resource,
		Action:      input.Action,
	}

	if err := service.permissionRepository.Create(ctx, permission); err != nil {
		return nil, err
	}
	return permission, nil
}

// ListPermissions returns all permissions.
func (service *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return service.permissionRepository.List(ctx)
}

// UpdatePermission renames or re-describes a permission.
func (service *Service) UpdatePermission(ctx context.Context, permissionID string, input PermissionInput) error {
	permission := &Permission{
		ID:          permissionID,
		Name:        input.Name,
		Description: input.Description,
	}
	return service.permissionRepository.Update(ctx, permission)
}

// DeletePermission soft-deletes a permission.
func (service *Service) DeletePermission(ctx context.Context, permissionID string) error {
	return service.permissionRepository.SoftDelete(ctx, permissionID)
}

// DeletePermissionPermanently removes a permission and its join rows.
func (service *Service) DeletePermissionPermanently(ctx context.Context, permissionID string) error {
	return service.permissionRepository.HardDelete(ctx, permissionID)
}

// ── Grant Graph Edits ────────────────────────────────────────────────────────

// AssignRoleToUser links a role to a user.
func (service *Service) AssignRoleToUser(ctx context.Context, userID, roleID string) error {
	return service.assignments.AssignRoleToUser(ctx, userID, roleID)
}

// RemoveRoleFromUser unlinks a role from a user.
func (service *Service) RemoveRoleFromUser(ctx context.Context, userID, roleID string) error {
	return service.assignments.RemoveRoleFromUser(ctx, userID, roleID)
}

// AssignPermissionToRole links a permission to a role.
func (service *Service) AssignPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	return service.assignments.AssignPermissionToRole(ctx, roleID, permissionID)
}

// RemovePermissionFromRole unlinks a permission from a role.
func (service *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	return service.assignments.RemovePermissionFromRole(ctx, roleID, permissionID)
}

// AssignPermissionToUser records a direct grant, which from that moment
// shadows every role-derived permission of the user.
func (service *Service) AssignPermissionToUser(ctx context.Context, userID, permissionID string) error {
	return service.assignments.AssignPermissionToUser(ctx, userID, permissionID)
}

// RemovePermissionFromUser removes a direct grant.
func (service *Service) RemovePermissionFromUser(ctx context.Context, userID, permissionID string) error {
	return service.assignments.RemovePermissionFromUser(ctx, userID, permissionID)
}

// RolePermissionMatrix lists every role-permission link.
func (service *Service) RolePermissionMatrix(ctx context.Context) ([]RolePermissionRow, error) {
	return service.assignments.RolePermissionMatrix(ctx)
}

// UserPermissionMatrix lists every direct grant.
func (service *Service) UserPermissionMatrix(ctx context.Context) ([]UserPermissionRow, error) {
	return service.assignments.UserPermissionMatrix(ctx)
}
