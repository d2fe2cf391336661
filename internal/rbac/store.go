// Copyright (c) 2026 Hemeroteca. All rights reserved.

package rbac

import (
	"context"
)

// RoleRepository defines the data access contract for roles.
type RoleRepository interface {
	// Create persists a new role.
	Create(ctx context.Context, role *Role) error

	// List returns all roles, excluding soft-deleted ones.
	List(ctx context.Context) ([]Role, error)

	// FindByID returns the role with the given ID.
	//
	// Returns [apperr.NotFound] if the role does not exist.
	FindByID(ctx context.Context, id string) (*Role, error)

	// Update persists changes to name and description.
	Update(ctx context.Context, role *Role) error

	// SetSessionTimeout replaces the role's session duration override.
	SetSessionTimeout(ctx context.Context, roleID string, minutes int) error

	// SoftDelete marks the role as deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// HardDelete removes the role and its join rows in one transaction.
	HardDelete(ctx context.Context, id string) error
}

// PermissionRepository defines the data access contract for permissions.
type PermissionRepository interface {
	// Create persists a new permission.
	Create(ctx context.Context, permission *Permission) error

	// List returns all permissions.
	List(ctx context.Context) ([]Permission, error)

	// Update persists changes to name and description.
	Update(ctx context.Context, permission *Permission) error

	// SoftDelete marks the permission as deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// HardDelete removes the permission and its join rows in one transaction.
	HardDelete(ctx context.Context, id string) error
}

// AssignmentRepository defines the contract for editing the grant graph.
type AssignmentRepository interface {
	// AssignRoleToUser links a role to a user.
	AssignRoleToUser(ctx context.Context, userID, roleID string) error

	// RemoveRoleFromUser unlinks a role from a user.
	RemoveRoleFromUser(ctx context.Context, userID, roleID string) error

	// AssignPermissionToRole links a permission to a role.
	AssignPermissionToRole(ctx context.Context, roleID, permissionID string) error

	// RemovePermissionFromRole unlinks a permission from a role.
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) error

	// AssignPermissionToUser records a direct grant. The first direct
	// grant shadows every role-derived permission of that user.
	AssignPermissionToUser(ctx context.Context, userID, permissionID string) error

	// RemovePermissionFromUser removes a direct grant.
	RemovePermissionFromUser(ctx context.Context, userID, permissionID string) error

	// RolePermissionMatrix lists every role-permission link.
	RolePermissionMatrix(ctx context.Context) ([]RolePermissionRow, error)

	// UserPermissionMatrix lists every direct grant.
	UserPermissionMatrix(ctx context.Context) ([]UserPermissionRow, error)
}

// GrantReader defines the read contract of the authorization engine.
type GrantReader interface {
	// EffectivePermissions resolves the user's effective permission set.
	//
	// Direct grants, when at least one exists, fully shadow role-derived
	// grants; otherwise the result is the union over all assigned roles.
	EffectivePermissions(ctx context.Context, userID string) ([]Permission, error)

	// PrimaryRole returns the name of the user's assigned role, or ""
	// when the user has none.
	PrimaryRole(ctx context.Context, userID string) (string, error)
}
