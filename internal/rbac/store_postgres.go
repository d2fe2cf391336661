// Copyright (c) 2026 Hemeroteca. All rights reserved.

// PostgreSQL implementations of the rbac repository contracts.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/dberr"
)

// ── Role Repository ──────────────────────────────────────────────────────────

// PostgresRoleRepository implements the RoleRepository interface using pgx.
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new PostgreSQL implementation of the RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

// Create persists a new role record.
func (repository *PostgresRoleRepository) Create(ctx context.Context, role *Role) error {
	const query = `
		INSERT INTO roles (id, name, description, session_timeout_min, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`

	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		role.SessionTimeoutMin,
		now,
	)
	if err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_role_repo_create_failed: %w", err), "create role")
	}

	return nil
}

// List returns every role that has not been soft-deleted.
func (repository *PostgresRoleRepository) List(ctx context.Context) ([]Role, error) {
	const query = `
		SELECT id, name, description, session_timeout_min, created_at, updated_at
		FROM roles
		WHERE deleted_at IS NULL
		ORDER BY name`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_repo_list_failed: %w", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.SessionTimeoutMin, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres_role_repo_scan_failed: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// FindByID retrieves a single role.
func (repository *PostgresRoleRepository) FindByID(ctx context.Context, id string) (*Role, error) {
	const query = `
		SELECT id, name, description, session_timeout_min, created_at, updated_at
		FROM roles
		WHERE id = $1 AND deleted_at IS NULL`

	role := &Role{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&role.ID, &role.Name, &role.Description, &role.SessionTimeoutMin, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_failed: %w", err)
	}

	return role, nil
}

// Update persists name and description changes.
func (repository *PostgresRoleRepository) Update(ctx context.Context, role *Role) error {
	const query = `
		UPDATE roles
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	if _, err := repository.pool.Exec(ctx, query, role.ID, role.Name, role.Description); err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_role_repo_update_failed: %w", err), "update role")
	}
	return nil
}

// SetSessionTimeout replaces the role's session duration override.
func (repository *PostgresRoleRepository) SetSessionTimeout(ctx context.Context, roleID string, minutes int) error {
	const query = "UPDATE roles SET session_timeout_min = $2, updated_at = NOW() WHERE id = $1"

	if _, err := repository.pool.Exec(ctx, query, roleID, minutes); err != nil {
		return fmt.Errorf("postgres_role_repo_set_timeout_failed: %w", err)
	}
	return nil
}

// SoftDelete marks a role as deleted.
func (repository *PostgresRoleRepository) SoftDelete(ctx context.Context, id string) error {
	const query = "UPDATE roles SET deleted_at = NOW() WHERE id = $1"
	if _, err := repository.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("postgres_role_repo_soft_delete_failed: %w", err)
	}
	return nil
}

// HardDelete removes a role and its join rows atomically.
func (repository *PostgresRoleRepository) HardDelete(ctx context.Context, id string) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_role_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	// The join rows must go with the role, or the graph dangles.
	if _, err := transaction.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", id); err != nil {
		return fmt.Errorf("postgres_role_repo_delete_grants_failed: %w", err)
	}
	if _, err := transaction.Exec(ctx, "DELETE FROM user_roles WHERE role_id = $1", id); err != nil {
		return fmt.Errorf("postgres_role_repo_delete_members_failed: %w", err)
	}
	if _, err := transaction.Exec(ctx, "DELETE FROM roles WHERE id = $1", id); err != nil {
		return fmt.Errorf("postgres_role_repo_delete_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_role_repo_commit_failed: %w", err)
	}
	return nil
}

// ── Permission Repository ────────────────────────────────────────────────────

// PostgresPermissionRepository implements the PermissionRepository interface.
type PostgresPermissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository creates a new PostgreSQL implementation of PermissionRepository.
func NewPermissionRepository(pool *pgxpool.Pool) *PostgresPermissionRepository {
	return &PostgresPermissionRepository{pool: pool}
}

// Create persists a new permission record.
func (repository *PostgresPermissionRepository) Create(ctx context.Context, permission *Permission) error {
	const query = `
		INSERT INTO permissions (id, name, description, resource, action, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	now := time.Now()
	permission.CreatedAt = now
	permission.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		permission.ID,
		permission.Name,
		permission.Description,
		permission.Resource,
		permission.Action,
		now,
	)
	if err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_permission_repo_create_failed: %w", err), "create permission")
	}

	return nil
}

// List returns every permission.
func (repository *PostgresPermissionRepository) List(ctx context.Context) ([]Permission, error) {
	const query = `
		SELECT id, name, description, resource, action, created_at, updated_at
		FROM permissions
		WHERE deleted_at IS NULL
		ORDER BY name`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_permission_repo_list_failed: %w", err)
	}
	defer rows.Close()

	permissions := []Permission{}
	for rows.Next() {
		var permission Permission
		err := rows.Scan(
			&permission.ID, &permission.Name, &permission.Description,
			&permission.Resource, &permission.Action, &permission.CreatedAt, &permission.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres_permission_repo_scan_failed: %w", err)
		}
		permissions = append(permissions, permission)
	}

	return permissions, rows.Err()
}

// Update persists name and description changes.
func (repository *PostgresPermissionRepository) Update(ctx context.Context, permission *Permission) error {
	const query = `
		UPDATE permissions
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	if _, err := repository.pool.Exec(ctx, query, permission.ID, permission.Name, permission.Description); err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_permission_repo_update_failed: %w", err), "update permission")
	}
	return nil
}

// SoftDelete marks a permission as deleted.
func (repository *PostgresPermissionRepository) SoftDelete(ctx context.Context, id string) error {
	const query = "UPDATE permissions SET deleted_at = NOW() WHERE id = $1"
	if _, err := repository.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("postgres_permission_repo_soft_delete_failed: %w", err)
	}
	return nil
}

// HardDelete removes a permission and its join rows atomically.
func (repository *PostgresPermissionRepository) HardDelete(ctx context.Context, id string) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_permission_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	if _, err := transaction.Exec(ctx, "DELETE FROM role_permissions WHERE permission_id = $1", id); err != nil {
		return fmt.Errorf("postgres_permission_repo_delete_role_links_failed: %w", err)
	}
	if _, err := transaction.Exec(ctx, "DELETE FROM user_permissions WHERE permission_id = $1", id); err != nil {
		return fmt.Errorf("postgres_permission_repo_delete_user_links_failed: %w", err)
	}
	if _, err := transaction.Exec(ctx, "DELETE FROM permissions WHERE id = $1", id); err != nil {
		return fmt.Errorf("postgres_permission_repo_delete_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_permission_repo_commit_failed: %w", err)
	}
	return nil
}

// ── Assignment Repository ────────────────────────────────────────────────────

// PostgresAssignmentRepository implements the AssignmentRepository interface.
type PostgresAssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new PostgreSQL implementation of AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{pool: pool}
}

// AssignRoleToUser links a role to a user.
func (repository *PostgresAssignmentRepository) AssignRoleToUser(ctx context.Context, userID, roleID string) error {
	const query = "INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)"
	if _, err := repository.pool.Exec(ctx, query, userID, roleID); err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_assignment_repo_assign_role_failed: %w", err), "assign role")
	}
	return nil
}

// RemoveRoleFromUser unlinks a role from a user.
func (repository *PostgresAssignmentRepository) RemoveRoleFromUser(ctx context.Context, userID, roleID string) error {
	const query = "DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2"
	if _, err := repository.pool.Exec(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("postgres_assignment_repo_remove_role_failed: %w", err)
	}
	return nil
}

// AssignPermissionToRole links a permission to a role.
func (repository *PostgresAssignmentRepository) AssignPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	const query = "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)"
	if _, err := repository.pool.Exec(ctx, query, roleID, permissionID); err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_assignment_repo_assign_permission_failed: %w", err), "assign permission")
	}
	return nil
}

// RemovePermissionFromRole unlinks a permission from a role.
func (repository *PostgresAssignmentRepository) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	const query = "DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2"
	if _, err := repository.pool.Exec(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("postgres_assignment_repo_remove_permission_failed: %w", err)
	}
	return nil
}

// AssignPermissionToUser records a direct grant.
func (repository *PostgresAssignmentRepository) AssignPermissionToUser(ctx context.Context, userID, permissionID string) error {
	const query = "INSERT INTO user_permissions (user_id, permission_id) VALUES ($1, $2)"
	if _, err := repository.pool.Exec(ctx, query, userID, permissionID); err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_assignment_repo_assign_direct_failed: %w", err), "assign direct grant")
	}
	return nil
}

// RemovePermissionFromUser removes a direct grant.
func (repository *PostgresAssignmentRepository) RemovePermissionFromUser(ctx context.Context, userID, permissionID string) error {
	const query = "DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2"
	if _, err := repository.pool.Exec(ctx, query, userID, permissionID); err != nil {
		return fmt.Errorf("postgres_assignment_repo_remove_direct_failed: %w", err)
	}
	return nil
}

// RolePermissionMatrix lists every role-permission link ordered for display.
func (repository *PostgresAssignmentRepository) RolePermissionMatrix(ctx context.Context) ([]RolePermissionRow, error) {
	const query = `
		SELECT a.role_id, b.name AS rol, a.permission_id, c.name AS permission, c.description
		FROM role_permissions a
		LEFT JOIN roles b ON b.id = a.role_id
		LEFT JOIN permissions c ON c.id = a.permission_id
		ORDER BY b.name, c.name`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_assignment_repo_role_matrix_failed: %w", err)
	}
	defer rows.Close()

	matrix := []RolePermissionRow{}
	for rows.Next() {
		var row RolePermissionRow
		if err := rows.Scan(&row.RoleID, &row.RoleName, &row.PermissionID, &row.PermissionName, &row.Description); err != nil {
			return nil, fmt.Errorf("postgres_assignment_repo_role_matrix_scan_failed: %w", err)
		}
		matrix = append(matrix, row)
	}

	return matrix, rows.Err()
}

// UserPermissionMatrix lists every direct grant ordered for display.
func (repository *PostgresAssignmentRepository) UserPermissionMatrix(ctx context.Context) ([]UserPermissionRow, error) {
	const query = `
		SELECT a.user_id, b.email, a.permission_id, c.name AS permission, c.description
		FROM user_permissions a
		LEFT JOIN users b ON b.id = a.user_id
		LEFT JOIN permissions c ON c.id = a.permission_id
		ORDER BY b.email, c.name`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_assignment_repo_user_matrix_failed: %w", err)
	}
	defer rows.Close()

	matrix := []UserPermissionRow{}
	for rows.Next() {
		var row UserPermissionRow
		if err := rows.Scan(&row.UserID, &row.UserEmail, &row.PermissionID, &row.PermissionName, &row.Description); err != nil {
			return nil, fmt.Errorf("postgres_assignment_repo_user_matrix_scan_failed: %w", err)
		}
		matrix = append(matrix, row)
	}

	return matrix, rows.Err()
}

// ── Grant Reader ─────────────────────────────────────────────────────────────

// PostgresGrantReader implements the GrantReader interface.
type PostgresGrantReader struct {
	pool *pgxpool.Pool
}

// NewGrantReader creates a new PostgreSQL implementation of GrantReader.
func NewGrantReader(pool *pgxpool.Pool) *PostgresGrantReader {
	return &PostgresGrantReader{pool: pool}
}

// EffectivePermissions resolves the effective permission set in one query.
//
// # Shadowing
//
// The second branch of the UNION contributes role-derived permissions only
// when the user has NO direct grant at all (NOT EXISTS), which makes direct
// grants a full override rather than an addition.
func (reader *PostgresGrantReader) EffectivePermissions(ctx context.Context, userID string) ([]Permission, error) {
	const query = `
		SELECT p.id, p.name, p.description, p.resource, p.action
		FROM user_permissions up
		JOIN permissions p ON up.permission_id = p.id
		WHERE up.user_id = $1
		UNION
		SELECT p.id, p.name, p.description, p.resource, p.action
		FROM user_roles ur
		JOIN role_permissions rp ON ur.role_id = rp.role_id
		JOIN permissions p ON rp.permission_id = p.id
		WHERE ur.user_id = $1
		AND NOT EXISTS (
			SELECT 1 FROM user_permissions WHERE user_id = $1
		)`

	rows, err := reader.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_grant_reader_effective_failed: %w", err)
	}
	defer rows.Close()

	permissions := []Permission{}
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission.ID, &permission.Name, &permission.Description, &permission.Resource, &permission.Action); err != nil {
			return nil, fmt.Errorf("postgres_grant_reader_scan_failed: %w", err)
		}
		permissions = append(permissions, permission)
	}

	return permissions, rows.Err()
}

// PrimaryRole returns the name of the user's assigned role, or "".
func (reader *PostgresGrantReader) PrimaryRole(ctx context.Context, userID string) (string, error) {
	const query = `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		LIMIT 1`

	var name string
	err := reader.pool.QueryRow(ctx, query, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("postgres_grant_reader_role_failed: %w", err)
	}

	return name, nil
}
