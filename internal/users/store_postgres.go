// Copyright (c) 2026 Hemeroteca. All rights reserved.

package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemeroteca/internal/auth"
	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/dberr"
	"hemeroteca/pkg/pagination"
)

// PostgresAdminRepository implements the AdminRepository interface using pgx.
type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new PostgreSQL implementation of AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

const userColumns = `
	id, email, cedula, first_name, last_name, password_hash, status,
	failed_login_attempts, last_failed_login, session_timeout_min,
	is_email_verified, deleted_at, created_at, updated_at`

// scanUser maps one row onto an [auth.User].
func scanUser(row pgx.Row) (*auth.User, error) {
	user := &auth.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Cedula,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.Status,
		&user.FailedLoginAttempts,
		&user.LastFailedLogin,
		&user.SessionTimeoutMin,
		&user.IsEmailVerified,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create persists a new account.
func (repository *PostgresAdminRepository) Create(ctx context.Context, user *auth.User) error {
	const query = `
		INSERT INTO users (id, email, cedula, first_name, last_name, password_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Cedula,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Status,
	)
	if err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_admin_repo_create_failed: %w", err), "create user")
	}
	return nil
}

// List returns one page of accounts not marked as deleted, newest first,
// along with the total number of active accounts.
func (repository *PostgresAdminRepository) List(ctx context.Context, params pagination.Params) ([]auth.User, int, error) {
	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE deleted_at IS NULL"
	if err := repository.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_admin_repo_count_failed: %w", err)
	}

	query := "SELECT " + userColumns + ` FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(ctx, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_admin_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_admin_repo_scan_failed: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_admin_repo_rows_failed: %w", err)
	}

	return users, total, nil
}

// FindByID retrieves an active account by its unique ID.
func (repository *PostgresAdminRepository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1 AND deleted_at IS NULL"

	user, err := scanUser(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves an active account by its unique email address.
func (repository *PostgresAdminRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1 AND deleted_at IS NULL"

	user, err := scanUser(repository.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this email")
		}
		return nil, fmt.Errorf("postgres_admin_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

// Update persists the profile fields of an account.
func (repository *PostgresAdminRepository) Update(ctx context.Context, user *auth.User) error {
	const query = `
		UPDATE users
		SET email = $2, cedula = $3, first_name = $4, last_name = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Cedula,
		user.FirstName,
		user.LastName,
	)
	if err != nil {
		return dberr.Wrap(fmt.Errorf("postgres_admin_repo_update_failed: %w", err), "update user")
	}
	return nil
}

// UpdatePassword replaces only the password hash.
func (repository *PostgresAdminRepository) UpdatePassword(ctx context.Context, userID, newHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	if _, err := repository.pool.Exec(ctx, query, userID, newHash); err != nil {
		return fmt.Errorf("postgres_admin_repo_update_password_failed: %w", err)
	}
	return nil
}

// SetSessionTimeout replaces the per-user session duration override.
func (repository *PostgresAdminRepository) SetSessionTimeout(ctx context.Context, userID string, minutes int) error {
	const query = `
		UPDATE users
		SET session_timeout_min = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	if _, err := repository.pool.Exec(ctx, query, userID, minutes); err != nil {
		return fmt.Errorf("postgres_admin_repo_set_timeout_failed: %w", err)
	}
	return nil
}

// SoftDelete retires an account and kills its live sessions atomically.
func (repository *PostgresAdminRepository) SoftDelete(ctx context.Context, userID string) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_admin_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	const retireQuery = `
		UPDATE users
		SET deleted_at = NOW(), status = $2, updated_at = NOW()
		WHERE id = $1`
	if _, err := transaction.Exec(ctx, retireQuery, userID, auth.UserStatusDeleted); err != nil {
		return fmt.Errorf("postgres_admin_repo_soft_delete_failed: %w", err)
	}

	const revokeQuery = "UPDATE sessions SET is_revoked = TRUE WHERE user_id = $1"
	if _, err := transaction.Exec(ctx, revokeQuery, userID); err != nil {
		return fmt.Errorf("postgres_admin_repo_revoke_sessions_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_admin_repo_commit_failed: %w", err)
	}
	return nil
}

// HardDelete removes an account and its dependent rows in one transaction.
// Audit rows survive with user_id set to NULL so the trail stays complete.
func (repository *PostgresAdminRepository) HardDelete(ctx context.Context, userID string) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_admin_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	statements := []string{
		"UPDATE login_logs SET user_id = NULL WHERE user_id = $1",
		"DELETE FROM sessions WHERE user_id = $1",
		"DELETE FROM user_permissions WHERE user_id = $1",
		"DELETE FROM user_roles WHERE user_id = $1",
		"DELETE FROM users WHERE id = $1",
	}
	for _, statement := range statements {
		if _, err := transaction.Exec(ctx, statement, userID); err != nil {
			return fmt.Errorf("postgres_admin_repo_hard_delete_failed: %w", err)
		}
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_admin_repo_commit_failed: %w", err)
	}
	return nil
}
