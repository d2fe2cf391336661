// Copyright (c) 2026 Hemeroteca. All rights reserved.

// PostgreSQL implementations of the auth repository contracts.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/pkg/uuid"
)

// ── User Repository ──────────────────────────────────────────────────────────

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `
	id, email, cedula, first_name, last_name, password_hash, status,
	failed_login_attempts, last_failed_login, session_timeout_min,
	is_email_verified, deleted_at, created_at, updated_at`

// scanUser maps one row onto a [User].
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
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

// FindByEmail retrieves a credential record by its unique email address.
//
// # Returns
//
// Returns [*User] if found (including soft-deleted accounts, which the
// login flow inspects itself), or [apperr.NotFound].
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1"

	user, err := scanUser(repository.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this email")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

// FindByID retrieves a credential record by its unique ID.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1 AND deleted_at IS NULL"

	user, err := scanUser(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

// RecordFailedAttempt bumps the failure counter and stamps the failure time.
func (repository *PostgresUserRepository) RecordFailedAttempt(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, last_failed_login = NOW()
		WHERE id = $1`

	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("postgres_user_repo_record_failed_attempt_failed: %w", err)
	}
	return nil
}

// ResetFailedAttempts zeroes the failure counter after a successful login.
func (repository *PostgresUserRepository) ResetFailedAttempts(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = 0, last_failed_login = NULL
		WHERE id = $1`

	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("postgres_user_repo_reset_attempts_failed: %w", err)
	}
	return nil
}

// SetStatus transitions the account lifecycle state.
func (repository *PostgresUserRepository) SetStatus(ctx context.Context, userID string, status UserStatus) error {
	const query = "UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1"

	if _, err := repository.pool.Exec(ctx, query, userID, status); err != nil {
		return fmt.Errorf("postgres_user_repo_set_status_failed: %w", err)
	}
	return nil
}

// UpdatePassword updates only the password hash for a specific user.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, newHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	if _, err := repository.pool.Exec(ctx, query, userID, newHash); err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	return nil
}

// MarkEmailVerified flips the verification flag after a token round-trip.
func (repository *PostgresUserRepository) MarkEmailVerified(ctx context.Context, userID string) error {
	const query = "UPDATE users SET is_email_verified = TRUE, updated_at = NOW() WHERE id = $1"

	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	return nil
}

// ── Session Repository ───────────────────────────────────────────────────────

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// FindActiveByEmail retrieves the non-revoked session of the account with
// the given email, expired or not.
func (repository *PostgresSessionRepository) FindActiveByEmail(ctx context.Context, email string) (*Session, error) {
	const query = `
		SELECT s.id, s.user_id, s.token, s.expires_at, s.is_revoked, s.created_at
		FROM sessions s
		WHERE s.user_id = (SELECT id FROM users WHERE email = $1)
		  AND s.is_revoked = FALSE
		ORDER BY s.created_at DESC
		LIMIT 1`

	session := &Session{}
	err := repository.pool.QueryRow(ctx, query, email).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Active session")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_active_failed: %w", err)
	}

	return session, nil
}

// CreateExclusive persists a new session while serializing concurrent logins
// for the same user.
//
// # Locking
//
// The owning user row is locked with SELECT ... FOR UPDATE, then the
// single-active-session invariant is re-checked under the lock. Two
// simultaneous logins for one user therefore queue up, and the loser sees
// the winner's freshly inserted row.
func (repository *PostgresSessionRepository) CreateExclusive(ctx context.Context, session *Session) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_begin_failed: %w", err)
	}
	// Rollback is a no-op once the transaction has committed.
	defer func() { _ = transaction.Rollback(ctx) }()

	// 1. Serialize per user
	const lockQuery = "SELECT id FROM users WHERE id = $1 FOR UPDATE"
	var lockedID string
	if err := transaction.QueryRow(ctx, lockQuery, session.UserID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("User")
		}
		return fmt.Errorf("postgres_session_repo_lock_failed: %w", err)
	}

	// 2. Re-check the invariant under the lock
	const existsQuery = `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE user_id = $1 AND is_revoked = FALSE AND expires_at > NOW()
		)`
	var hasLiveSession bool
	if err := transaction.QueryRow(ctx, existsQuery, session.UserID).Scan(&hasLiveSession); err != nil {
		return fmt.Errorf("postgres_session_repo_exists_check_failed: %w", err)
	}
	if hasLiveSession {
		return apperr.Forbidden("A session for this user is already open")
	}

	// 3. Insert the new session row
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	const insertQuery = `
		INSERT INTO sessions (id, user_id, token, expires_at, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = transaction.Exec(ctx, insertQuery,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt,
		session.IsRevoked,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_insert_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_session_repo_commit_failed: %w", err)
	}

	return nil
}

// FindLiveByToken retrieves the non-revoked session backing a token.
func (repository *PostgresSessionRepository) FindLiveByToken(ctx context.Context, token string) (*Session, error) {
	const query = `
		SELECT id, user_id, token, expires_at, is_revoked, created_at
		FROM sessions
		WHERE token = $1 AND is_revoked = FALSE`

	session := &Session{}
	err := repository.pool.QueryRow(ctx, query, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session not found or revoked")
		}
		return nil, fmt.Errorf("postgres_session_repo_find_by_token_failed: %w", err)
	}

	return session, nil
}

// Revoke marks a specific session as revoked.
func (repository *PostgresSessionRepository) Revoke(ctx context.Context, sessionID string) error {
	const query = "UPDATE sessions SET is_revoked = TRUE WHERE id = $1"
	if _, err := repository.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_failed: %w", err)
	}
	return nil
}

// RevokeByToken marks the session backing the given token as revoked.
func (repository *PostgresSessionRepository) RevokeByToken(ctx context.Context, token string) error {
	const query = "UPDATE sessions SET is_revoked = TRUE WHERE token = $1"
	if _, err := repository.pool.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("postgres_session_repo_revoke_by_token_failed: %w", err)
	}
	return nil
}

// ForceRevokeAll revokes every session of a user and tags the audit rows,
// atomically.
func (repository *PostgresSessionRepository) ForceRevokeAll(ctx context.Context, userID string, logoutType LogoutType) error {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	const auditQuery = `
		UPDATE login_logs
		SET logout_type = $1, logout_timestamp = NOW()
		WHERE user_id = $2 AND logout_type IS NULL`

	if _, err := transaction.Exec(ctx, auditQuery, logoutType, userID); err != nil {
		return fmt.Errorf("postgres_session_repo_force_audit_failed: %w", err)
	}

	const revokeQuery = "UPDATE sessions SET is_revoked = TRUE WHERE user_id = $1"
	if _, err := transaction.Exec(ctx, revokeQuery, userID); err != nil {
		return fmt.Errorf("postgres_session_repo_force_revoke_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_session_repo_commit_failed: %w", err)
	}

	return nil
}

// ── Audit Repository ─────────────────────────────────────────────────────────

// PostgresAuditRepository implements the AuditRepository interface.
type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new PostgreSQL implementation of AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{pool: pool}
}

// RecordAttempt appends one audit row.
func (repository *PostgresAuditRepository) RecordAttempt(ctx context.Context, entry *LoginLog) error {
	const query = `
		INSERT INTO login_logs (id, user_id, username, ip_address, login_status, session_token, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW())`

	if entry.ID == "" {
		entry.ID = uuid.New()
	}

	_, err := repository.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Username,
		entry.IPAddress,
		entry.LoginStatus,
		entry.SessionToken,
	)
	if err != nil {
		return fmt.Errorf("postgres_audit_repo_record_failed: %w", err)
	}

	return nil
}

// MarkLogout attaches termination metadata to the audit row matching a token.
func (repository *PostgresAuditRepository) MarkLogout(ctx context.Context, sessionToken string, logoutType LogoutType) error {
	const query = `
		UPDATE login_logs
		SET logout_type = $1, logout_timestamp = NOW()
		WHERE session_token = $2`

	if _, err := repository.pool.Exec(ctx, query, logoutType, sessionToken); err != nil {
		return fmt.Errorf("postgres_audit_repo_mark_logout_failed: %w", err)
	}
	return nil
}

// ── Timeout Repository ───────────────────────────────────────────────────────

// PostgresTimeoutRepository implements the TimeoutRepository interface.
type PostgresTimeoutRepository struct {
	pool *pgxpool.Pool
}

// NewTimeoutRepository creates a new PostgreSQL implementation of TimeoutRepository.
func NewTimeoutRepository(pool *pgxpool.Pool) *PostgresTimeoutRepository {
	return &PostgresTimeoutRepository{pool: pool}
}

// UserTimeout returns the per-user override in minutes, or nil.
func (repository *PostgresTimeoutRepository) UserTimeout(ctx context.Context, userID string) (*int, error) {
	const query = "SELECT session_timeout_min FROM users WHERE id = $1"

	var minutes *int
	err := repository.pool.QueryRow(ctx, query, userID).Scan(&minutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown user carries no override; the caller falls through.
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_timeout_repo_user_failed: %w", err)
	}

	return minutes, nil
}

// RoleTimeout returns the override of the user's assigned role, or nil.
func (repository *PostgresTimeoutRepository) RoleTimeout(ctx context.Context, userID string) (*int, error) {
	const query = `
		SELECT r.session_timeout_min
		FROM user_roles ur
		JOIN roles r ON ur.role_id = r.id
		WHERE ur.user_id = $1
		LIMIT 1`

	var minutes *int
	err := repository.pool.QueryRow(ctx, query, userID).Scan(&minutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_timeout_repo_role_failed: %w", err)
	}

	return minutes, nil
}

// GlobalTimeout returns the single global setting, or nil if the row is absent.
func (repository *PostgresTimeoutRepository) GlobalTimeout(ctx context.Context) (*int, error) {
	const query = "SELECT global_timeout FROM session_settings WHERE id = 1"

	var minutes *int
	err := repository.pool.QueryRow(ctx, query).Scan(&minutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_timeout_repo_global_failed: %w", err)
	}

	return minutes, nil
}

// SetGlobalTimeout replaces the global setting.
func (repository *PostgresTimeoutRepository) SetGlobalTimeout(ctx context.Context, minutes int) error {
	const query = `
		INSERT INTO session_settings (id, global_timeout)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET global_timeout = EXCLUDED.global_timeout`

	if _, err := repository.pool.Exec(ctx, query, minutes); err != nil {
		return fmt.Errorf("postgres_timeout_repo_set_global_failed: %w", err)
	}
	return nil
}
