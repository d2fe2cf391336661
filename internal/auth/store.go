// Copyright (c) 2026 Hemeroteca. All rights reserved.

package auth

import (
	"context"
	"time"
)

// UserRepository defines the data access contract for credential records.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation is PostgreSQL (store_postgres.go).
type UserRepository interface {
	// FindByEmail returns the account with the given email, including
	// soft-deleted ones. Callers must inspect Status/DeletedAt themselves:
	// the login flow needs to distinguish a retired account from an
	// unknown one without leaking that distinction to the client.
	//
	// Returns [apperr.NotFound] if no account carries this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// RecordFailedAttempt increments failed_login_attempts and stamps
	// last_failed_login with the current time.
	RecordFailedAttempt(ctx context.Context, userID string) error

	// ResetFailedAttempts zeroes the counter and clears last_failed_login.
	// Called on every successful credential check.
	ResetFailedAttempts(ctx context.Context, userID string) error

	// SetStatus transitions the account lifecycle state.
	// The lockout guard uses this to make a suspension sticky.
	SetStatus(ctx context.Context, userID string, status UserStatus) error

	// UpdatePassword replaces only the password hash.
	UpdatePassword(ctx context.Context, userID, newHash string) error

	// MarkEmailVerified flips is_email_verified after a verification
	// token round-trip.
	MarkEmailVerified(ctx context.Context, userID string) error
}

// SessionRepository defines the data access contract for server-side sessions.
type SessionRepository interface {
	// FindActiveByEmail returns the non-revoked session of the account
	// carrying the given email, expired or not. The login flow uses it to
	// enforce the single-active-session rule before credentials are even
	// compared.
	//
	// Returns [apperr.NotFound] when the user has no live session row.
	FindActiveByEmail(ctx context.Context, email string) (*Session, error)

	// CreateExclusive persists a new session, guaranteeing the
	// single-active-session invariant under concurrent logins.
	//
	// The implementation must serialize logins per user (the PostgreSQL
	// store locks the owning user row with SELECT ... FOR UPDATE) and
	// return [apperr.Forbidden] if a live unexpired session already exists.
	CreateExclusive(ctx context.Context, session *Session) error

	// FindLiveByToken returns the session backing the given token with
	// is_revoked = false.
	//
	// Returns [apperr.NotFound] if the session is missing or revoked.
	FindLiveByToken(ctx context.Context, token string) (*Session, error)

	// Revoke marks a specific session as permanently invalidated.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeByToken marks the session backing the given token as revoked.
	RevokeByToken(ctx context.Context, token string) error

	// ForceRevokeAll revokes every session of a user and tags the matching
	// audit rows with the given logout type, in one transaction. Both
	// writes commit together or neither does.
	ForceRevokeAll(ctx context.Context, userID string, logoutType LogoutType) error
}

// AuditRepository defines the contract for the append-only login trail.
type AuditRepository interface {
	// RecordAttempt appends one audit row for a login attempt or outcome.
	RecordAttempt(ctx context.Context, entry *LoginLog) error

	// MarkLogout attaches termination metadata to the audit row matching
	// the given session token.
	MarkLogout(ctx context.Context, sessionToken string, logoutType LogoutType) error
}

// TimeoutRepository defines the lookup contract for the tiered session
// duration settings.
//
// Each tier returns nil (not an error) when it holds no value, so the
// resolver can fall through to the next tier.
type TimeoutRepository interface {
	// UserTimeout returns the per-user override in minutes, or nil.
	UserTimeout(ctx context.Context, userID string) (*int, error)

	// RoleTimeout returns the override of the user's assigned role in
	// minutes, or nil.
	RoleTimeout(ctx context.Context, userID string) (*int, error)

	// GlobalTimeout returns the single global setting in minutes, or nil
	// if the settings row is absent.
	GlobalTimeout(ctx context.Context) (*int, error)

	// SetGlobalTimeout replaces the global setting.
	SetGlobalTimeout(ctx context.Context, minutes int) error
}

// BlacklistRepository defines the contract for the token deny-list.
//
// # Semantics
//
// A recorded token is rejected for the remainder of its natural life and
// lapses afterwards on its own. The gate checks this list BEFORE signature
// verification, so a replayed-but-still-cryptographically-valid token is
// rejected regardless of its own validity.
type BlacklistRepository interface {
	// Record deny-lists a token until its natural expiry.
	Record(ctx context.Context, token string, naturalExpiry time.Time) error

	// IsBlacklisted reports whether the token is currently deny-listed.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// VerificationTokenRepository defines the contract for storing volatile
// email verification tokens.
type VerificationTokenRepository interface {
	// Set stores a verification token associated with a userID for a limited duration.
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get retrieves the userID associated with a given verification token.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes a verification token after successful use.
	Delete(ctx context.Context, token string) error
}
