// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package auth owns the session lifecycle of the platform.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the authentication
// system: user credentials, server-side sessions, and the append-only login
// audit trail. They have no dependencies on outer layers (like databases,
// APIs, or libraries). This makes the core logic highly testable and
// resilient to technology changes.
package auth

import (
	"time"
)

// UserStatus represents the lifecycle state of an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"    // Normal operation.
	UserStatusSuspended UserStatus = "suspended" // Locked out; only an administrator can lift it.
	UserStatusDeleted   UserStatus = "deleted"   // Retired account; never allowed to log in.
)

// Account lockout policy.
const (
	// MaxFailedLoginAttempts is the number of consecutive failures that
	// triggers a suspension when they fall inside [LockoutWindow].
	MaxFailedLoginAttempts = 3

	// LockoutWindow is how recent the last failure must be for the
	// attempt counter to trip the lockout.
	LockoutWindow = 15 * time.Minute
)

// DefaultSessionTimeoutMin is the fail-closed session duration in minutes,
// used only when no user, role, or global tier yields a value. A session is
// never issued unbounded.
const DefaultSessionTimeoutMin = 20

// VerificationTokenTTL bounds how long an email verification link stays valid.
const VerificationTokenTTL = 24 * time.Hour

// User represents a registered account of the Hemeroteca intranet.

// # Rules
//   - Email is unique and doubles as the login name.
//   - PasswordHash is generated via Bcrypt exclusively via the auth Service.
//   - Status transitions to suspended are sticky: the lockout window only
//     triggers a suspension, it never lifts one.
//   - SessionTimeoutMin, when non-nil, overrides the role and global tiers.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Cedula              string     `json:"cedula"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	PasswordHash        string     `json:"-"` // Explicitly omitted from JSON for security.
	Status              UserStatus `json:"status"`
	FailedLoginAttempts int        `json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	SessionTimeoutMin   *int       `json:"session_timeout_min,omitempty"`
	IsEmailVerified     bool       `json:"is_email_verified"`
	DeletedAt           *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsRetired reports whether the account has been soft-deleted through either marker.
func (user *User) IsRetired() bool {
	return user.Status == UserStatusDeleted || user.DeletedAt != nil
}

// Session represents a live server-side session bound to an issued bearer token.
//
// # Security Concept
//
// The JWT alone cannot be revoked before its cryptographic expiry. Binding
// every token to a Session row lets the request gate reject a token the
// instant its row is revoked, and lets administrators force a logout.
//
// # Invariant
//
// At most one row with IsRevoked=false exists per user at any time. The
// login flow enforces this, not a database constraint.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"` // The issued bearer token. Omitted for security.
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginStatus classifies the outcome of a login attempt in the audit trail.
type LoginStatus string

const (
	LoginStatusSuccess LoginStatus = "success"
	LoginStatusFailed  LoginStatus = "failed"
	LoginStatusBlocked LoginStatus = "blocked" // Denied by the lockout guard.
)

// LogoutType classifies how a session ended.
type LogoutType string

const (
	LogoutTypeManual  LogoutType = "logout"
	LogoutTypeForced  LogoutType = "force logout"
	LogoutTypeExpired LogoutType = "expired"
)

// LoginLog is an append-only audit row recorded per login attempt and per
// session-termination event.
//
// Rows are never updated except to attach termination metadata to the
// matching row by SessionToken.
type LoginLog struct {
	ID              string      `json:"id"`
	UserID          *string     `json:"user_id,omitempty"` // Nil when the attempted username is unknown.
	Username        string      `json:"username"`
	IPAddress       string      `json:"ip_address"`
	LoginStatus     LoginStatus `json:"login_status"`
	SessionToken    string      `json:"-"`
	LogoutType      *LogoutType `json:"logout_type,omitempty"`
	LogoutTimestamp *time.Time  `json:"logout_timestamp,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}
