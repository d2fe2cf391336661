// Copyright (c) 2026 Hemeroteca. All rights reserved.

// The auth Service implements the session lifecycle use cases: login with
// account lockout, single-active-session enforcement, tiered timeout
// resolution, logout with token blacklisting, forced logout, and the
// per-request authentication pipeline backing the HTTP gate.
//
// # Architecture
//
// The service orchestrates domain entities through repository interfaces.
// It is technology-agnostic: it knows nothing about HTTP or SQL.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/ctxutil"
	"hemeroteca/internal/platform/sec"
	"hemeroteca/pkg/uuid"
)

// TokenProvider defines the contract for minting and verifying bearer tokens.
type TokenProvider interface {
	// Generate creates a signed token for the given user with the given lifetime.
	Generate(userID string, timeToLive time.Duration) (string, error)

	// Verify validates a token and classifies failures as
	// [sec.ErrTokenExpired] or [sec.ErrTokenMalformed].
	Verify(tokenString string) (*sec.SessionClaims, error)
}

// PermissionGrant is one entry of a user's effective permission set, as
// reported to the client at login time.
type PermissionGrant struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

// AccessResolver supplies the authorization payload included in a successful
// login response. The canonical implementation delegates to the rbac service.
type AccessResolver interface {
	// EffectivePermissions resolves the user's effective permission set
	// (direct grants shadow role-derived grants).
	EffectivePermissions(ctx context.Context, userID string) ([]PermissionGrant, error)

	// PrimaryRole returns the name of the user's assigned role, or "" when
	// the user has none.
	PrimaryRole(ctx context.Context, userID string) (string, error)
}

// Service implements the session lifecycle use cases.
//
// # Review Process
//
// This service is the security core of the platform. Any changes to the
// login flow, the lockout guard, or the request pipeline must be reviewed
// by the security team.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	auditRepository   AuditRepository
	timeoutRepository TimeoutRepository
	blacklist         BlacklistRepository
	verifyTokens      VerificationTokenRepository
	tokenProvider     TokenProvider
	access            AccessResolver

	// guardWindow is the lead time before a session's absolute expiry
	// during which requests are proactively rejected and the session
	// revoked.
	guardWindow time.Duration

	// now is injectable so lockout windows and expiry boundaries can be
	// tested against a fixed clock.
	now func() time.Time
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	auditRepo AuditRepository,
	timeoutRepo TimeoutRepository,
	blacklist BlacklistRepository,
	verifyTokens VerificationTokenRepository,
	tokenProv TokenProvider,
	access AccessResolver,
	guardWindow time.Duration,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		auditRepository:   auditRepo,
		timeoutRepository: timeoutRepo,
		blacklist:         blacklist,
		verifyTokens:      verifyTokens,
		tokenProvider:     tokenProv,
		access:            access,
		guardWindow:       guardWindow,
		now:               time.Now,
	}
}

// WithClock replaces the service clock. Intended for tests only.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string // The account email.
	Password  string
	IPAddress string
}

// LoginResult represents a successfully established session.
type LoginResult struct {
	Token string `json:"token"`

	// SessionDuration is the lifetime reported to the frontend, in
	// minutes, with the guard window already subtracted so the client
	// warns the user before the server-side cutoff.
	SessionDuration float64 `json:"sessionDuration"`

	Role        string            `json:"role"`
	Permissions []PermissionGrant `json:"permissions"`
}

// Login validates credentials and establishes the user's single session.
//
// # Flow
//  1. Single-active-session pre-check: a live unexpired session rejects the
//     attempt outright; a stale one is revoked first.
//  2. Lookup by email; unknown accounts get the same generic error as bad
//     passwords, and both are audited.
//  3. Retired and suspended accounts are denied.
//  4. Lockout guard: too many recent failures suspend the account before
//     the password is even compared.
//  5. Bcrypt comparison; a mismatch bumps the failure counter.
//  6. Success resets the counter, resolves the tiered timeout, mints a
//     token, persists the session row, and audits the outcome.
//
// # Returns
//   - A [*LoginResult] carrying the token, the reported duration, the role
//     name, and the effective permission set.
//   - [apperr.Unauthorized] for credential failures (never distinguishing
//     unknown-user from wrong-password).
//   - [apperr.Forbidden] for open sessions, retired, suspended, or
//     freshly locked accounts.
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	now := service.now()

	// ── 1. Single-Active-Session Pre-Check ────────────────────────────────

	// The check runs on the email alone, before credentials are compared:
	// a valid password must not unseat an open session either.
	existing, err := service.sessionRepository.FindActiveByEmail(ctx, input.Username)
	if err == nil {
		if now.Before(existing.ExpiresAt) {
			return nil, apperr.Forbidden("A session for this user is already open")
		}

		// The row outlived its expiry without being noticed by the gate.
		// Transition it to revoked before proceeding.
		if err := service.sessionRepository.Revoke(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("auth_service_stale_session_revoke_failed: %w", err)
		}
	} else if !apperr.IsAppError(err) {
		return nil, fmt.Errorf("auth_service_session_precheck_failed: %w", err)
	}

	// ── 2. Fetch Credential Record ────────────────────────────────────────

	user, err := service.userRepository.FindByEmail(ctx, input.Username)
	if err != nil {
		service.audit(ctx, nil, input, LoginStatusFailed, "")

		// Generic error to prevent account enumeration.
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	// ── 3. Account State Checks ───────────────────────────────────────────

	if user.IsRetired() {
		service.audit(ctx, &user.ID, input, LoginStatusFailed, "")
		return nil, apperr.Forbidden("The account has been deactivated")
	}

	if user.Status == UserStatusSuspended {
		// Suspension is sticky: only an administrator lifts it.
		service.audit(ctx, &user.ID, input, LoginStatusFailed, "")
		return nil, apperr.Forbidden("The account is suspended")
	}

	// ── 4. Lockout Guard ──────────────────────────────────────────────────

	// Runs BEFORE the password comparison: a locked account is denied even
	// when the submitted password is correct.
	if service.lockoutTripped(user, now) {
		if err := service.userRepository.SetStatus(ctx, user.ID, UserStatusSuspended); err != nil {
			return nil, fmt.Errorf("auth_service_lockout_suspend_failed: %w", err)
		}
		service.audit(ctx, &user.ID, input, LoginStatusBlocked, "")
		return nil, apperr.Forbidden("The account has been locked after repeated failed attempts")
	}

	// ── 5. Credential Verification ────────────────────────────────────────

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		if err := service.userRepository.RecordFailedAttempt(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("auth_service_failed_attempt_record_failed: %w", err)
		}
		service.audit(ctx, &user.ID, input, LoginStatusFailed, "")
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	if err := service.userRepository.ResetFailedAttempts(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("auth_service_attempt_reset_failed: %w", err)
	}

	// ── 6. Session Establishment ──────────────────────────────────────────

	timeoutMin, err := service.resolveTimeout(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	timeToLive := time.Duration(timeoutMin) * time.Minute

	token, err := service.tokenProvider.Generate(user.ID, timeToLive)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	session := &Session{
		ID:        uuid.New(), // Time-sortable ID to prevent PG index fragmentation.
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(timeToLive),
		IsRevoked: false,
	}

	// CreateExclusive serializes concurrent logins for the same user and
	// re-checks the invariant under the row lock.
	if err := service.sessionRepository.CreateExclusive(ctx, session); err != nil {
		return nil, err
	}

	service.audit(ctx, &user.ID, input, LoginStatusSuccess, token)

	// ── 7. Authorization Payload ──────────────────────────────────────────

	role, err := service.access.PrimaryRole(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_role_lookup_failed: %w", err)
	}

	permissions, err := service.access.EffectivePermissions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_permission_lookup_failed: %w", err)
	}

	return &LoginResult{
		Token:           token,
		SessionDuration: (timeToLive - service.guardWindow).Minutes(),
		Role:            role,
		Permissions:     permissions,
	}, nil
}

// lockoutTripped reports whether the lockout policy denies this attempt.
func (service *Service) lockoutTripped(user *User, now time.Time) bool {
	if user.FailedLoginAttempts < MaxFailedLoginAttempts {
		return false
	}
	if user.LastFailedLogin == nil {
		return false
	}
	return now.Sub(*user.LastFailedLogin) < LockoutWindow
}

// resolveTimeout computes the effective session duration in minutes.
//
// # Precedence
//
// User override → role override → global setting → [DefaultSessionTimeoutMin].
// The default applies only when every tier is empty; store failures
// propagate instead of silently shortening or extending sessions.
func (service *Service) resolveTimeout(ctx context.Context, userID string) (int, error) {
	userTimeout, err := service.timeoutRepository.UserTimeout(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("auth_service_user_timeout_failed: %w", err)
	}
	if userTimeout != nil {
		return *userTimeout, nil
	}

	roleTimeout, err := service.timeoutRepository.RoleTimeout(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("auth_service_role_timeout_failed: %w", err)
	}
	if roleTimeout != nil {
		return *roleTimeout, nil
	}

	globalTimeout, err := service.timeoutRepository.GlobalTimeout(ctx)
	if err != nil {
		return 0, fmt.Errorf("auth_service_global_timeout_failed: %w", err)
	}
	if globalTimeout != nil {
		return *globalTimeout, nil
	}

	// Fail closed: never issue an unbounded session.
	return DefaultSessionTimeoutMin, nil
}

// audit appends a login audit row. Failures here must never mask the real
// outcome of the attempt, so they are logged and swallowed.
func (service *Service) audit(ctx context.Context, userID *string, input LoginInput, status LoginStatus, token string) {
	entry := &LoginLog{
		ID:           uuid.New(),
		UserID:       userID,
		Username:     input.Username,
		IPAddress:    input.IPAddress,
		LoginStatus:  status,
		SessionToken: token,
	}

	if err := service.auditRepository.RecordAttempt(ctx, entry); err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "auth_audit_write_failed",
			slog.String("username", input.Username),
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
	}
}

// Logout revokes the session backing the presented token and deny-lists the
// token for the remainder of its natural life.
//
// # Hardening
//
// The token signature is verified first; the legacy behavior of trusting a
// merely decoded token is deliberately not reproduced.
func (service *Service) Logout(ctx context.Context, token string) error {
	claims, err := service.tokenProvider.Verify(token)
	if err != nil {
		return apperr.Unauthorized("Invalid or expired token")
	}

	// 1. Attach termination metadata to the matching audit row
	if err := service.auditRepository.MarkLogout(ctx, token, LogoutTypeManual); err != nil {
		return fmt.Errorf("auth_service_logout_audit_failed: %w", err)
	}

	// 2. Revoke the server-side session
	if err := service.sessionRepository.RevokeByToken(ctx, token); err != nil {
		return fmt.Errorf("auth_service_logout_revoke_failed: %w", err)
	}

	// 3. Deny-list the token until its own embedded expiry
	if err := service.blacklist.Record(ctx, token, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("auth_service_logout_blacklist_failed: %w", err)
	}

	return nil
}

// ForceLogout administratively revokes every session of the given user.
//
// The audit tagging and the revocation are a single transaction: both
// commit together or neither does.
func (service *Service) ForceLogout(ctx context.Context, userID string) error {
	if err := service.sessionRepository.ForceRevokeAll(ctx, userID, LogoutTypeForced); err != nil {
		return fmt.Errorf("auth_service_force_logout_failed: %w", err)
	}
	return nil
}

// Authenticate runs the ordered per-request session pipeline behind the
// HTTP gate.
//
// # Pipeline (short-circuit on first failure)
//  1. Blacklist check — BEFORE signature verification, so a replayed
//     still-valid token is rejected regardless of its own validity.
//  2. Signature and structural verification; natural expiry is audited.
//  3. Session-liveness lookup: the token must map to a non-revoked row.
//  4. Near-expiry guard: inside the final guard window the session is
//     revoked on the spot and the request rejected.
//
// # Returns
//   - The verified [*sec.SessionClaims] for context injection.
//   - [apperr.Unauthorized] describing the first failed step.
func (service *Service) Authenticate(ctx context.Context, token string) (*sec.SessionClaims, error) {

	// ── 1. Blacklist Check ────────────────────────────────────────────────

	blacklisted, err := service.blacklist.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("auth_service_blacklist_check_failed: %w", err)
	}
	if blacklisted {
		return nil, apperr.Unauthorized("Session expired. Please log in again")
	}

	// ── 2. Token Verification ─────────────────────────────────────────────

	claims, err := service.tokenProvider.Verify(token)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			// Record the natural expiry in the audit trail; a failure to
			// do so must not turn a clean rejection into a 500.
			if auditErr := service.auditRepository.MarkLogout(ctx, token, LogoutTypeExpired); auditErr != nil {
				ctxutil.GetLogger(ctx).ErrorContext(ctx, "auth_expiry_audit_failed", slog.Any("error", auditErr))
			}
			return nil, apperr.Unauthorized("The session has expired. Please log in again")
		}
		return nil, apperr.Unauthorized("Invalid token")
	}

	// ── 3. Session Liveness ───────────────────────────────────────────────

	session, err := service.sessionRepository.FindLiveByToken(ctx, token)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, apperr.Unauthorized("Session not found or revoked")
		}
		return nil, fmt.Errorf("auth_service_session_lookup_failed: %w", err)
	}

	// ── 4. Near-Expiry Guard ──────────────────────────────────────────────

	// Reject inside the final guard window even though the cryptographic
	// expiry has not struck, closing the race between client and server
	// clocks.
	if service.now().After(session.ExpiresAt.Add(-service.guardWindow)) {
		if err := service.sessionRepository.Revoke(ctx, session.ID); err != nil {
			return nil, fmt.Errorf("auth_service_guard_revoke_failed: %w", err)
		}
		if auditErr := service.auditRepository.MarkLogout(ctx, token, LogoutTypeExpired); auditErr != nil {
			ctxutil.GetLogger(ctx).ErrorContext(ctx, "auth_expiry_audit_failed", slog.Any("error", auditErr))
		}
		return nil, apperr.Unauthorized("The session has expired. An automatic logout was performed")
	}

	return claims, nil
}

// ChangePassword rotates a user's password after re-verifying the current one.
//
// Password policy validation happens at the HTTP boundary; this method only
// enforces the old-password match.
func (service *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperr.BadRequest("The current password is incorrect")
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("auth_service_password_update_failed: %w", err)
	}

	return nil
}

// VerifyEmail redeems a verification token and marks the account verified.
func (service *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := service.verifyTokens.Get(ctx, token)
	if err != nil {
		if apperr.IsAppError(err) {
			return apperr.BadRequest("Invalid or expired verification token")
		}
		return fmt.Errorf("auth_service_verify_token_lookup_failed: %w", err)
	}

	if err := service.userRepository.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	// Single-use token.
	if err := service.verifyTokens.Delete(ctx, token); err != nil {
		return fmt.Errorf("auth_service_verify_token_delete_failed: %w", err)
	}

	return nil
}

// GlobalTimeout reads the global session duration setting in minutes.
func (service *Service) GlobalTimeout(ctx context.Context) (int, error) {
	minutes, err := service.timeoutRepository.GlobalTimeout(ctx)
	if err != nil {
		return 0, fmt.Errorf("auth_service_global_timeout_failed: %w", err)
	}
	if minutes == nil {
		return 0, apperr.NotFound("Global session setting")
	}
	return *minutes, nil
}

// UpdateGlobalTimeout replaces the global session duration setting.
func (service *Service) UpdateGlobalTimeout(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		return apperr.BadRequest("The duration must be a positive number of minutes")
	}
	if err := service.timeoutRepository.SetGlobalTimeout(ctx, minutes); err != nil {
		return fmt.Errorf("auth_service_global_timeout_update_failed: %w", err)
	}
	return nil
}
