// Copyright (c) 2026 Hemeroteca. All rights reserved.

package middleware

import (
	"context"
	"net/http"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/ctxkey"
	requestutil "hemeroteca/internal/platform/request"
	"hemeroteca/internal/platform/respond"
	"hemeroteca/internal/platform/sec"
)

// Authenticator defines the interface needed to validate a bearer token
// against the full session pipeline (blacklist, signature, session row,
// near-expiry guard).
//
// # Why an interface?
//
// Defining Authenticator here decouples the middleware from the `auth`
// service implementation, allowing us to easily inject fakes during unit
// testing.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*sec.SessionClaims, error)
}

// Authorizer defines the interface needed to evaluate effective permissions.
//
// The effective set is recomputed on every call; permission edits take
// effect on the very next request without any cache invalidation step.
type Authorizer interface {
	Authorize(ctx context.Context, userID, permission string) error
}

// Gate extracts the bearer token and validates the session behind it.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header; absent → 401.
//  2. Delegate to [Authenticator] for the ordered session pipeline.
//  3. Inject [*sec.SessionClaims] into the request context for downstream use.
//
// Routes mounted behind Gate are strictly session-gated: there is no
// anonymous fall-through. Public routes must be grouped outside of it.
//
// # Parameters
//   - authenticator: The Authenticator instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Gate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			token := requestutil.BearerToken(request)
			if token == "" {
				respond.Error(writer, request, apperr.Unauthorized("Access denied. No token provided"))
				return
			}

			// ── 2. Session Pipeline ───────────────────────────────────────────
			claims, err := authenticator.Authenticate(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequirePermission blocks requests whose user lacks the named permission.
//
// # Usage
//
// Must be registered in the router AFTER [Gate].
//
// # Flow
//  1. Check if [*sec.SessionClaims] exists in context (implies AuthN).
//  2. Recompute the user's effective permission set via [Authorizer].
//  3. If the permission is absent, abort with HTTP 403 Forbidden.
func RequirePermission(authorizer Authorizer, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if err := authorizer.Authorize(request.Context(), claims.UserID, permission); err != nil {
				respond.Error(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser retrieves the [*sec.SessionClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.SessionClaims] if the user is authenticated.
//   - nil if the request never passed through [Gate].
func GetUser(ctx context.Context) *sec.SessionClaims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
