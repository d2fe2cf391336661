// Copyright (c) 2026 Hemeroteca. All rights reserved.

package users

import (
	"context"

	"hemeroteca/internal/auth"
	"hemeroteca/pkg/pagination"
)

// AdminRepository defines the data access contract for account administration.
//
// It operates on the same users table as the login flow but through
// administrative verbs; the two packages share the [auth.User] entity.
type AdminRepository interface {
	// Create persists a new account.
	//
	// Returns [apperr.Conflict] when the email or cedula is already taken.
	Create(ctx context.Context, user *auth.User) error

	// List returns one page of accounts, excluding soft-deleted ones,
	// plus the total count of active accounts.
	List(ctx context.Context, params pagination.Params) ([]auth.User, int, error)

	// FindByID returns the account with the given ID, excluding
	// soft-deleted ones.
	FindByID(ctx context.Context, id string) (*auth.User, error)

	// FindByEmail returns the account with the given email, excluding
	// soft-deleted ones.
	FindByEmail(ctx context.Context, email string) (*auth.User, error)

	// Update persists changes to the profile fields (email, cedula, names).
	Update(ctx context.Context, user *auth.User) error

	// UpdatePassword replaces only the password hash.
	UpdatePassword(ctx context.Context, userID, newHash string) error

	// SetSessionTimeout replaces the per-user session duration override.
	SetSessionTimeout(ctx context.Context, userID string, minutes int) error

	// SoftDelete stamps deleted_at, flips the status to deleted, and
	// revokes every live session of the account in one transaction.
	SoftDelete(ctx context.Context, userID string) error

	// HardDelete removes the account and its dependent rows (sessions,
	// grants, role links) in one transaction. The audit trail survives
	// with its user reference detached.
	HardDelete(ctx context.Context, userID string) error
}
