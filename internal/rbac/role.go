// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package rbac owns the role/permission graph and the authorization engine.
//
// # Architecture
//
// The graph (roles, permissions, and their join rows) is administered here
// and only read by the rest of the system. The engine resolves a user's
// effective permission set on every request; there is no cache, so an
// administrative edit takes effect on the very next call.
package rbac

import (
	"time"
)

// Role groups permissions and optionally overrides the session duration of
// its members.
type Role struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	SessionTimeoutMin *int       `json:"session_timeout_min,omitempty"`
	DeletedAt         *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Permission names one action on one resource.
type Permission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Resource    string     `json:"resource"`
	Action      string     `json:"action"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RolePermissionRow is one entry of the role-permission matrix listing.
type RolePermissionRow struct {
	RoleID         string `json:"role_id"`
	RoleName       string `json:"rol"`
	PermissionID   string `json:"permission_id"`
	PermissionName string `json:"permission"`
	Description    string `json:"description"`
}

// UserPermissionRow is one entry of the user-permission (direct grant)
// matrix listing.
type UserPermissionRow struct {
	UserID         string `json:"user_id"`
	UserEmail      string `json:"email"`
	PermissionID   string `json:"permission_id"`
	PermissionName string `json:"permission"`
	Description    string `json:"description"`
}
