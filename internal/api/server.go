// Copyright (c) 2026 Hemeroteca. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.

Every protected route declares its required permission name right here at
registration time, so the full authorization surface of the API is visible
in one file.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"hemeroteca/internal/auth"
	"hemeroteca/internal/catalog"
	"hemeroteca/internal/platform/config"
	"hemeroteca/internal/platform/constants"
	"hemeroteca/internal/platform/middleware"
	"hemeroteca/internal/rbac"
	"hemeroteca/internal/users"
)

// # Permission Names

// Route permission names, matched against the permissions table by the
// authorization engine.
const (
	PermUsersManage       = "users_manage"
	PermRolesManage       = "roles_manage"
	PermPermissionsManage = "permissions_manage"
	PermSessionsManage    = "sessions_manage"
	PermForceLogout       = "force_logout"
	PermRevistasWrite     = "revistas_write"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the session lifecycle (login, logout, verification).
	Auth *auth.Handler

	// RBAC handles role and permission administration.
	RBAC *rbac.Handler

	// Users handles account administration.
	Users *users.Handler

	// Catalog handles the magazine catalog and cover images.
	Catalog *catalog.Handler

	// Notify upgrades /ws requests onto the catalog change feed.
	Notify http.HandlerFunc
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(
	context context.Context,
	cfg *config.Config,
	log *slog.Logger,
	authenticator middleware.Authenticator,
	authorizer middleware.Authorizer,
	h Handlers,
) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Public Routes
	// No session required: login, email verification, and the read-only
	// catalog the public site is built on.
	r.Post("/login", h.Auth.Login)
	r.Post("/verify-email", h.Auth.VerifyEmail)

	r.Get("/revistas", h.Catalog.List)
	r.Get("/recientes", h.Catalog.Recent)
	r.Get("/areas_revistas", h.Catalog.Areas)
	r.Get("/indices_revistas", h.Catalog.Indices)
	r.Get("/idiomas_revistas", h.Catalog.Idiomas)
	r.Get("/editorial_revistas", h.Catalog.Editoriales)
	r.Get("/periodicidad_revistas", h.Catalog.Periodicidades)
	r.Get("/formato_revistas", h.Catalog.Formatos)
	r.Get("/portadas/{filename}", h.Catalog.ServeCover)

	r.Get("/ws", h.Notify)

	// # Session-Gated Routes
	// Everything below runs the full session pipeline (blacklist check,
	// signature verification, session row, near-expiry guard).
	r.Group(func(gated chi.Router) {
		gated.Use(middleware.Gate(authenticator))

		// Owned-session operations carry no extra permission: the bearer
		// token itself names the subject.
		gated.Post("/logout", h.Auth.Logout)
		gated.Post("/change-password", h.Auth.ChangePassword)

		requires := func(permission string) func(http.Handler) http.Handler {
			return middleware.RequirePermission(authorizer, permission)
		}

		gated.With(requires(PermForceLogout)).Post("/force-logout", h.Auth.ForceLogout)

		// Account administration
		gated.With(requires(PermUsersManage)).Post("/users", h.Users.Create)
		gated.With(requires(PermUsersManage)).Get("/users", h.Users.List)
		gated.With(requires(PermUsersManage)).Put("/users/{userId}", h.Users.Update)
		gated.With(requires(PermUsersManage)).Delete("/users/{userId}", h.Users.Delete)
		gated.With(requires(PermUsersManage)).Delete("/users/{userId}/permanent", h.Users.DeletePermanently)
		gated.With(requires(PermUsersManage)).Post("/fast-password", h.Users.FastPassword)

		// Role administration
		gated.With(requires(PermRolesManage)).Post("/roles", h.RBAC.CreateRole)
		gated.With(requires(PermRolesManage)).Get("/roles", h.RBAC.ListRoles)
		gated.With(requires(PermRolesManage)).Put("/roles/{roleId}", h.RBAC.UpdateRole)
		gated.With(requires(PermRolesManage)).Delete("/roles/{roleId}", h.RBAC.DeleteRole)
		gated.With(requires(PermRolesManage)).Delete("/roles/{roleId}/permanent", h.RBAC.DeleteRolePermanently)

		// Permission administration
		gated.With(requires(PermPermissionsManage)).Post("/permissions", h.RBAC.CreatePermission)
		gated.With(requires(PermPermissionsManage)).Get("/permissions", h.RBAC.ListPermissions)
		gated.With(requires(PermPermissionsManage)).Put("/permissions/{permissionId}", h.RBAC.UpdatePermission)
		gated.With(requires(PermPermissionsManage)).Delete("/permissions/{permissionId}", h.RBAC.DeletePermission)
		gated.With(requires(PermPermissionsManage)).Delete("/permissions/{permissionId}/permanent", h.RBAC.DeletePermissionPermanently)

		// Grant graph edits and matrices
		gated.With(requires(PermRolesManage)).Post("/assign-role", h.RBAC.AssignRoleToUser)
		gated.With(requires(PermRolesManage)).Post("/remove-role", h.RBAC.RemoveRoleFromUser)
		gated.With(requires(PermRolesManage)).Post("/assign-permission", h.RBAC.AssignPermissionToRole)
		gated.With(requires(PermRolesManage)).Post("/remove-permission", h.RBAC.RemovePermissionFromRole)
		gated.With(requires(PermRolesManage)).Post("/assign-user-permission", h.RBAC.AssignPermissionToUser)
		gated.With(requires(PermRolesManage)).Post("/remove-user-permission", h.RBAC.RemovePermissionFromUser)
		gated.With(requires(PermRolesManage)).Get("/roles-permissions", h.RBAC.RolePermissionMatrix)
		gated.With(requires(PermRolesManage)).Get("/users-permissions", h.RBAC.UserPermissionMatrix)

		// Session duration settings, all three tiers
		gated.With(requires(PermSessionsManage)).Get("/session-settings/global", h.Auth.GetGlobalTimeout)
		gated.With(requires(PermSessionsManage)).Patch("/session-settings/global", h.Auth.UpdateGlobalTimeout)
		gated.With(requires(PermSessionsManage)).Patch("/roles/{roleId}/session-timeout", h.RBAC.SetRoleSessionTimeout)
		gated.With(requires(PermSessionsManage)).Patch("/users/{userId}/session-timeout", h.Users.SetSessionTimeout)

		// Catalog maintenance
		gated.With(requires(PermRevistasWrite)).Post("/revistas", h.Catalog.Insert)
		gated.With(requires(PermRevistasWrite)).Patch("/revistas/{revistaId}", h.Catalog.Update)
		gated.With(requires(PermRevistasWrite)).Post("/revistas/{revistaId}/portada", h.Catalog.UploadCover)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
