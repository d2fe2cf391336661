// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Command api is the entry point for the Hemeroteca HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start the NOTIFY listener and HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"hemeroteca/internal/api"
	"hemeroteca/internal/auth"
	"hemeroteca/internal/catalog"
	"hemeroteca/internal/notify"
	"hemeroteca/internal/platform/config"
	"hemeroteca/internal/platform/constants"
	"hemeroteca/internal/platform/mail"
	"hemeroteca/internal/platform/migration"
	pgstore "hemeroteca/internal/platform/postgres"
	redisstore "hemeroteca/internal/platform/redis"
	"hemeroteca/internal/platform/sec"
	"hemeroteca/internal/rbac"
	"hemeroteca/internal/users"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.SessionSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	rbacService := rbac.NewService(
		rbac.NewRoleRepository(pool),
		rbac.NewPermissionRepository(pool),
		rbac.NewAssignmentRepository(pool),
		rbac.NewGrantReader(pool),
	)

	verifyTokens := auth.NewVerificationTokenRepository(rdb)

	authService := auth.NewService(
		auth.NewUserRepository(pool),
		auth.NewSessionRepository(pool),
		auth.NewAuditRepository(pool),
		auth.NewTimeoutRepository(pool),
		auth.NewBlacklistRepository(rdb),
		verifyTokens,
		tokenService,
		&grantResolver{rbac: rbacService},
		cfg.GuardWindow(),
	)

	smtpPort, err := strconv.Atoi(cfg.SMTPPort)
	must(log, err, "parse SMTP port")
	mailer := mail.NewMailer(cfg.SMTPHost, smtpPort, cfg.SMTPUser, cfg.SMTPPass, log)

	userService := users.NewService(users.NewAdminRepository(pool), verifyTokens, mailer, cfg.VerifyLinkBase)

	catalogService, err := catalog.NewService(catalog.NewRepository(pool), cfg.CoverDir)
	must(log, err, "initialize catalog service")

	hub := notify.NewHub()
	listener := notify.NewListener(pool, hub, cfg.NotifyChannel, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		RBAC:      rbac.NewHandler(rbacService),
		Users:     users.NewHandler(userService),
		Catalog:   catalog.NewHandler(catalogService),
		Notify:    notify.NewHandler(hub, log).Serve,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go listener.Run(runCtx)

	server := api.NewServer(runCtx, cfg, log, authService, rbacService, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Stop the NOTIFY listener alongside the HTTP server.
	runCancel()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// grantResolver adapts the rbac service to the resolver interface the auth
// service consumes, keeping the two domains import-independent.
type grantResolver struct {
	rbac *rbac.Service
}

func (resolver *grantResolver) EffectivePermissions(ctx context.Context, userID string) ([]auth.PermissionGrant, error) {
	permissions, err := resolver.rbac.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	grants := make([]auth.PermissionGrant, len(permissions))
	for i, permission := range permissions {
		grants[i] = auth.PermissionGrant{
			Name:        permission.Name,
			Description: permission.Description,
			Action:      permission.Action,
		}
	}
	return grants, nil
}

func (resolver *grantResolver) PrimaryRole(ctx context.Context, userID string) (string, error) {
	return resolver.rbac.PrimaryRole(ctx, userID)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
