// Copyright (c) 2026 Hemeroteca. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Hemeroteca API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis): token blacklist and verification tokens.
	RedisURL string `env:"REDIS_URL,required"`

	// SessionSecret signs bearer tokens (HS256).
	SessionSecret string `env:"SESSION_SECRET,required"`

	// GuardWindowSec is the lead time, in seconds, before a session's
	// absolute expiry during which requests are rejected and the session
	// revoked. Always treated as a positive number of seconds.
	GuardWindowSec int `env:"SESSION_GUARD_WINDOW_SEC" envDefault:"10"`

	// CoverDir is the directory where magazine cover images are stored.
	CoverDir string `env:"COVER_DIR" envDefault:"./public/portadas"`

	// VerifyLinkBase is the frontend URL prefix for email verification links.
	VerifyLinkBase string `env:"VERIFY_LINK_BASE" envDefault:"http://intranet.minaamp.gob.ve/verify-email"`

	// SMTP relay for verification emails.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`

	// NotifyChannel is the PostgreSQL NOTIFY channel relayed over WebSocket.
	NotifyChannel string `env:"NOTIFY_CHANNEL" envDefault:"revistas_data_updates"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// GuardWindow returns the near-expiry lead time as a [time.Duration].
func (c *Config) GuardWindow() time.Duration {
	if c.GuardWindowSec <= 0 {
		return 0
	}
	return time.Duration(c.GuardWindowSec) * time.Second
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
