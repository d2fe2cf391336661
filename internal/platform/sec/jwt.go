// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via interfaces defined where they are consumed.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Classification of token verification failures.
//
// # Why sentinels?
//
// The request gate must branch on the failure mode: a naturally expired token
// is audited as a session expiry, while a malformed or forged token is a plain
// rejection. Returning explicit sentinel errors keeps that branching in the
// caller's control flow instead of string matching on library errors.
var (
	// ErrTokenExpired indicates a structurally valid token whose exp claim has passed.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed indicates a token that is malformed, unsigned, or
	// carries an invalid signature.
	ErrTokenMalformed = errors.New("sec: token malformed or invalid signature")
)

// SessionClaims represents the payload embedded inside a bearer token.
//
// The payload is intentionally minimal: the user ID plus the registered
// expiry. Everything else (role, permissions, session state) is resolved
// server-side on every request so that administrative edits take effect
// immediately.
type SessionClaims struct {
	jwt.RegisteredClaims

	// UserID identifies the account that owns the session.
	UserID string `json:"userId"`
}

// TokenService handles generation and verification of bearer tokens using HS256.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService signing with the given shared secret.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

// Generate creates a signed bearer token for a user.
//
// The embedded expiry mirrors the server-side session row created alongside
// the token; both must agree.
func (service *TokenService) Generate(userID string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a bearer token string.
//
// # Returns
//   - *SessionClaims when the token is valid.
//   - [ErrTokenExpired] when the token is well formed but past its expiry.
//   - [ErrTokenMalformed] for every other failure (bad shape, bad signature).
func (service *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
