// Copyright (c) 2026 Hemeroteca. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/platform/sec"
)

func newTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService("test-secret-0123456789", "hemeroteca.test")
	require.NoError(t, err)
	return service
}

func TestNewTokenService_RejectsEmptySecret(t *testing.T) {
	_, err := sec.NewTokenService("", "hemeroteca.test")
	assert.Error(t, err)
}

func TestGenerateAndVerify_RoundTrip(t *testing.T) {
	service := newTokenService(t)

	token, err := service.Generate("user-123", time.Hour)
	require.NoError(t, err)

	claims, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "hemeroteca.test", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerify_ExpiredTokenIsClassifiedAsExpired(t *testing.T) {
	service := newTokenService(t)

	token, err := service.Generate("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = service.Verify(token)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

func TestVerify_GarbageIsClassifiedAsMalformed(t *testing.T) {
	service := newTokenService(t)

	_, err := service.Verify("not.a.token")
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}

func TestVerify_ForeignSignatureIsMalformedNotExpired(t *testing.T) {
	service := newTokenService(t)

	forger, err := sec.NewTokenService("a-different-secret", "hemeroteca.test")
	require.NoError(t, err)

	// Even an expired forgery must never be classified as a natural
	// expiry: the gate audits those as session events.
	forged, err := forger.Generate("user-123", -time.Minute)
	require.NoError(t, err)

	_, err = service.Verify(forged)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}
