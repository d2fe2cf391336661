// Copyright (c) 2026 Hemeroteca. All rights reserved.

package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/middleware"
	"hemeroteca/internal/platform/sec"
)

// fakeAuthenticator records the token it was asked about and returns a
// scripted result.
type fakeAuthenticator struct {
	seenToken string
	claims    *sec.SessionClaims
	err       error
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*sec.SessionClaims, error) {
	f.seenToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

type fakeAuthorizer struct {
	granted map[string]bool
}

func (f *fakeAuthorizer) Authorize(_ context.Context, _, permission string) error {
	if f.granted[permission] {
		return nil
	}
	return apperr.Forbidden("You do not have permission to perform this action")
}

// echoUser responds with the user ID injected by the gate, proving the
// claims made it into the request context.
func echoUser(writer http.ResponseWriter, request *http.Request) {
	claims := middleware.GetUser(request.Context())
	if claims == nil {
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte(claims.UserID))
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body.Code
}

func TestGate_MissingTokenIsRejectedBeforeThePipeline(t *testing.T) {
	authenticator := &fakeAuthenticator{}
	handler := middleware.Gate(authenticator)(http.HandlerFunc(echoUser))

	request := httptest.NewRequest(http.MethodGet, "/users", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, recorder))
	// The authenticator must never run without a token.
	assert.Empty(t, authenticator.seenToken)
}

func TestGate_PipelineErrorShortCircuits(t *testing.T) {
	authenticator := &fakeAuthenticator{err: apperr.Unauthorized("Session expired. Please log in again")}
	handler := middleware.Gate(authenticator)(http.HandlerFunc(echoUser))

	request := httptest.NewRequest(http.MethodGet, "/users", nil)
	request.Header.Set("Authorization", "Bearer some-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "some-token", authenticator.seenToken)
}

func TestGate_InjectsClaimsForDownstreamHandlers(t *testing.T) {
	authenticator := &fakeAuthenticator{claims: &sec.SessionClaims{UserID: "user-42"}}
	handler := middleware.Gate(authenticator)(http.HandlerFunc(echoUser))

	request := httptest.NewRequest(http.MethodGet, "/users", nil)
	request.Header.Set("Authorization", "Bearer valid-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "user-42", recorder.Body.String())
}

func TestRequirePermission_DeniesWithoutGrant(t *testing.T) {
	authenticator := &fakeAuthenticator{claims: &sec.SessionClaims{UserID: "user-42"}}
	authorizer := &fakeAuthorizer{granted: map[string]bool{"revistas_write": true}}

	chain := middleware.Gate(authenticator)(
		middleware.RequirePermission(authorizer, "users_manage")(http.HandlerFunc(echoUser)),
	)

	request := httptest.NewRequest(http.MethodPost, "/users", nil)
	request.Header.Set("Authorization", "Bearer valid-token")
	recorder := httptest.NewRecorder()
	chain.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, recorder))
}

func TestRequirePermission_AllowsWithGrant(t *testing.T) {
	authenticator := &fakeAuthenticator{claims: &sec.SessionClaims{UserID: "user-42"}}
	authorizer := &fakeAuthorizer{granted: map[string]bool{"users_manage": true}}

	chain := middleware.Gate(authenticator)(
		middleware.RequirePermission(authorizer, "users_manage")(http.HandlerFunc(echoUser)),
	)

	request := httptest.NewRequest(http.MethodPost, "/users", nil)
	request.Header.Set("Authorization", "Bearer valid-token")
	recorder := httptest.NewRecorder()
	chain.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequirePermission_WithoutGateIsUnauthorized(t *testing.T) {
	authorizer := &fakeAuthorizer{granted: map[string]bool{"users_manage": true}}
	handler := middleware.RequirePermission(authorizer, "users_manage")(http.HandlerFunc(echoUser))

	request := httptest.NewRequest(http.MethodPost, "/users", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
