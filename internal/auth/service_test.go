// Copyright (c) 2026 Hemeroteca. All rights reserved.

package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/auth"
	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/sec"
	"hemeroteca/pkg/pointer"
)

const guardWindow = 10 * time.Second

// fakeStore is a single in-memory implementation of every auth repository
// contract, so test scenarios can observe cross-repository effects (audit
// rows written by a session revocation, counters bumped by a login).
type fakeStore struct {
	clock *testClock

	usersByEmail map[string]*auth.User
	sessions     map[string]*auth.Session // keyed by session ID
	logs         []*auth.LoginLog

	roleTimeouts  map[string]*int // keyed by user ID
	globalTimeout *int

	blacklist    map[string]time.Time // token -> natural expiry
	verifyTokens map[string]string    // token -> user ID
}

func newFakeStore(clock *testClock) *fakeStore {
	return &fakeStore{
		clock:        clock,
		usersByEmail: make(map[string]*auth.User),
		sessions:     make(map[string]*auth.Session),
		roleTimeouts: make(map[string]*int),
		blacklist:    make(map[string]time.Time),
		verifyTokens: make(map[string]string),
	}
}

// ── UserRepository ──

func (store *fakeStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if user, ok := store.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (store *fakeStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	for _, user := range store.usersByEmail {
		if user.ID == id && user.DeletedAt == nil {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *fakeStore) RecordFailedAttempt(_ context.Context, userID string) error {
	user := store.mustUser(userID)
	user.FailedLoginAttempts++
	now := store.clock.Now()
	user.LastFailedLogin = &now
	return nil
}

func (store *fakeStore) ResetFailedAttempts(_ context.Context, userID string) error {
	user := store.mustUser(userID)
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	return nil
}

func (store *fakeStore) SetStatus(_ context.Context, userID string, status auth.UserStatus) error {
	store.mustUser(userID).Status = status
	return nil
}

func (store *fakeStore) UpdatePassword(_ context.Context, userID, newHash string) error {
	store.mustUser(userID).PasswordHash = newHash
	return nil
}

func (store *fakeStore) MarkEmailVerified(_ context.Context, userID string) error {
	store.mustUser(userID).IsEmailVerified = true
	return nil
}

func (store *fakeStore) mustUser(userID string) *auth.User {
	for _, user := range store.usersByEmail {
		if user.ID == userID {
			return user
		}
	}
	panic("fakeStore: unknown user " + userID)
}

// ── SessionRepository ──

func (store *fakeStore) FindActiveByEmail(_ context.Context, email string) (*auth.Session, error) {
	user, ok := store.usersByEmail[email]
	if !ok {
		return nil, apperr.NotFound("Active session")
	}
	for _, session := range store.sessions {
		if session.UserID == user.ID && !session.IsRevoked {
			return session, nil
		}
	}
	return nil, apperr.NotFound("Active session")
}

func (store *fakeStore) CreateExclusive(_ context.Context, session *auth.Session) error {
	for _, existing := range store.sessions {
		if existing.UserID == session.UserID && !existing.IsRevoked && existing.ExpiresAt.After(store.clock.Now()) {
			return apperr.Forbidden("A session for this user is already open")
		}
	}
	store.sessions[session.ID] = session
	return nil
}

func (store *fakeStore) FindLiveByToken(_ context.Context, token string) (*auth.Session, error) {
	for _, session := range store.sessions {
		if session.Token == token && !session.IsRevoked {
			return session, nil
		}
	}
	return nil, apperr.NotFound("Session not found or revoked")
}

func (store *fakeStore) Revoke(_ context.Context, sessionID string) error {
	if session, ok := store.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (store *fakeStore) RevokeByToken(_ context.Context, token string) error {
	for _, session := range store.sessions {
		if session.Token == token {
			session.IsRevoked = true
		}
	}
	return nil
}

func (store *fakeStore) ForceRevokeAll(_ context.Context, userID string, logoutType auth.LogoutType) error {
	now := store.clock.Now()
	for _, entry := range store.logs {
		if entry.UserID != nil && *entry.UserID == userID && entry.LogoutType == nil {
			logout := logoutType
			entry.LogoutType = &logout
			entry.LogoutTimestamp = &now
		}
	}
	for _, session := range store.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

// ── AuditRepository ──

func (store *fakeStore) RecordAttempt(_ context.Context, entry *auth.LoginLog) error {
	entry.CreatedAt = store.clock.Now()
	store.logs = append(store.logs, entry)
	return nil
}

func (store *fakeStore) MarkLogout(_ context.Context, sessionToken string, logoutType auth.LogoutType) error {
	now := store.clock.Now()
	for _, entry := range store.logs {
		if entry.SessionToken == sessionToken {
			logout := logoutType
			entry.LogoutType = &logout
			entry.LogoutTimestamp = &now
		}
	}
	return nil
}

// ── TimeoutRepository ──

func (store *fakeStore) UserTimeout(_ context.Context, userID string) (*int, error) {
	for _, user := range store.usersByEmail {
		if user.ID == userID {
			return user.SessionTimeoutMin, nil
		}
	}
	return nil, nil
}

func (store *fakeStore) RoleTimeout(_ context.Context, userID string) (*int, error) {
	return store.roleTimeouts[userID], nil
}

func (store *fakeStore) GlobalTimeout(_ context.Context) (*int, error) {
	return store.globalTimeout, nil
}

func (store *fakeStore) SetGlobalTimeout(_ context.Context, minutes int) error {
	store.globalTimeout = &minutes
	return nil
}

// ── BlacklistRepository ──

func (store *fakeStore) Record(_ context.Context, token string, naturalExpiry time.Time) error {
	if naturalExpiry.After(store.clock.Now()) {
		store.blacklist[token] = naturalExpiry
	}
	return nil
}

func (store *fakeStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	expiry, ok := store.blacklist[token]
	return ok && store.clock.Now().Before(expiry), nil
}

// ── VerificationTokenRepository ──

func (store *fakeStore) Set(_ context.Context, token, userID string, _ time.Duration) error {
	store.verifyTokens[token] = userID
	return nil
}

func (store *fakeStore) Get(_ context.Context, token string) (string, error) {
	if userID, ok := store.verifyTokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Verification token")
}

func (store *fakeStore) Delete(_ context.Context, token string) error {
	delete(store.verifyTokens, token)
	return nil
}

// ── Token provider fake ──

type issuedToken struct {
	userID    string
	expiresAt time.Time
}

// fakeTokens mints predictable token strings bound to the test clock.
type fakeTokens struct {
	clock   *testClock
	issued  map[string]issuedToken
	counter int
}

func newFakeTokens(clock *testClock) *fakeTokens {
	return &fakeTokens{clock: clock, issued: make(map[string]issuedToken)}
}

func (tokens *fakeTokens) Generate(userID string, timeToLive time.Duration) (string, error) {
	tokens.counter++
	token := fmt.Sprintf("token-%d", tokens.counter)
	tokens.issued[token] = issuedToken{userID: userID, expiresAt: tokens.clock.Now().Add(timeToLive)}
	return token, nil
}

func (tokens *fakeTokens) Verify(tokenString string) (*sec.SessionClaims, error) {
	entry, ok := tokens.issued[tokenString]
	if !ok {
		return nil, sec.ErrTokenMalformed
	}
	if tokens.clock.Now().After(entry.expiresAt) {
		return nil, sec.ErrTokenExpired
	}
	return &sec.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   entry.userID,
			ExpiresAt: jwt.NewNumericDate(entry.expiresAt),
		},
		UserID: entry.userID,
	}, nil
}

// ── Access resolver fake ──

type fakeAccess struct {
	role        string
	permissions []auth.PermissionGrant
}

func (access *fakeAccess) EffectivePermissions(_ context.Context, _ string) ([]auth.PermissionGrant, error) {
	return access.permissions, nil
}

func (access *fakeAccess) PrimaryRole(_ context.Context, _ string) (string, error) {
	return access.role, nil
}

// ── Test harness ──

type testClock struct {
	now time.Time
}

func (clock *testClock) Now() time.Time { return clock.now }

func (clock *testClock) Advance(delta time.Duration) { clock.now = clock.now.Add(delta) }

type testEnv struct {
	service *auth.Service
	store   *fakeStore
	tokens  *fakeTokens
	clock   *testClock
	access  *fakeAccess
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	store := newFakeStore(clock)
	tokens := newFakeTokens(clock)
	access := &fakeAccess{
		role: "editor",
		permissions: []auth.PermissionGrant{
			{Name: "revistas_read", Description: "Browse the catalog", Action: "read"},
		},
	}

	service := auth.NewService(store, store, store, store, store, store, tokens, access, guardWindow).
		WithClock(clock.Now)

	return &testEnv{service: service, store: store, tokens: tokens, clock: clock, access: access}
}

// addUser registers an active user with the given email and password.
func (env *testEnv) addUser(t *testing.T, email, password string) *auth.User {
	t.Helper()

	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		ID:           fmt.Sprintf("user-%d", len(env.store.usersByEmail)+1),
		Email:        email,
		PasswordHash: hash,
		Status:       auth.UserStatusActive,
	}
	env.store.usersByEmail[email] = user
	return user
}

func (env *testEnv) login(t *testing.T, email, password string) (*auth.LoginResult, error) {
	t.Helper()
	return env.service.Login(context.Background(), auth.LoginInput{
		Username:  email,
		Password:  password,
		IPAddress: "10.0.0.8",
	})
}

func lastLog(store *fakeStore) *auth.LoginLog {
	if len(store.logs) == 0 {
		return nil
	}
	return store.logs[len(store.logs)-1]
}

// ── Login ──

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	// 1. A token and the authorization payload are returned
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "editor", result.Role)
	require.Len(t, result.Permissions, 1)
	assert.Equal(t, "revistas_read", result.Permissions[0].Name)

	// 2. The reported duration is the default timeout minus the guard window
	expectedDuration := (time.Duration(auth.DefaultSessionTimeoutMin)*time.Minute - guardWindow).Minutes()
	assert.InDelta(t, expectedDuration, result.SessionDuration, 0.001)

	// 3. A session row backs the token
	session, err := env.store.FindLiveByToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	// 4. The outcome is audited with the token attached
	entry := lastLog(env.store)
	require.NotNil(t, entry)
	assert.Equal(t, auth.LoginStatusSuccess, entry.LoginStatus)
	assert.Equal(t, result.Token, entry.SessionToken)
}

func TestLogin_UnknownUserGetsGenericError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.login(t, "ghost@minaamp.gob.ve", "whatever")
	require.Error(t, err)

	// Unknown-user and wrong-password must be indistinguishable
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)
	assert.Equal(t, "Invalid username or password", appError.Message)

	entry := lastLog(env.store)
	require.NotNil(t, entry)
	assert.Equal(t, auth.LoginStatusFailed, entry.LoginStatus)
	assert.Nil(t, entry.UserID)
}

func TestLogin_WrongPasswordIncrementsCounter(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	_, err := env.login(t, "ana@minaamp.gob.ve", "wrong")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "Invalid username or password", appError.Message)

	assert.Equal(t, 1, user.FailedLoginAttempts)
	require.NotNil(t, user.LastFailedLogin)
	assert.Equal(t, env.clock.Now(), *user.LastFailedLogin)
}

func TestLogin_LockoutTripsBeforePasswordCheck(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	// 1. Three consecutive failures inside the window
	for i := 0; i < auth.MaxFailedLoginAttempts; i++ {
		_, err := env.login(t, "ana@minaamp.gob.ve", "wrong")
		require.Error(t, err)
		env.clock.Advance(time.Minute)
	}
	assert.Equal(t, auth.MaxFailedLoginAttempts, user.FailedLoginAttempts)

	// 2. The fourth attempt is denied even with the CORRECT password
	_, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)

	// 3. The account is suspended and the denial audited as blocked
	assert.Equal(t, auth.UserStatusSuspended, user.Status)
	entry := lastLog(env.store)
	require.NotNil(t, entry)
	assert.Equal(t, auth.LoginStatusBlocked, entry.LoginStatus)
}

func TestLogin_SuspensionIsSticky(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	user.Status = auth.UserStatusSuspended

	// Even with no recent failures at all, a suspended account stays locked
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	env.clock.Advance(24 * time.Hour)

	_, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)
	assert.Equal(t, "The account is suspended", appError.Message)
}

func TestLogin_StaleFailuresDoNotLock(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	// Three old failures, outside the 15-minute window
	user.FailedLoginAttempts = auth.MaxFailedLoginAttempts
	staleFailure := env.clock.Now().Add(-(auth.LockoutWindow + time.Minute))
	user.LastFailedLogin = &staleFailure

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	// A successful login always resets the counter
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.LastFailedLogin)
}

func TestLogin_DeletedAccountDenied(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	user.Status = auth.UserStatusDeleted

	_, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)
	assert.Equal(t, "The account has been deactivated", appError.Message)
}

func TestLogin_SecondSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	_, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	// The second attempt is rejected without even checking the password
	_, err = env.login(t, "ana@minaamp.gob.ve", "any-password-at-all")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusForbidden, appError.HTTPStatus)
	assert.Equal(t, "A session for this user is already open", appError.Message)
}

func TestLogin_StaleSessionRevokedThenAdmitted(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	first, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	// Let the first session pass its absolute expiry unnoticed by the gate
	env.clock.Advance(time.Duration(auth.DefaultSessionTimeoutMin)*time.Minute + time.Minute)

	second, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	// The stale row was transitioned to revoked, keeping the invariant:
	// at most one live session per user.
	liveCount := 0
	for _, session := range env.store.sessions {
		if !session.IsRevoked {
			liveCount++
		}
	}
	assert.Equal(t, 1, liveCount)
}

func TestLogin_TimeoutPrecedence(t *testing.T) {
	testCases := []struct {
		name        string
		userTier    *int
		roleTier    *int
		globalTier  *int
		expectedMin int
	}{
		{name: "user override wins", userTier: pointer.To(5), roleTier: pointer.To(45), globalTier: pointer.To(90), expectedMin: 5},
		{name: "role override beats global", roleTier: pointer.To(45), globalTier: pointer.To(90), expectedMin: 45},
		{name: "global when no overrides", globalTier: pointer.To(90), expectedMin: 90},
		{name: "fail-closed default", expectedMin: auth.DefaultSessionTimeoutMin},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
			user.SessionTimeoutMin = testCase.userTier
			env.store.roleTimeouts[user.ID] = testCase.roleTier
			env.store.globalTimeout = testCase.globalTier

			result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
			require.NoError(t, err)

			expected := (time.Duration(testCase.expectedMin)*time.Minute - guardWindow).Minutes()
			assert.InDelta(t, expected, result.SessionDuration, 0.001)

			session, err := env.store.FindLiveByToken(context.Background(), result.Token)
			require.NoError(t, err)
			assert.Equal(t,
				env.clock.Now().Add(time.Duration(testCase.expectedMin)*time.Minute),
				session.ExpiresAt,
			)
		})
	}
}

// ── Authenticate (request gate backend) ──

func TestAuthenticate_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	claims, err := env.service.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthenticate_BlacklistRunsBeforeVerification(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	// Deny-list the token directly; it is still cryptographically valid
	// and its session row is still live.
	env.store.blacklist[result.Token] = env.clock.Now().Add(time.Hour)

	_, err = env.service.Authenticate(context.Background(), result.Token)
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "Session expired. Please log in again", appError.Message)
}

func TestAuthenticate_MalformedToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Authenticate(context.Background(), "garbage")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)
	assert.Equal(t, "Invalid token", appError.Message)
}

func TestAuthenticate_NaturallyExpiredTokenIsAudited(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	env.clock.Advance(time.Duration(auth.DefaultSessionTimeoutMin)*time.Minute + time.Second)

	_, err = env.service.Authenticate(context.Background(), result.Token)
	require.Error(t, err)

	// The expiry is attached to the matching audit row
	entry := lastLog(env.store)
	require.NotNil(t, entry)
	require.NotNil(t, entry.LogoutType)
	assert.Equal(t, auth.LogoutTypeExpired, *entry.LogoutType)
}

func TestAuthenticate_RevokedSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	require.NoError(t, env.store.RevokeByToken(context.Background(), result.Token))

	_, err = env.service.Authenticate(context.Background(), result.Token)
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "Session not found or revoked", appError.Message)
}

func TestAuthenticate_NearExpiryGuardBoundaries(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	sessionLifetime := time.Duration(auth.DefaultSessionTimeoutMin) * time.Minute

	// 1. One second OUTSIDE the guard window: admitted
	env.clock.Advance(sessionLifetime - guardWindow - time.Second)
	_, err = env.service.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)

	// 2. One second INSIDE the guard window: rejected, revoked, audited
	env.clock.Advance(2 * time.Second)
	_, err = env.service.Authenticate(context.Background(), result.Token)
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "The session has expired. An automatic logout was performed", appError.Message)

	_, err = env.store.FindLiveByToken(context.Background(), result.Token)
	require.Error(t, err)

	entry := lastLog(env.store)
	require.NotNil(t, entry)
	require.NotNil(t, entry.LogoutType)
	assert.Equal(t, auth.LogoutTypeExpired, *entry.LogoutType)
}

// ── Logout ──

func TestLogout_BlacklistsTokenForItsNaturalLife(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(context.Background(), result.Token))

	// 1. The session row is revoked
	_, err = env.store.FindLiveByToken(context.Background(), result.Token)
	require.Error(t, err)

	// 2. The audit row carries the manual logout type
	entry := lastLog(env.store)
	require.NotNil(t, entry)
	require.NotNil(t, entry.LogoutType)
	assert.Equal(t, auth.LogoutTypeManual, *entry.LogoutType)

	// 3. The gate rejects the token via the blacklist, well before its
	//    natural expiry has elapsed
	_, err = env.service.Authenticate(context.Background(), result.Token)
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "Session expired. Please log in again", appError.Message)
}

func TestLogout_RejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.Logout(context.Background(), "forged-token")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusUnauthorized, appError.HTTPStatus)
}

// ── ForceLogout ──

func TestForceLogout_RevokesAllAndTagsAudit(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	result, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)

	require.NoError(t, env.service.ForceLogout(context.Background(), user.ID))

	// Every session of the user is revoked
	for _, session := range env.store.sessions {
		if session.UserID == user.ID {
			assert.True(t, session.IsRevoked)
		}
	}

	// The audit trail carries the forced logout tag
	entry := lastLog(env.store)
	require.NotNil(t, entry)
	require.NotNil(t, entry.LogoutType)
	assert.Equal(t, auth.LogoutTypeForced, *entry.LogoutType)

	// And the user can immediately open a fresh session
	second, err := env.login(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	require.NoError(t, err)
	assert.NotEqual(t, result.Token, second.Token)
}

// ── ChangePassword ──

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")

	// 1. Wrong current password is rejected
	err := env.service.ChangePassword(context.Background(), user.ID, "not-it", "N3w.Secret")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)

	// 2. Correct current password rotates the hash
	err = env.service.ChangePassword(context.Background(), user.ID, "Str0ng.Pass", "N3w.Secret")
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("N3w.Secret", user.PasswordHash))
	assert.False(t, sec.CheckPasswordHash("Str0ng.Pass", user.PasswordHash))
}

// ── VerifyEmail ──

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "ana@minaamp.gob.ve", "Str0ng.Pass")
	env.store.verifyTokens["verify-123"] = user.ID

	// 1. A valid token marks the account verified and is single-use
	require.NoError(t, env.service.VerifyEmail(context.Background(), "verify-123"))
	assert.True(t, user.IsEmailVerified)
	assert.NotContains(t, env.store.verifyTokens, "verify-123")

	// 2. Replaying the token fails
	err := env.service.VerifyEmail(context.Background(), "verify-123")
	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)
}

// ── Session settings ──

func TestGlobalTimeoutSettings(t *testing.T) {
	env := newTestEnv(t)

	// 1. Absent setting reads as NotFound
	_, err := env.service.GlobalTimeout(context.Background())
	require.Error(t, err)

	// 2. A positive value round-trips
	require.NoError(t, env.service.UpdateGlobalTimeout(context.Background(), 120))
	minutes, err := env.service.GlobalTimeout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, minutes)

	// 3. Zero and negative durations are rejected
	err = env.service.UpdateGlobalTimeout(context.Background(), 0)
	require.Error(t, err)
}
