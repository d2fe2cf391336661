// Copyright (c) 2026 Hemeroteca. All rights reserved.

package users_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/auth"
	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/sec"
	"hemeroteca/internal/users"
	"hemeroteca/pkg/pagination"
)

type fakeAdminRepo struct {
	byID map[string]*auth.User
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{byID: make(map[string]*auth.User)}
}

func (r *fakeAdminRepo) Create(_ context.Context, user *auth.User) error {
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return apperr.Conflict("Resource already exists")
		}
	}
	r.byID[user.ID] = user
	return nil
}

func (r *fakeAdminRepo) List(_ context.Context, params pagination.Params) ([]auth.User, int, error) {
	var out []auth.User
	for _, user := range r.byID {
		if user.DeletedAt == nil {
			out = append(out, *user)
		}
	}
	total := len(out)

	offset := params.Offset()
	if offset > total {
		offset = total
	}
	end := offset + params.Limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *fakeAdminRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := r.byID[id]
	if !ok || user.DeletedAt != nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (r *fakeAdminRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range r.byID {
		if user.Email == email && user.DeletedAt == nil {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

func (r *fakeAdminRepo) Update(_ context.Context, user *auth.User) error {
	r.byID[user.ID] = user
	return nil
}

func (r *fakeAdminRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	r.byID[userID].PasswordHash = newHash
	return nil
}

func (r *fakeAdminRepo) SetSessionTimeout(_ context.Context, userID string, minutes int) error {
	r.byID[userID].SessionTimeoutMin = &minutes
	return nil
}

func (r *fakeAdminRepo) SoftDelete(_ context.Context, userID string) error {
	now := time.Now()
	r.byID[userID].DeletedAt = &now
	r.byID[userID].Status = auth.UserStatusDeleted
	return nil
}

func (r *fakeAdminRepo) HardDelete(_ context.Context, userID string) error {
	delete(r.byID, userID)
	return nil
}

type fakeTokenStore struct {
	byToken map[string]string
}

func (s *fakeTokenStore) Set(_ context.Context, token, userID string, _ time.Duration) error {
	s.byToken[token] = userID
	return nil
}

func (s *fakeTokenStore) Get(_ context.Context, token string) (string, error) {
	userID, ok := s.byToken[token]
	if !ok {
		return "", apperr.NotFound("Verification token")
	}
	return userID, nil
}

func (s *fakeTokenStore) Delete(_ context.Context, token string) error {
	delete(s.byToken, token)
	return nil
}

type fakeMailer struct {
	sent []string // recipient addresses
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	if m.fail {
		return errors.New("relay down")
	}
	m.sent = append(m.sent, to)
	return nil
}

type adminEnv struct {
	repo    *fakeAdminRepo
	tokens  *fakeTokenStore
	mailer  *fakeMailer
	service *users.Service
	ctx     context.Context
}

func newAdminEnv() *adminEnv {
	env := &adminEnv{
		repo:   newFakeAdminRepo(),
		tokens: &fakeTokenStore{byToken: make(map[string]string)},
		mailer: &fakeMailer{},
		ctx:    context.Background(),
	}
	env.service = users.NewService(env.repo, env.tokens, env.mailer, "http://intranet.example/verify-email")
	return env
}

func validInput() users.CreateInput {
	return users.CreateInput{
		Email:     "ana@minaamp.gob.ve",
		Cedula:    "V-12345678",
		FirstName: "Ana",
		LastName:  "Paredes",
		Password:  "Str0ng.Pass",
	}
}

func TestCreate_HashesPasswordAndStoresToken(t *testing.T) {
	env := newAdminEnv()

	user, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	stored := env.repo.byID[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "Str0ng.Pass", stored.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("Str0ng.Pass", stored.PasswordHash))
	assert.Equal(t, auth.UserStatusActive, stored.Status)
	assert.False(t, stored.IsEmailVerified)

	// One verification token exists and points at the new account.
	require.Len(t, env.tokens.byToken, 1)
	for _, userID := range env.tokens.byToken {
		assert.Equal(t, user.ID, userID)
	}

	assert.Equal(t, []string{"ana@minaamp.gob.ve"}, env.mailer.sent)
}

func TestCreate_MailOutageDoesNotLoseAccount(t *testing.T) {
	env := newAdminEnv()
	env.mailer.fail = true

	user, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	assert.NotNil(t, env.repo.byID[user.ID])
	// The token survives so the link can be resent later.
	assert.Len(t, env.tokens.byToken, 1)
}

func TestCreate_DuplicateEmailConflicts(t *testing.T) {
	env := newAdminEnv()

	_, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	_, err = env.service.Create(env.ctx, validInput())
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

func TestList_Paginates(t *testing.T) {
	env := newAdminEnv()
	for i := 0; i < 3; i++ {
		input := validInput()
		input.Email = fmt.Sprintf("user%d@minaamp.gob.ve", i)
		_, err := env.service.Create(env.ctx, input)
		require.NoError(t, err)
	}

	page, metadata, err := env.service.List(env.ctx, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 3, metadata.Total)
	assert.Equal(t, 2, metadata.TotalPages)

	lastPage, _, err := env.service.List(env.ctx, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, lastPage, 1)
}

func TestSetSessionTimeout(t *testing.T) {
	env := newAdminEnv()
	user, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, env.service.SetSessionTimeout(env.ctx, user.ID, 45))
	require.NotNil(t, env.repo.byID[user.ID].SessionTimeoutMin)
	assert.Equal(t, 45, *env.repo.byID[user.ID].SessionTimeoutMin)

	err = env.service.SetSessionTimeout(env.ctx, user.ID, -5)
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", apperr.As(err).Code)
}

func TestResetPassword(t *testing.T) {
	env := newAdminEnv()
	user, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, env.service.ResetPassword(env.ctx, user.Email, "N3w.Secret"))
	assert.True(t, sec.CheckPasswordHash("N3w.Secret", env.repo.byID[user.ID].PasswordHash))

	err = env.service.ResetPassword(env.ctx, "nobody@minaamp.gob.ve", "N3w.Secret")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestDelete_SoftThenInvisible(t *testing.T) {
	env := newAdminEnv()
	user, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, env.service.Delete(env.ctx, user.ID))

	listed, metadata, err := env.service.List(env.ctx, pagination.Params{Page: 1, Limit: pagination.DefaultLimit})
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Zero(t, metadata.Total)

	// Deleting again is a 404: the account is already retired.
	err = env.service.Delete(env.ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestDeletePermanently(t *testing.T) {
	env := newAdminEnv()
	user, err := env.service.Create(env.ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, env.service.DeletePermanently(env.ctx, user.ID))
	assert.Empty(t, env.repo.byID)
}
