// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package users implements account administration: creation with email
// verification, listing, profile updates, deletion, and the per-user
// session duration override.
//
// The login flow itself lives in the auth package; this package only
// manages the records it authenticates against.
package users

import (
	"context"
	"fmt"
	"log/slog"

	"hemeroteca/internal/auth"
	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/ctxutil"
	"hemeroteca/internal/platform/mail"
	"hemeroteca/internal/platform/sec"
	"hemeroteca/pkg/pagination"
	"hemeroteca/pkg/uuid"
)

// verificationTokenBytes is the entropy of an email verification token.
const verificationTokenBytes = 32

// Service implements the account administration use cases.
type Service struct {
	repository     AdminRepository
	verifyTokens   auth.VerificationTokenRepository
	mailer         mail.Sender
	verifyLinkBase string
}

// NewService constructs a new users [Service] with necessary dependencies.
func NewService(
	repository AdminRepository,
	verifyTokens auth.VerificationTokenRepository,
	mailer mail.Sender,
	verifyLinkBase string,
) *Service {
	return &Service{
		repository:     repository,
		verifyTokens:   verifyTokens,
		mailer:         mailer,
		verifyLinkBase: verifyLinkBase,
	}
}

// CreateInput holds the writable fields of a new account.
type CreateInput struct {
	Email     string
	Cedula    string
	FirstName string
	LastName  string
	Password  string
}

// Create registers a new account and dispatches its verification email.
//
// The account is created unverified; a single-use token is stored in the
// volatile token store and mailed to the new address. A mail relay outage
// must not lose the account, so the dispatch is best-effort: failures are
// logged and the token stays valid for a later manual resend.
func (service *Service) Create(ctx context.Context, input CreateInput) (*auth.User, error) {
	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("users_service_hash_failed: %w", err))
	}

	user := &auth.User{
		ID:           uuid.New(),
		Email:        input.Email,
		Cedula:       input.Cedula,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: passwordHash,
		Status:       auth.UserStatusActive,
	}

	if err := service.repository.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := sec.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("users_service_token_failed: %w", err))
	}
	if err := service.verifyTokens.Set(ctx, token, user.ID, auth.VerificationTokenTTL); err != nil {
		return nil, err
	}

	service.sendVerificationEmail(ctx, user, token)
	return user, nil
}

// sendVerificationEmail mails the verification link for a freshly created
// account. Failures are logged, never propagated.
func (service *Service) sendVerificationEmail(ctx context.Context, user *auth.User, token string) {
	subject := "Verifique su cuenta de la Hemeroteca"
	body := fmt.Sprintf(
		"Estimado(a) %s %s,\n\n"+
			"Su cuenta ha sido creada. Para activarla, verifique su correo en el siguiente enlace:\n\n"+
			"%s?token=%s\n\n"+
			"El enlace vence en 24 horas.\n",
		user.FirstName, user.LastName, service.verifyLinkBase, token,
	)

	if err := service.mailer.Send(ctx, user.Email, subject, body); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "users_verification_email_failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// List returns one page of active accounts with pagination metadata.
func (service *Service) List(ctx context.Context, params pagination.Params) ([]auth.User, pagination.Meta, error) {
	accounts, total, err := service.repository.List(ctx, params)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return accounts, pagination.NewMeta(params.Page, params.Limit, total), nil
}

// UpdateInput holds the mutable profile fields of an account.
type UpdateInput struct {
	Email     string
	Cedula    string
	FirstName string
	LastName  string
}

// Update replaces the profile fields of an account.
func (service *Service) Update(ctx context.Context, userID string, input UpdateInput) (*auth.User, error) {
	user, err := service.repository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Email = input.Email
	user.Cedula = input.Cedula
	user.FirstName = input.FirstName
	user.LastName = input.LastName

	if err := service.repository.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetSessionTimeout replaces the per-user session duration override.
//
// The override is the highest-precedence tier of the timeout resolution,
// so it takes effect on the user's next login.
func (service *Service) SetSessionTimeout(ctx context.Context, userID string, minutes int) error {
	if minutes <= 0 {
		return apperr.BadRequest("The duration must be a positive number of minutes")
	}

	if _, err := service.repository.FindByID(ctx, userID); err != nil {
		return err
	}

	return service.repository.SetSessionTimeout(ctx, userID, minutes)
}

// ResetPassword replaces an account's password by email, without checking
// the previous one. Administrative recovery path for users locked out of
// their mailbox.
func (service *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := service.repository.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("users_service_hash_failed: %w", err))
	}

	return service.repository.UpdatePassword(ctx, user.ID, newHash)
}

// Delete retires an account. The row survives for the audit trail; the
// email can never log in again and every live session dies with it.
func (service *Service) Delete(ctx context.Context, userID string) error {
	if _, err := service.repository.FindByID(ctx, userID); err != nil {
		return err
	}
	return service.repository.SoftDelete(ctx, userID)
}

// DeletePermanently removes an account and its dependent rows.
func (service *Service) DeletePermanently(ctx context.Context, userID string) error {
	return service.repository.HardDelete(ctx, userID)
}
