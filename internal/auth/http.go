// Copyright (c) 2026 Hemeroteca. All rights reserved.

// HTTP delivery layer for the session lifecycle use cases.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON Request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries. Route paths and
// per-route permission names are declared centrally in internal/api, so
// this file only exports the handler methods.
package auth

import (
	"net/http"

	"hemeroteca/internal/platform/middleware"
	requestutil "hemeroteca/internal/platform/request"
	"hemeroteca/internal/platform/respond"
	"hemeroteca/internal/platform/validate"
)

// Handler implements the session lifecycle HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// loginRequest represents the JSON payload expected at POST /login.
//
// The username field carries the account email; the legacy field name is
// kept for frontend compatibility.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /login requests.
//
// # Returns
//   - Writes HTTP 200 with {token, sessionDuration, role, permissions}.
//   - Writes HTTP 401 on credential failures (always the generic message).
//   - Writes HTTP 403 for open sessions, suspended, retired, or locked accounts.
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("username", input.Username).
		Required("password", input.Password)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Username:  input.Username,
		Password:  input.Password,
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, result)
}

// Logout handles POST /logout requests.
//
// The bearer token identifies the session; there is no request body.
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.BearerToken(request)
	if token == "" {
		respond.Error(writer, request, validate.RequiredError("token", "no token provided"))
		return
	}

	if err := handler.authService.Logout(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Session closed successfully"})
}

// forceLogoutRequest represents the JSON payload expected at POST /force-logout.
type forceLogoutRequest struct {
	UserID string `json:"userId"`
}

// ForceLogout handles POST /force-logout requests.
//
// Mounted behind the gate with the force_logout permission.
func (handler *Handler) ForceLogout(writer http.ResponseWriter, request *http.Request) {
	var input forceLogoutRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("userId", input.UserID).UUID("userId", input.UserID)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.authService.ForceLogout(request.Context(), input.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Forced logout completed successfully"})
}

// changePasswordRequest represents the JSON payload at POST /change-password.
type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /change-password requests.
//
// # Returns
//   - Writes HTTP 200 on success.
//   - Writes HTTP 422 with the list of policy violations when the new
//     password is too weak.
//   - Writes HTTP 400 when the current password does not match.
func (handler *Handler) ChangePassword(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Identity From Context ──────────────────────────────────────────

	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Payload Extraction & Policy Check ──────────────────────────────

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("oldPassword", input.OldPassword).
		Password("newPassword", input.NewPassword)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	if err := handler.authService.ChangePassword(request.Context(), userID, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Password changed successfully"})
}

// verifyEmailRequest represents the JSON payload at POST /verify-email.
type verifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail handles POST /verify-email requests. Public route.
func (handler *Handler) VerifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("token", input.Token)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Email verified successfully"})
}

// GetGlobalTimeout handles GET /session-settings/global requests.
func (handler *Handler) GetGlobalTimeout(writer http.ResponseWriter, request *http.Request) {
	minutes, err := handler.authService.GlobalTimeout(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{"timeout": minutes})
}

// timeoutRequest represents the JSON payload for session-duration updates.
type timeoutRequest struct {
	Timeout int `json:"timeout"`
}

// UpdateGlobalTimeout handles PATCH /session-settings/global requests.
func (handler *Handler) UpdateGlobalTimeout(writer http.ResponseWriter, request *http.Request) {
	var input timeoutRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Positive("timeout", input.Timeout)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.authService.UpdateGlobalTimeout(request.Context(), input.Timeout); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Global session duration updated successfully"})
}
