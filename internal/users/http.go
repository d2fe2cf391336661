// Copyright (c) 2026 Hemeroteca. All rights reserved.

package users

import (
	"net/http"

	requestutil "hemeroteca/internal/platform/request"
	"hemeroteca/internal/platform/respond"
	"hemeroteca/internal/platform/validate"
	"hemeroteca/pkg/pagination"
)

// Handler implements the account administration HTTP endpoints.
type Handler struct {
	userService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{userService: service}
}

// createUserRequest represents the JSON payload for account creation.
type createUserRequest struct {
	Email     string `json:"email"`
	Cedula    string `json:"cedula"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// Create handles POST /users requests.
func (handler *Handler) Create(writer http.ResponseWriter, request *http.Request) {
	var input createUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("email", input.Email).Email("email", input.Email).
		Required("cedula", input.Cedula).MaxLen("cedula", input.Cedula, 20).
		Required("firstName", input.FirstName).MaxLen("firstName", input.FirstName, 100).
		Required("lastName", input.LastName).MaxLen("lastName", input.LastName, 100).
		Password("password", input.Password)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	user, err := handler.userService.Create(request.Context(), CreateInput{
		Email:     input.Email,
		Cedula:    input.Cedula,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Password:  input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

// List handles GET /users requests. Supports ?page= and ?limit=.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, metadata, err := handler.userService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, users, metadata)
}

// updateUserRequest represents the JSON payload for profile updates.
type updateUserRequest struct {
	Email     string `json:"email"`
	Cedula    string `json:"cedula"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Update handles PUT /users/{userId} requests.
func (handler *Handler) Update(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userId")

	var input updateUserRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		UUID("userId", userID).
		Required("email", input.Email).Email("email", input.Email).
		Required("cedula", input.Cedula).
		Required("firstName", input.FirstName).
		Required("lastName", input.LastName)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	user, err := handler.userService.Update(request.Context(), userID, UpdateInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// timeoutRequest represents the JSON payload for the per-user override.
type timeoutRequest struct {
	Timeout int `json:"timeout"`
}

// SetSessionTimeout handles PATCH /users/{userId}/session-timeout requests.
func (handler *Handler) SetSessionTimeout(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userId")

	var input timeoutRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("userId", userID).Positive("timeout", input.Timeout)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.userService.SetSessionTimeout(request.Context(), userID, input.Timeout); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "User session duration updated successfully"})
}

// fastPasswordRequest represents the JSON payload for an administrative
// password reset.
type fastPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// FastPassword handles POST /fast-password requests.
func (handler *Handler) FastPassword(writer http.ResponseWriter, request *http.Request) {
	var input fastPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("email", input.Email).Email("email", input.Email).
		Password("newPassword", input.NewPassword)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.userService.ResetPassword(request.Context(), input.Email, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Password updated successfully"})
}

// Delete handles DELETE /users/{userId} requests (soft delete).
func (handler *Handler) Delete(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userId")

	if err := handler.userService.Delete(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "User deleted successfully"})
}

// DeletePermanently handles DELETE /users/{userId}/permanent requests.
func (handler *Handler) DeletePermanently(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "userId")

	if err := handler.userService.DeletePermanently(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "User permanently deleted"})
}
