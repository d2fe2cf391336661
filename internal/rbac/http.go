// Copyright (c) 2026 Hemeroteca. All rights reserved.

package rbac

import (
	"net/http"

	requestutil "hemeroteca/internal/platform/request"
	"hemeroteca/internal/platform/respond"
	"hemeroteca/internal/platform/validate"
)

// Handler implements the role/permission administration HTTP endpoints.
//
// Route paths and per-route permission names are declared centrally in
// internal/api; this type only exports the handler methods.
type Handler struct {
	rbacService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{rbacService: service}
}

// roleRequest represents the JSON payload for role creation and updates.
type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateRole handles POST /roles requests.
func (handler *Handler) CreateRole(writer http.ResponseWriter, request *http.Request) {
	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("name", input.Name).MaxLen("name", input.Name, 100)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	role, err := handler.rbacService.CreateRole(request.Context(), RoleInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, role)
}

// ListRoles handles GET /roles requests.
func (handler *Handler) ListRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.rbacService.ListRoles(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, roles)
}

// UpdateRole handles PUT /roles/{roleId} requests.
func (handler *Handler) UpdateRole(writer http.ResponseWriter, request *http.Request) {
	roleID := requestutil.Param(request, "roleId")

	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("roleId", roleID).Required("name", input.Name)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.rbacService.UpdateRole(request.Context(), roleID, RoleInput(input)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Role updated successfully"})
}

// timeoutRequest represents the JSON payload for session-duration overrides.
type timeoutRequest struct {
	Timeout int `json:"timeout"`
}

// SetRoleSessionTimeout handles PATCH /roles/{roleId}/session-timeout requests.
func (handler *Handler) SetRoleSessionTimeout(writer http.ResponseWriter, request *http.Request) {
	roleID := requestutil.Param(request, "roleId")

	var input timeoutRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("roleId", roleID).Positive("timeout", input.Timeout)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.rbacService.SetRoleSessionTimeout(request.Context(), roleID, input.Timeout); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Role session duration updated successfully"})
}

// DeleteRole handles DELETE /roles/{roleId} requests (soft delete).
func (handler *Handler) DeleteRole(writer http.ResponseWriter, request *http.Request) {
	roleID := requestutil.Param(request, "roleId")

	if err := handler.rbacService.DeleteRole(request.Context(), roleID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Role deleted successfully"})
}

// DeleteRolePermanently handles DELETE /roles/{roleId}/permanent requests.
func (handler *Handler) DeleteRolePermanently(writer http.ResponseWriter, request *http.Request) {
	roleID := requestutil.Param(request, "roleId")

	if err := handler.rbacService.DeleteRolePermanently(request.Context(), roleID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Role permanently deleted"})
}

// permissionRequest represents the JSON payload for permission creation.
type permissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

// CreatePermission handles POST /permissions requests.
func (handler *Handler) CreatePermission(writer http.ResponseWriter, request *http.Request) {
	var input permissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("name", input.Name).MaxLen("name", input.Name, 100)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	permission, err := handler.rbacService.CreatePermission(request.Context(), PermissionInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, permission)
}

// ListPermissions handles GET /permissions requests.
func (handler *Handler) ListPermissions(writer http.ResponseWriter, request *http.Request) {
	permissions, err := handler.rbacService.ListPermissions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, permissions)
}

// UpdatePermission handles PUT /permissions/{permissionId} requests.
func (handler *Handler) UpdatePermission(writer http.ResponseWriter, request *http.Request) {
	permissionID := requestutil.Param(request, "permissionId")

	var input permissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("permissionId", permissionID).Required("name", input.Name)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.rbacService.UpdatePermission(request.Context(), permissionID, PermissionInput(input)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Permission updated successfully"})
}

// DeletePermission handles DELETE /permissions/{permissionId} requests (soft delete).
func (handler *Handler) DeletePermission(writer http.ResponseWriter, request *http.Request) {
	permissionID := requestutil.Param(request, "permissionId")

	if err := handler.rbacService.DeletePermission(request.Context(), permissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Permission deleted successfully"})
}

// DeletePermissionPermanently handles DELETE /permissions/{permissionId}/permanent requests.
func (handler *Handler) DeletePermissionPermanently(writer http.ResponseWriter, request *http.Request) {
	permissionID := requestutil.Param(request, "permissionId")

	if err := handler.rbacService.DeletePermissionPermanently(request.Context(), permissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]string{"message": "Permission permanently deleted"})
}

// userRoleRequest represents the JSON payload for user-role assignments.
type userRoleRequest struct {
	UserID string `json:"userId"`
	RoleID string `json:"roleId"`
}

// AssignRoleToUser handles POST /assign-role requests.
func (handler *Handler) AssignRoleToUser(writer http.ResponseWriter, request *http.Request) {
	var input userRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("userId", input.UserID).UUID("roleId", input.RoleID)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.rbacService.AssignRoleToUser(request.Context(), input.UserID, input.RoleID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Role assigned to user successfully"})
}

// RemoveRoleFromUser handles POST /remove-role requests.
func (handler *Handler) RemoveRoleFromUser(writer http.ResponseWriter, request *http.Request) {
	var input userRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.rbacService.RemoveRoleFromUser(request.Context(), input.UserID, input.RoleID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Role removed from user successfully"})
}

// rolePermissionRequest represents the JSON payload for role-permission links.
type rolePermissionRequest struct {
	RoleID       string `json:"roleId"`
	PermissionID string `json:"permissionId"`
}

// AssignPermissionToRole handles POST /assign-permission requests.
func (handler *Handler) AssignPermissionToRole(writer http.ResponseWriter, request *http.Request) {
	var input rolePermissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("roleId", input.RoleID).UUID("permissionId", input.PermissionID)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.rbacService.AssignPermissionToRole(request.Context(), input.RoleID, input.PermissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Permission assigned to role successfully"})
}

// RemovePermissionFromRole handles POST /remove-permission requests.
func (handler *Handler) RemovePermissionFromRole(writer http.ResponseWriter, request *http.Request) {
	var input rolePermissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.rbacService.RemovePermissionFromRole(request.Context(), input.RoleID, input.PermissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Permission removed from role successfully"})
}

// userPermissionRequest represents the JSON payload for direct grants.
type userPermissionRequest struct {
	UserID       string `json:"userId"`
	PermissionID string `json:"permissionId"`
}

// AssignPermissionToUser handles POST /assign-user-permission requests.
func (handler *Handler) AssignPermissionToUser(writer http.ResponseWriter, request *http.Request) {
	var input userPermissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("userId", input.UserID).UUID("permissionId", input.PermissionID)
	if validator.HasErrors() {
		respond.Error(writer, request, validator.Err())
		return
	}

	if err := handler.rbacService.AssignPermissionToUser(request.Context(), input.UserID, input.PermissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Permission assigned to user successfully"})
}

// RemovePermissionFromUser handles POST /remove-user-permission requests.
func (handler *Handler) RemovePermissionFromUser(writer http.ResponseWriter, request *http.Request) {
	var input userPermissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.rbacService.RemovePermissionFromUser(request.Context(), input.UserID, input.PermissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Permission removed from user successfully"})
}

// RolePermissionMatrix handles GET /roles-permissions requests.
func (handler *Handler) RolePermissionMatrix(writer http.ResponseWriter, request *http.Request) {
	matrix, err := handler.rbacService.RolePermissionMatrix(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, matrix)
}

// UserPermissionMatrix handles GET /users-permissions requests.
func (handler *Handler) UserPermissionMatrix(writer http.ResponseWriter, request *http.Request) {
	matrix, err := handler.rbacService.UserPermissionMatrix(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, matrix)
}
