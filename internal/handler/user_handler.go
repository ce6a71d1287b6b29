package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/internal/service"
)

// UserHandler serves /users, admin only
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates the user handler
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// Invite creates a user in the admin's tenant with the default password
func (h *UserHandler) Invite(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req inviteRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Invite(c.Request().Context(), identity, req.Email, req.Role)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User invited successfully",
		"user":    user,
		"note":    "The invited user signs in with the default invite password",
	})
}

// List returns a page of the tenant's users
func (h *UserHandler) List(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	users, pagination, err := h.users.List(c.Request().Context(), identity, pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users":      users,
		"pagination": pagination,
	})
}

// UpdateRole changes another user's role. The role itself is checked after
// the self-action guard, so changing your own role always fails the same way.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := service.ParseID(c.Param("id"), "user")
	if err != nil {
		return err
	}
	var req updateRoleRequest
	if err := decode(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateRole(c.Request().Context(), identity, id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User role updated successfully",
		"user":    user,
	})
}

// Remove deletes another user of the tenant
func (h *UserHandler) Remove(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := service.ParseID(c.Param("id"), "user")
	if err != nil {
		return err
	}

	if err := h.users.Remove(c.Request().Context(), identity, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":         "User removed successfully",
		"removed_user_id": id,
	})
}
