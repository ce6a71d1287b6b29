package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/internal/service"
	"github.com/suteetoe/notes-service/pkg/logger"
	"go.uber.org/zap"
)

// AuthHandler serves /auth
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Tenant   string `json:"tenant" validate:"omitempty,max=50"`
}

// Login exchanges credentials for a session token
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, req.Tenant)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Login successful",
		zap.String("user_id", result.Identity.ID.String()),
		zap.String("tenant_slug", result.Identity.TenantSlug))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.Identity,
	})
}

// Logout is stateless; the client discards its token
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Logout successful",
		"note":    "Please remove the token from client storage",
	})
}

// Profile returns the authenticated identity
func (h *AuthHandler) Profile(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": identity})
}

// Verify confirms the token is still valid
func (h *AuthHandler) Verify(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "user": identity})
}
