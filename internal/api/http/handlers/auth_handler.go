package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthHandler exposes registration, login, logout and identity endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	issuer *auth.SessionIssuer
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, issuer *auth.SessionIssuer) *AuthHandler {
	return &AuthHandler{auth: authService, issuer: issuer}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result := h.auth.Register(c.Context(), h.issuer.Sink(c), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	return c.JSON(result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result := h.auth.Login(c.Context(), h.issuer.Sink(c), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	return c.JSON(result)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	result := h.auth.Logout(c.Context(), h.issuer.Sink(c))
	return c.JSON(result)
}

// Me handles GET /auth/me, reporting the resolved session identity.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not logged in")
	}
	return c.JSON(fiber.Map{"data": dto.CurrentUserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}})
}
