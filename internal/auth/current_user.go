package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const currentUserKey = "current_user"

// CurrentUserResolver loads the authenticated user from the session cookie.
// It never rejects a request: an absent, invalid, or stale token simply
// leaves the request unauthenticated, and each operation decides what that
// means for itself.
type CurrentUserResolver struct {
	issuer *SessionIssuer
	users  repository.UserRepository
	logger *zap.Logger
}

// NewCurrentUserResolver constructs the resolver middleware.
func NewCurrentUserResolver(issuer *SessionIssuer, users repository.UserRepository, logger *zap.Logger) *CurrentUserResolver {
	return &CurrentUserResolver{issuer: issuer, users: users, logger: logger}
}

// Handle resolves the caller identity and stores it in request locals.
func (r *CurrentUserResolver) Handle(c *fiber.Ctx) error {
	token := c.Cookies(r.issuer.CookieName())
	if token == "" {
		return c.Next()
	}

	claims, err := r.issuer.TokenManager().ParseToken(token)
	if err != nil {
		r.logger.Debug("session token rejected", zap.Error(err))
		return c.Next()
	}

	user, err := r.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		r.logger.Debug("session user not found", zap.String("user_id", claims.UserID), zap.Error(err))
		return c.Next()
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

// UserFromContext retrieves the resolved user, if any.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(currentUserKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
