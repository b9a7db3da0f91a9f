package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/config"
)

// SessionSink receives issued session tokens. The production sink is the
// response cookie of the active request; tests substitute an in-memory one.
type SessionSink interface {
	SetToken(token string, expiresAt time.Time)
	ClearToken()
}

// SessionIssuer signs session tokens and binds them to HTTP cookies.
type SessionIssuer struct {
	tokens       *TokenManager
	cookieName   string
	cookieSecure bool
}

// NewSessionIssuer builds the issuer from auth configuration.
func NewSessionIssuer(cfg config.AuthConfig) *SessionIssuer {
	return &SessionIssuer{
		tokens:       NewTokenManager(cfg.JWTSecret, cfg.SessionTTL()),
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
	}
}

// Sign issues a signed session token for the user.
func (si *SessionIssuer) Sign(userID string) (string, time.Time, error) {
	return si.tokens.GenerateToken(userID)
}

// TokenManager exposes the underlying manager for the current-user resolver.
func (si *SessionIssuer) TokenManager() *TokenManager {
	return si.tokens
}

// CookieName returns the session cookie name.
func (si *SessionIssuer) CookieName() string {
	return si.cookieName
}

// Sink returns a cookie-backed sink for the request.
func (si *SessionIssuer) Sink(c *fiber.Ctx) SessionSink {
	return &cookieSink{issuer: si, ctx: c}
}

type cookieSink struct {
	issuer *SessionIssuer
	ctx    *fiber.Ctx
}

func (s *cookieSink) SetToken(token string, expiresAt time.Time) {
	s.ctx.Cookie(&fiber.Cookie{
		Name:     s.issuer.cookieName,
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.issuer.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func (s *cookieSink) ClearToken() {
	s.ctx.Cookie(&fiber.Cookie{
		Name:     s.issuer.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.issuer.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
