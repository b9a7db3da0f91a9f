package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/config"
)

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "auth-token" {
			return cookie
		}
	}
	return nil
}

func TestCookieSinkSetsSessionCookie(t *testing.T) {
	issuer := NewSessionIssuer(config.AuthConfig{
		JWTSecret:         "test-secret",
		SessionTTLMinutes: 5,
		CookieName:        "auth-token",
	})

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		token, expiresAt, err := issuer.Sign("user-1")
		if err != nil {
			return err
		}
		issuer.Sink(c).SetToken(token, expiresAt)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	cookie := sessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HTTP-only")
	}
	if _, err := issuer.TokenManager().ParseToken(cookie.Value); err != nil {
		t.Fatalf("cookie value is not a valid token: %v", err)
	}
}

func TestCookieSinkClearsSessionCookie(t *testing.T) {
	issuer := NewSessionIssuer(config.AuthConfig{
		JWTSecret:         "test-secret",
		SessionTTLMinutes: 5,
		CookieName:        "auth-token",
	})

	app := fiber.New()
	app.Post("/logout", func(c *fiber.Ctx) error {
		issuer.Sink(c).ClearToken()
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/logout", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	cookie := sessionCookie(t, resp)
	if cookie == nil {
		t.Fatal("clearing must emit an expired cookie")
	}
	if cookie.Value != "" {
		t.Fatalf("cleared cookie still carries value %q", cookie.Value)
	}
	if cookie.Expires.After(time.Now()) {
		t.Fatal("cleared cookie must be expired")
	}
}
