package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/eventlog"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = "u-" + u.Email
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	m.byID[u.ID] = &stored
	m.byEmail[u.Email] = &stored
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

type memTicketRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Ticket
}

func (m *memTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	m.byID[t.ID] = &stored
	return nil
}

func (m *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byID[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memTicketRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.byID {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTicketRepo) SetStatus(_ context.Context, id int64, status domain.TicketStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

type memViewCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newMemViewCache() *memViewCache {
	return &memViewCache{entries: map[string][]byte{}}
}

func (c *memViewCache) key(path, variant string) string { return path + "#" + variant }

func (c *memViewCache) Get(_ context.Context, path, variant string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[c.key(path, variant)]
	if ok {
		c.hits++
	}
	return payload, ok
}

func (c *memViewCache) Set(_ context.Context, path, variant string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(path, variant)] = payload
}

func (c *memViewCache) Invalidate(_ context.Context, paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range paths {
		for key := range c.entries {
			if strings.HasPrefix(key, path+"#") {
				delete(c.entries, key)
			}
		}
	}
}

func newTestApp(t *testing.T) (*fiber.App, *memViewCache) {
	t.Helper()

	users := &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
	tickets := &memTicketRepo{byID: map[int64]*domain.Ticket{}}
	views := newMemViewCache()
	logger := zap.NewNop()

	issuer := auth.NewSessionIssuer(config.AuthConfig{
		JWTSecret:         "test-secret",
		SessionTTLMinutes: 5,
		CookieName:        "auth-token",
	})
	resolver := auth.NewCurrentUserResolver(issuer, users, logger)

	authService := service.NewAuthService(4, service.AuthDependencies{
		UserRepo:      users,
		SessionIssuer: issuer,
		EventLog:      eventlog.NewNop(),
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		ViewCache:  views,
		EventLog:   eventlog.NewNop(),
	})

	authHandler := NewAuthHandler(authService, issuer)
	ticketsHandler := NewTicketsHandler(ticketService, views)

	// mirror the error-handling middleware's DomainError rendering
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}})
		},
	})
	app.Post("/auth/register", authHandler.Register)
	app.Post("/auth/login", authHandler.Login)
	app.Post("/auth/logout", authHandler.Logout)
	app.Get("/auth/me", resolver.Handle, authHandler.Me)
	ticketGroup := app.Group("/tickets", resolver.Handle)
	ticketGroup.Post("", ticketsHandler.CreateTicket)
	ticketGroup.Get("", ticketsHandler.ListTickets)
	ticketGroup.Get("/:id", ticketsHandler.GetTicket)
	ticketGroup.Post("/:id/close", ticketsHandler.CloseTicket)

	return app, views
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, cookie *http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	var decoded map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decode %q: %v", string(data), err)
		}
	}
	return resp, decoded
}

func authCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "auth-token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("auth cookie not set")
	return nil
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app, views := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret"}`, nil)
	if body["success"] != true {
		t.Fatalf("register failed: %v", body)
	}
	cookie := authCookie(t, resp)

	_, me := doJSON(t, app, "GET", "/auth/me", "", cookie)
	user, _ := me["data"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Fatalf("unexpected identity: %v", me)
	}

	_, created := doJSON(t, app, "POST", "/tickets",
		`{"subject":"Printer broken","description":"No toner","priority":"high"}`, cookie)
	if created["success"] != true || created["message"] != "Ticket created successfully" {
		t.Fatalf("create failed: %v", created)
	}

	_, list := doJSON(t, app, "GET", "/tickets", "", cookie)
	items, _ := list["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 ticket, got %v", list)
	}
	first, _ := items[0].(map[string]any)
	if first["status"] != "Open" {
		t.Fatalf("new ticket status %v, want Open", first["status"])
	}

	// second read is served from the view cache
	doJSON(t, app, "GET", "/tickets", "", cookie)
	if views.hits == 0 {
		t.Fatal("repeat listing must hit the view cache")
	}

	_, closed := doJSON(t, app, "POST", "/tickets/1/close", "", cookie)
	if closed["success"] != true || closed["message"] != "Ticket closed successfully" {
		t.Fatalf("close failed: %v", closed)
	}

	_, list = doJSON(t, app, "GET", "/tickets", "", cookie)
	items, _ = list["data"].([]any)
	first, _ = items[0].(map[string]any)
	if first["status"] != "Closed" {
		t.Fatalf("status after close %v, want Closed", first["status"])
	}
}

func TestCreateTicketRequiresSession(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/tickets",
		`{"subject":"s","description":"d","priority":"low"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("result endpoints answer 200, got %d", resp.StatusCode)
	}
	if body["success"] != false || body["message"] != "You must be logged in to create a ticket" {
		t.Fatalf("unexpected result: %v", body)
	}
}

func TestListTicketsUnauthenticatedIsEmpty(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/tickets", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	items, ok := body["data"].([]any)
	if !ok || len(items) != 0 {
		t.Fatalf("expected empty data array, got %v", body)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "GET", "/tickets/99", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCloseForeignTicketRefused(t *testing.T) {
	app, _ := newTestApp(t)

	respA, _ := doJSON(t, app, "POST", "/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret"}`, nil)
	cookieA := authCookie(t, respA)
	doJSON(t, app, "POST", "/tickets",
		`{"subject":"mine","description":"d","priority":"low"}`, cookieA)

	respB, _ := doJSON(t, app, "POST", "/auth/register",
		`{"name":"Bob","email":"bob@example.com","password":"secret"}`, nil)
	cookieB := authCookie(t, respB)

	_, body := doJSON(t, app, "POST", "/tickets/1/close", "", cookieB)
	if body["success"] != false || body["message"] != "You are not authorized to close this ticket" {
		t.Fatalf("unexpected result: %v", body)
	}

	_, detail := doJSON(t, app, "GET", "/tickets/1", "", cookieA)
	data, _ := detail["data"].(map[string]any)
	if data["status"] != "Open" {
		t.Fatalf("foreign close changed status: %v", data["status"])
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/auth/logout", "", nil)
	if body["success"] != true || body["message"] != "Logout successful" {
		t.Fatalf("unexpected result: %v", body)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "auth-token" && c.Value == "" {
			return
		}
	}
	t.Fatal("logout must emit a cleared cookie")
}
