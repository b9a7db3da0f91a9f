package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// In-memory fakes shared by the service tests. Missing rows are reported as
// pgx.ErrNoRows to match the Postgres-backed implementations.

type memUserRepo struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
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

func (m *memUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memTicketRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{byID: map[int64]*domain.Ticket{}}
}

func (m *memTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
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
	// newest first, as the SQL implementation orders
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
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

func (m *memTicketRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memViewCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *memViewCache) Get(context.Context, string, string) ([]byte, bool) { return nil, false }

func (c *memViewCache) Set(context.Context, string, string, []byte) {}

func (c *memViewCache) Invalidate(_ context.Context, paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, paths...)
}

func (c *memViewCache) sawPath(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.invalidated {
		if p == path {
			return true
		}
	}
	return false
}

type memSessionSink struct {
	token   string
	cleared bool
}

func (s *memSessionSink) SetToken(token string, _ time.Time) { s.token = token }

func (s *memSessionSink) ClearToken() {
	s.token = ""
	s.cleared = true
}
