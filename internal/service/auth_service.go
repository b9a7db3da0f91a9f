package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/eventlog"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// RegisterInput is the typed payload for registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the typed payload for login.
type LoginInput struct {
	Email    string
	Password string
}

// AuthService coordinates registration, login and logout flows. Every
// operation resolves to a Result; failures are logged through the event
// logger and masked behind fixed messages.
type AuthService struct {
	users      repository.UserRepository
	sessions   *auth.SessionIssuer
	dispatcher events.Dispatcher
	events     eventlog.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	UserRepo      repository.UserRepository
	SessionIssuer *auth.SessionIssuer
	Dispatcher    events.Dispatcher
	EventLog      eventlog.Logger
}

// NewAuthService builds the service.
func NewAuthService(bcryptCost int, deps AuthDependencies) *AuthService {
	if bcryptCost <= 0 {
		bcryptCost = 10
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionIssuer,
		dispatcher: deps.Dispatcher,
		events:     deps.EventLog,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new account and establishes a session for it.
func (s *AuthService) Register(ctx context.Context, sess auth.SessionSink, input RegisterInput) Result {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		s.events.Log(ctx, "Validation error: Missing registration fields", "auth",
			map[string]any{"name": input.Name, "email": input.Email}, eventlog.SeverityWarning, nil)
		return failure("All fields are required")
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		s.events.Log(ctx, "Registration failed: user already exists", "auth",
			map[string]any{"email": input.Email}, eventlog.SeverityWarning, nil)
		return failure("User already exists")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.events.Log(ctx, "Unexpected error during registration", "auth", nil, eventlog.SeverityError, err)
		return failure("Something went wrong, please try again")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		s.events.Log(ctx, "Unexpected error during registration", "auth", nil, eventlog.SeverityError, err)
		return failure("Something went wrong, please try again")
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.events.Log(ctx, "Unexpected error during registration", "auth", nil, eventlog.SeverityError, err)
		return failure("Something went wrong, please try again")
	}

	if err := s.issueSession(sess, user.ID); err != nil {
		s.events.Log(ctx, "Unexpected error during registration", "auth",
			map[string]any{"userId": user.ID}, eventlog.SeverityError, err)
		return failure("Something went wrong, please try again")
	}

	s.publish(ctx, events.Event{
		Type:    events.EventUserRegistered,
		UserID:  user.ID,
		Payload: events.UserRegisteredPayload{Email: user.Email},
	})
	s.events.Log(ctx, "User registered successfully", "auth",
		map[string]any{"userId": user.ID, "email": user.Email}, eventlog.SeverityInfo, nil)
	return success("Registration successful")
}

// Login authenticates an account and establishes a session. Unknown email
// and wrong password produce byte-identical messages so the response cannot
// be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, sess auth.SessionSink, input LoginInput) Result {
	if input.Email == "" || input.Password == "" {
		s.events.Log(ctx, "Validation Error: missing login fields", "auth",
			map[string]any{"email": input.Email}, eventlog.SeverityWarning, nil)
		return failure("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.events.Log(ctx, "Login failed: user not found", "auth",
				map[string]any{"email": input.Email}, eventlog.SeverityWarning, nil)
			return failure("Invalid email or password")
		}
		s.events.Log(ctx, "Unexpected error: Login failed", "auth", nil, eventlog.SeverityError, err)
		return failure("Login Failed")
	}

	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		s.events.Log(ctx, "Login failed: incorrect password", "auth",
			map[string]any{"email": input.Email}, eventlog.SeverityWarning, nil)
		return failure("Invalid email or password")
	}

	if err := s.issueSession(sess, user.ID); err != nil {
		s.events.Log(ctx, "Unexpected error: Login failed", "auth", nil, eventlog.SeverityError, err)
		return failure("Login Failed")
	}
	return success("Login successful")
}

// Logout clears the session cookie unconditionally.
func (s *AuthService) Logout(ctx context.Context, sess auth.SessionSink) Result {
	if sess == nil {
		s.events.Log(ctx, "Unexpected Error: User not logged out", "auth", nil, eventlog.SeverityError, nil)
		return failure("Logout failed. Please try again")
	}
	sess.ClearToken()
	s.events.Log(ctx, "User logged out successfully", "auth", nil, eventlog.SeverityInfo, nil)
	return success("Logout successful")
}

func (s *AuthService) issueSession(sess auth.SessionSink, userID string) error {
	token, expiresAt, err := s.sessions.Sign(userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return errors.New("no session sink")
	}
	sess.SetToken(token, expiresAt)
	return nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
