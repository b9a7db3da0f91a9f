package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/eventlog"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// View paths whose cached renderings are invalidated by ticket mutations.
const ticketListPath = "/tickets"

// TicketCreateInput is the typed payload for ticket creation. Priority is
// carried as the submitted string and validated here, at the input boundary.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    string
}

// TicketService coordinates the ticket lifecycle. The caller identity is
// passed explicitly into every operation; nil means unauthenticated.
type TicketService struct {
	tickets    repository.TicketRepository
	views      cache.ViewCache
	dispatcher events.Dispatcher
	events     eventlog.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	ViewCache  cache.ViewCache
	Dispatcher events.Dispatcher
	EventLog   eventlog.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		views:      deps.ViewCache,
		dispatcher: deps.Dispatcher,
		events:     deps.EventLog,
	}
}

// Create opens a new ticket owned by the caller.
func (s *TicketService) Create(ctx context.Context, user *domain.User, input TicketCreateInput) Result {
	if user == nil {
		s.events.Log(ctx, "Unauthorized ticket creation event", "ticket", nil, eventlog.SeverityWarning, nil)
		return failure("You must be logged in to create a ticket")
	}

	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" || input.Priority == "" {
		s.events.Log(ctx, "Validation Error: Missing data fields", "ticket",
			map[string]any{"subject": input.Subject, "priority": input.Priority}, eventlog.SeverityWarning, nil)
		return failure("All fields are required")
	}

	priority, ok := domain.ParsePriority(input.Priority)
	if !ok {
		s.events.Log(ctx, "Validation Error: Unknown priority", "ticket",
			map[string]any{"priority": input.Priority}, eventlog.SeverityWarning, nil)
		return failure("Invalid priority")
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: description,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		OwnerID:     user.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.events.Log(ctx, "An error occurred while creating the ticket", "ticket",
			map[string]any{"subject": subject}, eventlog.SeverityError, err)
		return failure("An error occurred while creating the ticket")
	}

	s.invalidate(ctx, ticketListPath)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		UserID:   user.ID,
		TicketID: ticket.ID,
		Payload:  events.TicketCreatedPayload{Subject: ticket.Subject, Priority: ticket.Priority},
	})
	s.events.Log(ctx, "Ticket created successfully", "ticket",
		map[string]any{"ticketId": ticket.ID}, eventlog.SeverityInfo, nil)
	return success("Ticket created successfully")
}

// ListForUser returns the caller's tickets, newest first. Unauthenticated
// callers and store failures both yield an empty list; the difference is
// observable only through logged events.
func (s *TicketService) ListForUser(ctx context.Context, user *domain.User) []domain.Ticket {
	if user == nil {
		s.events.Log(ctx, "Unauthorized access to ticket list", "ticket", nil, eventlog.SeverityWarning, nil)
		return []domain.Ticket{}
	}

	tickets, err := s.tickets.ListByOwner(ctx, user.ID)
	if err != nil {
		s.events.Log(ctx, "Error fetching tickets", "ticket", nil, eventlog.SeverityError, err)
		return []domain.Ticket{}
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	s.events.Log(ctx, "Fetched ticket list", "ticket",
		map[string]any{"count": len(tickets)}, eventlog.SeverityInfo, nil)
	return tickets
}

// GetByID fetches a ticket without an ownership check. Absent tickets and
// store failures both report not-found.
func (s *TicketService) GetByID(ctx context.Context, id int64) (*domain.Ticket, bool) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.events.Log(ctx, "Ticket Not Found", "ticket",
				map[string]any{"ticketId": id}, eventlog.SeverityWarning, nil)
		} else {
			s.events.Log(ctx, "Error fetching ticket details", "ticket",
				map[string]any{"ticketId": id}, eventlog.SeverityError, err)
		}
		return nil, false
	}
	return ticket, true
}

// Close transitions the caller's ticket to Closed. Only the owner may close
// a ticket; a missing ticket and a foreign ticket produce the same refusal.
func (s *TicketService) Close(ctx context.Context, user *domain.User, ticketID int64) Result {
	if ticketID <= 0 {
		s.events.Log(ctx, "Missing ticket ID", "ticket", nil, eventlog.SeverityWarning, nil)
		return failure("Ticket id is required")
	}
	if user == nil {
		s.events.Log(ctx, "Missing user ID", "ticket", nil, eventlog.SeverityWarning, nil)
		return failure("Unauthorized")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.events.Log(ctx, "Error closing ticket", "ticket",
			map[string]any{"ticketId": ticketID}, eventlog.SeverityError, err)
		return failure("Something went wrong, please try again")
	}
	if ticket == nil || ticket.OwnerID != user.ID {
		s.events.Log(ctx, "Unauthorized ticket close attempt", "ticket",
			map[string]any{"ticketId": ticketID, "userId": user.ID}, eventlog.SeverityWarning, nil)
		return failure("You are not authorized to close this ticket")
	}

	if err := s.tickets.SetStatus(ctx, ticketID, domain.TicketStatusClosed); err != nil {
		s.events.Log(ctx, "Error closing ticket", "ticket",
			map[string]any{"ticketId": ticketID}, eventlog.SeverityError, err)
		return failure("Something went wrong, please try again")
	}

	s.invalidate(ctx, ticketListPath, fmt.Sprintf("%s/%d", ticketListPath, ticketID))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		UserID:   user.ID,
		TicketID: ticketID,
		Payload:  events.TicketClosedPayload{Subject: ticket.Subject},
	})
	return success("Ticket closed successfully")
}

func (s *TicketService) invalidate(ctx context.Context, paths ...string) {
	if s.views == nil {
		return
	}
	s.views.Invalidate(ctx, paths...)
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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
