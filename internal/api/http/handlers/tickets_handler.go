package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const ticketListPath = "/tickets"

// TicketsHandler manages ticket endpoints. List and detail responses are
// served through the view cache; mutations invalidate it via the service.
type TicketsHandler struct {
	service *service.TicketService
	views   cache.ViewCache
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, views cache.ViewCache) *TicketsHandler {
	return &TicketsHandler{service: ticketService, views: views}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, _ := auth.UserFromContext(c)
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result := h.service.Create(c.Context(), user, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
	})
	return c.JSON(result)
}

// ListTickets GET /tickets. The rendering is cached per caller.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, _ := auth.UserFromContext(c)

	variant := ""
	if user != nil {
		variant = "u=" + user.ID
	}
	if payload, ok := h.cacheGet(c, ticketListPath, variant); ok {
		return sendJSON(c, payload)
	}

	tickets := h.service.ListForUser(c.Context(), user)
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}

	payload, err := json.Marshal(fiber.Map{"data": items})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.cacheSet(c, ticketListPath, variant, payload)
	return sendJSON(c, payload)
}

// GetTicket GET /tickets/:id. The detail view carries no ownership scope.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}

	path := fmt.Sprintf("%s/%d", ticketListPath, id)
	if payload, ok := h.cacheGet(c, path, ""); ok {
		return sendJSON(c, payload)
	}

	ticket, found := h.service.GetByID(c.Context(), id)
	if !found {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}

	payload, err := json.Marshal(fiber.Map{"data": dto.FromTicket(ticket)})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.cacheSet(c, path, "", payload)
	return sendJSON(c, payload)
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	user, _ := auth.UserFromContext(c)
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		id = 0
	}
	result := h.service.Close(c.Context(), user, id)
	return c.JSON(result)
}

func (h *TicketsHandler) cacheGet(c *fiber.Ctx, path, variant string) ([]byte, bool) {
	if h.views == nil {
		return nil, false
	}
	return h.views.Get(c.Context(), path, variant)
}

func (h *TicketsHandler) cacheSet(c *fiber.Ctx, path, variant string, payload []byte) {
	if h.views == nil {
		return
	}
	h.views.Set(c.Context(), path, variant, payload)
}

func sendJSON(c *fiber.Ctx, payload []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}
