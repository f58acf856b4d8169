package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/command-tower/internal/api/dto"
	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/service"
	apperrors "github.com/spec-kit/command-tower/pkg/util"
)

// TicketsHandler manages the ticket endpoints consumed by the command tower
// grids and detail panels.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	stats     *service.StatsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, stats *service.StatsService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, stats: stats}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event := service.SourceEvent{
		Source:            req.Source,
		SourceReferenceID: req.SourceReferenceID,
		Severity:          req.Severity,
		ActionType:        req.ActionType,
		Category:          req.Category,
		Title:             req.Title,
		Description:       req.Description,
		Customer:          req.Customer,
		QuoteID:           req.QuoteID,
		Material:          req.Material,
		RevenueImpact:     req.RevenueImpact,
		DueDate:           req.DueDate,
		Actor:             req.Actor,
		AssignedTo:        req.AssignedTo,
		RelatedAlerts:     req.RelatedAlerts,
		Tags:              req.Tags,
	}
	ticket, err := h.lifecycle.CreateTicket(c.UserContext(), event)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	criteria := parseTicketQuery(c)
	tickets, err := h.lifecycle.ListTickets(c.UserContext(), criteria)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// TransitionTicket POST /tickets/:id/transition.
func (h *TicketsHandler) TransitionTicket(c *fiber.Ctx) error {
	var req dto.TransitionTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetStatus == "" {
		return apperrors.NewValidationError("target_status required", nil)
	}
	ticket, err := h.lifecycle.Transition(c.UserContext(), c.Params("id"), req.TargetStatus, req.Actor, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// GetStats GET /tickets/stats.
func (h *TicketsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.stats.GetStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketCriteria {
	criteria := service.TicketCriteria{
		Query: c.Query("q"),
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		value := domain.TicketStatus(status)
		criteria.Status = &value
	}
	if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
		value := domain.TicketPriority(priority)
		criteria.Priority = &value
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		criteria.Category = &category
	}
	if source := strings.TrimSpace(c.Query("source")); source != "" {
		value := domain.TicketSource(source)
		criteria.Source = &value
	}
	return criteria
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		Source:        ticket.Source,
		ActionType:    ticket.ActionType,
		Category:      ticket.Category,
		Title:         ticket.Title,
		Customer:      ticket.CustomerContext,
		RevenueImpact: ticket.RevenueImpact,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		AssignedTo:    ticket.AssignedTo,
		Tags:          ticket.Tags,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		DueDate:       ticket.DueDate,
		CompletedAt:   ticket.CompletedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary:     ticketSummary(ticket),
		SourceReferenceID: ticket.SourceReferenceID,
		Description:       ticket.Description,
		QuoteID:           ticket.QuoteID,
		Material:          ticket.Material,
		CreatedBy:         ticket.CreatedBy,
		RelatedAlerts:     ticket.RelatedAlerts,
		RelatedTickets:    ticket.RelatedTickets,
		Activity:          activityResponses(ticket.Activity),
	}
}

func activityResponses(entries []domain.ActivityLogEntry) []dto.ActivityEntryResponse {
	resp := make([]dto.ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.ActivityEntryResponse{
			Action: entry.Action,
			By:     entry.By,
			At:     entry.At,
			Notes:  entry.Notes,
		})
	}
	return resp
}
