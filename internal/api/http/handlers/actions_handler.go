package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/command-tower/internal/api/dto"
	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/service"
	apperrors "github.com/spec-kit/command-tower/pkg/util"
)

// ActionsHandler serves the "who must act now" escalation queue.
type ActionsHandler struct {
	escalations *service.EscalationService
}

// NewActionsHandler constructs handler.
func NewActionsHandler(escalations *service.EscalationService) *ActionsHandler {
	return &ActionsHandler{escalations: escalations}
}

// ListActions GET /actions.
func (h *ActionsHandler) ListActions(c *fiber.Ctx) error {
	queue, err := h.escalations.Queue(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.ActionResponse, 0, len(queue))
	for i := range queue {
		items = append(items, actionResponse(&queue[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateAction POST /actions.
func (h *ActionsHandler) CreateAction(c *fiber.Ctx) error {
	var req dto.CreateActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	action, err := h.escalations.CreateAction(c.UserContext(), service.ActionInput{
		AssetID:          req.AssetID,
		DaysOverdue:      req.DaysOverdue,
		RequiredAction:   req.RequiredAction,
		AccountableOwner: req.AccountableOwner,
		BackupOwner:      req.BackupOwner,
		SLAWindowDays:    req.SLAWindowDays,
		RevenueAtRisk:    req.RevenueAtRisk,
		MarginPerDay:     req.MarginPerDay,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": actionResponse(action)})
}

// AdvanceWorkflow POST /actions/:id/workflow.
func (h *ActionsHandler) AdvanceWorkflow(c *fiber.Ctx) error {
	var req dto.AdvanceWorkflowRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.WorkflowStatus == "" {
		return apperrors.NewValidationError("workflow_status required", nil)
	}
	action, err := h.escalations.AdvanceWorkflow(c.UserContext(), c.Params("id"), req.WorkflowStatus, req.Actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actionResponse(action)})
}

func actionResponse(action *domain.EscalatableAction) dto.ActionResponse {
	return dto.ActionResponse{
		ID:               action.ID,
		AssetID:          action.AssetID,
		DaysOverdue:      action.DaysOverdue,
		RequiredAction:   action.RequiredAction,
		OwnerType:        action.OwnerType,
		AccountableOwner: action.AccountableOwner,
		BackupOwner:      action.BackupOwner,
		EscalationLevel:  action.EscalationLevel,
		WorkflowStatus:   action.WorkflowStatus,
		SLAWindowDays:    action.SLAWindowDays,
		RevenueAtRisk:    action.RevenueAtRisk,
		MarginPerDay:     action.MarginPerDay,
		Events:           activityResponses(action.Events),
		CreatedAt:        action.CreatedAt,
		UpdatedAt:        action.UpdatedAt,
		ResolvedAt:       action.ResolvedAt,
	}
}
