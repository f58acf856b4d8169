package events

import (
	"time"

	"github.com/spec-kit/command-tower/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketTransitioned     EventType = "ticket_transitioned"
	EventActionCreated          EventType = "action_created"
	EventActionEscalated        EventType = "action_escalated"
	EventActionWorkflowAdvanced EventType = "action_workflow_advanced"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Source   domain.TicketSource   `json:"source"`
	Priority domain.TicketPriority `json:"priority"`
	Category string                `json:"category,omitempty"`
	Title    string                `json:"title"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Notes     string              `json:"notes,omitempty"`
}

// ActionCreatedPayload payload.
type ActionCreatedPayload struct {
	AssetID        string `json:"asset_id"`
	RequiredAction string `json:"required_action"`
	SLAWindowDays  int    `json:"sla_window_days"`
}

// ActionEscalatedPayload payload.
type ActionEscalatedPayload struct {
	AssetID     string `json:"asset_id"`
	OldLevel    int    `json:"old_level"`
	NewLevel    int    `json:"new_level"`
	OwnerType   string `json:"owner_type"`
	DaysOverdue int    `json:"days_overdue"`
}

// ActionWorkflowAdvancedPayload payload.
type ActionWorkflowAdvancedPayload struct {
	OldStatus domain.WorkflowStatus `json:"old_status"`
	NewStatus domain.WorkflowStatus `json:"new_status"`
}
