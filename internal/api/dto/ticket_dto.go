package dto

import (
	"time"

	"github.com/spec-kit/command-tower/internal/domain"
)

// CreateTicketRequest is the source event payload.
type CreateTicketRequest struct {
	Source            domain.TicketSource    `json:"source"`
	SourceReferenceID *string                `json:"source_reference_id,omitempty"`
	Severity          string                 `json:"severity"`
	ActionType        string                 `json:"action_type"`
	Category          string                 `json:"category"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Customer          domain.CustomerContext `json:"customer"`
	QuoteID           *string                `json:"quote_id,omitempty"`
	Material          string                 `json:"material"`
	RevenueImpact     float64                `json:"revenue_impact"`
	DueDate           *time.Time             `json:"due_date,omitempty"`
	Actor             string                 `json:"actor"`
	AssignedTo        string                 `json:"assigned_to"`
	RelatedAlerts     []string               `json:"related_alerts,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
}

// TransitionTicketRequest asks for a status change.
type TransitionTicketRequest struct {
	TargetStatus domain.TicketStatus `json:"target_status"`
	Actor        string              `json:"actor"`
	Notes        string              `json:"notes,omitempty"`
}

// ActivityEntryResponse mirrors one audit record.
type ActivityEntryResponse struct {
	Action string    `json:"action"`
	By     string    `json:"by"`
	At     time.Time `json:"at"`
	Notes  string    `json:"notes,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                 `json:"id"`
	Source        domain.TicketSource    `json:"source"`
	ActionType    string                 `json:"action_type"`
	Category      string                 `json:"category"`
	Title         string                 `json:"title"`
	Customer      domain.CustomerContext `json:"customer"`
	RevenueImpact float64                `json:"revenue_impact"`
	Status        domain.TicketStatus    `json:"status"`
	Priority      domain.TicketPriority  `json:"priority"`
	AssignedTo    string                 `json:"assigned_to"`
	Tags          []string               `json:"tags,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	DueDate       *time.Time             `json:"due_date,omitempty"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
}

// TicketDetailResponse provides full ticket info including the activity log.
type TicketDetailResponse struct {
	TicketSummary
	SourceReferenceID *string                 `json:"source_reference_id,omitempty"`
	Description       string                  `json:"description"`
	QuoteID           *string                 `json:"quote_id,omitempty"`
	Material          string                  `json:"material"`
	CreatedBy         string                  `json:"created_by"`
	RelatedAlerts     []string                `json:"related_alerts,omitempty"`
	RelatedTickets    []string                `json:"related_tickets,omitempty"`
	Activity          []ActivityEntryResponse `json:"activity"`
}
