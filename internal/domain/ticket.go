package domain

import "time"

// TicketStatus enumerates lifecycle states for tracked work.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "OPEN"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusPendingReview TicketStatus = "PENDING_REVIEW"
	TicketStatusCompleted     TicketStatus = "COMPLETED"
	TicketStatusCancelled     TicketStatus = "CANCELLED"
)

// TicketPriority enumerates urgency, derived from source severity at creation.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// TicketSource classifies where a ticket originated.
type TicketSource string

const (
	SourceAlertAction    TicketSource = "ALERT_ACTION"
	SourceAgentAutomated TicketSource = "AGENT_AUTOMATED"
	SourceManualEntry    TicketSource = "MANUAL_ENTRY"
	SourceSystemTrigger  TicketSource = "SYSTEM_TRIGGER"
)

// CustomerContext carries the business context a ticket was raised for.
type CustomerContext struct {
	Name      string `json:"name"`
	AccountID string `json:"account_id,omitempty"`
	Region    string `json:"region,omitempty"`
}

// ActivityLogEntry is an immutable audit record of one event in an entity's
// history. The first entry for any ticket is always action "created".
type ActivityLogEntry struct {
	Action string    `json:"action"`
	By     string    `json:"by"`
	At     time.Time `json:"at"`
	Notes  string    `json:"notes,omitempty"`
}

// Activity log action identifiers.
const (
	ActivityCreated          = "created"
	ActivityStatusChanged    = "status_changed"
	ActivityEscalated        = "escalated"
	ActivityWorkflowAdvanced = "workflow_advanced"
)

// Ticket is a trackable unit of work created from an upstream event.
// Source, SourceReferenceID, Priority and the business context fields never
// change after creation; Status is mutated only through the lifecycle engine.
type Ticket struct {
	ID                string
	Source            TicketSource
	SourceReferenceID *string
	ActionType        string
	Category          string
	Title             string
	Description       string
	CustomerContext   CustomerContext
	QuoteID           *string
	Material          string
	RevenueImpact     float64
	Status            TicketStatus
	Priority          TicketPriority
	CreatedBy         string
	AssignedTo        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DueDate           *time.Time
	CompletedAt       *time.Time
	Activity          []ActivityLogEntry
	RelatedAlerts     []string
	RelatedTickets    []string
	Tags              []string
	Version           int64
}

// allowedTransitions is the full status graph. Completed and Cancelled are
// terminal.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:          {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusInProgress:    {TicketStatusPendingReview, TicketStatusCompleted, TicketStatusCancelled},
	TicketStatusPendingReview: {TicketStatusCompleted, TicketStatusCancelled},
	TicketStatusCompleted:     {},
	TicketStatusCancelled:     {},
}

// CanTransition reports whether the status graph permits current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known lifecycle status.
func IsValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPendingReview,
		TicketStatusCompleted, TicketStatusCancelled:
		return true
	}
	return false
}

// severityPriorities maps source event severity to ticket priority.
// Unknown severities (including "opportunity") default to Medium.
var severityPriorities = map[string]TicketPriority{
	"critical": TicketPriorityCritical,
	"high":     TicketPriorityHigh,
}

// PriorityFromSeverity derives the immutable ticket priority from the
// originating event's severity.
func PriorityFromSeverity(severity string) TicketPriority {
	if p, ok := severityPriorities[severity]; ok {
		return p
	}
	return TicketPriorityMedium
}
