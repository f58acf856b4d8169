package dto

import (
	"time"

	"github.com/spec-kit/command-tower/internal/domain"
)

// CreateActionRequest registers an overdue obligation detected against a
// monitored asset.
type CreateActionRequest struct {
	AssetID          string  `json:"asset_id"`
	DaysOverdue      int     `json:"days_overdue"`
	RequiredAction   string  `json:"required_action"`
	AccountableOwner string  `json:"accountable_owner"`
	BackupOwner      string  `json:"backup_owner"`
	SLAWindowDays    int     `json:"sla_window_days"`
	RevenueAtRisk    float64 `json:"revenue_at_risk"`
	MarginPerDay     float64 `json:"margin_per_day"`
}

// AdvanceWorkflowRequest moves an action's workflow status forward.
type AdvanceWorkflowRequest struct {
	WorkflowStatus domain.WorkflowStatus `json:"workflow_status"`
	Actor          string                `json:"actor"`
}

// ActionResponse mirrors an escalatable action for the queue view.
type ActionResponse struct {
	ID               string                  `json:"id"`
	AssetID          string                  `json:"asset_id"`
	DaysOverdue      int                     `json:"days_overdue"`
	RequiredAction   string                  `json:"required_action"`
	OwnerType        string                  `json:"owner_type"`
	AccountableOwner string                  `json:"accountable_owner"`
	BackupOwner      string                  `json:"backup_owner,omitempty"`
	EscalationLevel  int                     `json:"escalation_level"`
	WorkflowStatus   domain.WorkflowStatus   `json:"workflow_status"`
	SLAWindowDays    int                     `json:"sla_window_days"`
	RevenueAtRisk    float64                 `json:"revenue_at_risk"`
	MarginPerDay     float64                 `json:"margin_per_day"`
	Events           []ActivityEntryResponse `json:"events"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	ResolvedAt       *time.Time              `json:"resolved_at,omitempty"`
}
