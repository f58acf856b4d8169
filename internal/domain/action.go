package domain

import "time"

// WorkflowStatus tracks how far an escalatable action has moved through the
// notification workflow. It only advances forward.
type WorkflowStatus string

const (
	WorkflowNotSent      WorkflowStatus = "NOT_SENT"
	WorkflowSent         WorkflowStatus = "SENT"
	WorkflowAcknowledged WorkflowStatus = "ACKNOWLEDGED"
	WorkflowResolved     WorkflowStatus = "RESOLVED"
)

// workflowRanks orders workflow statuses; advances must strictly increase.
var workflowRanks = map[WorkflowStatus]int{
	WorkflowNotSent:      0,
	WorkflowSent:         1,
	WorkflowAcknowledged: 2,
	WorkflowResolved:     3,
}

// WorkflowRank returns the forward-ordering rank of s, or -1 when unknown.
func WorkflowRank(s WorkflowStatus) int {
	rank, ok := workflowRanks[s]
	if !ok {
		return -1
	}
	return rank
}

// CanAdvanceWorkflow reports whether moving current -> next is a forward
// advance. Skipping intermediate statuses is allowed, regression is not.
func CanAdvanceWorkflow(current, next WorkflowStatus) bool {
	currentRank := WorkflowRank(current)
	nextRank := WorkflowRank(next)
	if currentRank < 0 || nextRank < 0 {
		return false
	}
	return nextRank > currentRank
}

// Escalation level bounds. Level 1 is front-line ownership, level 4 is
// executive.
const (
	EscalationLevelMin = 1
	EscalationLevelMax = 4
)

// escalationTiers maps an escalation level to the ownership role that becomes
// accountable at that level.
var escalationTiers = map[int]string{
	1: "ACCOUNTABLE_OWNER",
	2: "BACKUP_OWNER",
	3: "REGIONAL_MANAGER",
	4: "EXECUTIVE",
}

// OwnerTypeForLevel returns the ownership role label for an escalation level.
func OwnerTypeForLevel(level int) string {
	if tier, ok := escalationTiers[level]; ok {
		return tier
	}
	return escalationTiers[EscalationLevelMax]
}

// EscalatableAction is an overdue obligation tied to a monitored asset,
// raised through the ownership chain while it breaches its SLA window.
// EscalationLevel is monotonically non-decreasing and capped at
// EscalationLevelMax; WorkflowStatus only moves forward.
type EscalatableAction struct {
	ID               string
	AssetID          string
	DaysOverdue      int
	RequiredAction   string
	OwnerType        string
	AccountableOwner string
	BackupOwner      string
	EscalationLevel  int
	WorkflowStatus   WorkflowStatus
	SLAWindowDays    int
	RevenueAtRisk    float64
	MarginPerDay     float64

	// LastEscalatedOverdueDays marks the breach window the sweep last acted
	// on: nil means never escalated, otherwise the DaysOverdue value at the
	// time of the last escalation. A sweep escalates only when DaysOverdue
	// has moved past this marker.
	LastEscalatedOverdueDays *int

	Events     []ActivityLogEntry
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	Version    int64
}

// Breached reports whether the action is currently outside its SLA window.
func (a *EscalatableAction) Breached() bool {
	return a.DaysOverdue > a.SLAWindowDays
}

// EscalationPending reports whether the current breach window still needs an
// escalation, taking the last-escalated marker into account.
func (a *EscalatableAction) EscalationPending() bool {
	if !a.Breached() {
		return false
	}
	if a.LastEscalatedOverdueDays == nil {
		return true
	}
	return a.DaysOverdue > *a.LastEscalatedOverdueDays
}
