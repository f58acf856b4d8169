package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAdvanceWorkflow(t *testing.T) {
	tests := []struct {
		name    string
		current WorkflowStatus
		next    WorkflowStatus
		want    bool
	}{
		{"not sent to sent", WorkflowNotSent, WorkflowSent, true},
		{"sent to acknowledged", WorkflowSent, WorkflowAcknowledged, true},
		{"skip ahead to resolved", WorkflowSent, WorkflowResolved, true},
		{"acknowledged cannot regress", WorkflowAcknowledged, WorkflowNotSent, false},
		{"no self transition", WorkflowSent, WorkflowSent, false},
		{"resolved is terminal", WorkflowResolved, WorkflowAcknowledged, false},
		{"unknown status rejected", WorkflowNotSent, WorkflowStatus("PAUSED"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdvanceWorkflow(tt.current, tt.next))
		})
	}
}

func TestEscalationPending(t *testing.T) {
	marker := 3

	tests := []struct {
		name   string
		action EscalatableAction
		want   bool
	}{
		{
			name:   "within sla window",
			action: EscalatableAction{DaysOverdue: 1, SLAWindowDays: 2},
			want:   false,
		},
		{
			name:   "breached and never escalated",
			action: EscalatableAction{DaysOverdue: 2, SLAWindowDays: 1},
			want:   true,
		},
		{
			name:   "breached but window already handled",
			action: EscalatableAction{DaysOverdue: 3, SLAWindowDays: 1, LastEscalatedOverdueDays: &marker},
			want:   false,
		},
		{
			name:   "breach deepened past marker",
			action: EscalatableAction{DaysOverdue: 5, SLAWindowDays: 1, LastEscalatedOverdueDays: &marker},
			want:   true,
		},
		{
			name:   "exactly at window boundary is not breached",
			action: EscalatableAction{DaysOverdue: 2, SLAWindowDays: 2},
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.EscalationPending())
		})
	}
}

func TestOwnerTypeForLevel(t *testing.T) {
	assert.Equal(t, "ACCOUNTABLE_OWNER", OwnerTypeForLevel(1))
	assert.Equal(t, "BACKUP_OWNER", OwnerTypeForLevel(2))
	assert.Equal(t, "REGIONAL_MANAGER", OwnerTypeForLevel(3))
	assert.Equal(t, "EXECUTIVE", OwnerTypeForLevel(4))
	assert.Equal(t, "EXECUTIVE", OwnerTypeForLevel(9))
}
