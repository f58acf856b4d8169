package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		current TicketStatus
		next    TicketStatus
		want    bool
	}{
		{"open to in progress", TicketStatusOpen, TicketStatusInProgress, true},
		{"open to cancelled", TicketStatusOpen, TicketStatusCancelled, true},
		{"open to completed is not a valid edge", TicketStatusOpen, TicketStatusCompleted, false},
		{"open to pending review", TicketStatusOpen, TicketStatusPendingReview, false},
		{"in progress to pending review", TicketStatusInProgress, TicketStatusPendingReview, true},
		{"in progress to completed", TicketStatusInProgress, TicketStatusCompleted, true},
		{"in progress to cancelled", TicketStatusInProgress, TicketStatusCancelled, true},
		{"in progress to open", TicketStatusInProgress, TicketStatusOpen, false},
		{"pending review to completed", TicketStatusPendingReview, TicketStatusCompleted, true},
		{"pending review to cancelled", TicketStatusPendingReview, TicketStatusCancelled, true},
		{"pending review to in progress", TicketStatusPendingReview, TicketStatusInProgress, false},
		{"completed is terminal", TicketStatusCompleted, TicketStatusOpen, false},
		{"completed cannot cancel", TicketStatusCompleted, TicketStatusCancelled, false},
		{"cancelled is terminal", TicketStatusCancelled, TicketStatusInProgress, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.current, tt.next))
		})
	}
}

func TestPriorityFromSeverity(t *testing.T) {
	tests := []struct {
		severity string
		want     TicketPriority
	}{
		{"critical", TicketPriorityCritical},
		{"high", TicketPriorityHigh},
		{"opportunity", TicketPriorityMedium},
		{"", TicketPriorityMedium},
		{"unknown", TicketPriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityFromSeverity(tt.severity), "severity %q", tt.severity)
	}
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus(TicketStatusOpen))
	assert.True(t, IsValidStatus(TicketStatusCompleted))
	assert.False(t, IsValidStatus(TicketStatus("ARCHIVED")))
}
