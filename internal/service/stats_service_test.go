package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/repository"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	today := now.Add(-2 * time.Hour)
	yesterday := now.AddDate(0, 0, -1)

	tickets := []domain.Ticket{
		{Status: domain.TicketStatusOpen, Source: domain.SourceAlertAction, Category: "pricing", Priority: domain.TicketPriorityCritical, RevenueImpact: 50000},
		{Status: domain.TicketStatusInProgress, Source: domain.SourceAlertAction, Category: "logistics", Priority: domain.TicketPriorityHigh},
		{Status: domain.TicketStatusCompleted, Source: domain.SourceManualEntry, Category: "pricing", Priority: domain.TicketPriorityMedium, RevenueImpact: 12000, CompletedAt: &today},
		{Status: domain.TicketStatusCompleted, Source: domain.SourceAgentAutomated, Priority: domain.TicketPriorityLow, RevenueImpact: 3000, CompletedAt: &yesterday},
		{Status: domain.TicketStatusCancelled, Source: domain.SourceManualEntry, Category: "pricing", Priority: domain.TicketPriorityLow, RevenueImpact: 99999},
	}

	stats := ComputeStats(tickets, now)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusOpen])
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusInProgress])
	assert.Equal(t, 2, stats.ByStatus[domain.TicketStatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusCancelled])

	sum := 0
	for _, n := range stats.ByStatus {
		sum += n
	}
	assert.Equal(t, stats.Total, sum)

	assert.Equal(t, 2, stats.BySource[domain.SourceAlertAction])
	assert.Equal(t, 2, stats.BySource[domain.SourceManualEntry])
	assert.Equal(t, 1, stats.BySource[domain.SourceAgentAutomated])

	assert.Equal(t, 3, stats.ByCategory["pricing"])
	assert.Equal(t, 1, stats.ByCategory["logistics"])

	// only completed tickets count toward revenue; cancelled revenue ignored
	assert.InDelta(t, 15000, stats.CompletedRevenue, 0.001)
	// calendar-day comparison, not a rolling 24h window
	assert.Equal(t, 1, stats.CompletedToday)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, time.Now())
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.ByStatus)
	assert.Zero(t, stats.CompletedRevenue)
	assert.Zero(t, stats.CompletedToday)
}

func TestComputeStats_CompletedJustBeforeMidnight(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 10, 0, 0, time.UTC)
	lateYesterday := time.Date(2026, 8, 27, 23, 55, 0, 0, time.UTC)

	stats := ComputeStats([]domain.Ticket{
		{Status: domain.TicketStatusCompleted, CompletedAt: &lateYesterday},
	}, now)

	// fifteen minutes ago but a different calendar day
	assert.Equal(t, 0, stats.CompletedToday)
}

func TestStatsService_GetStats(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryTicketRepository()
	svc := NewStatsService(repo, 0)

	now := time.Now()
	completed := &domain.Ticket{
		ID:            "TCK-1",
		Status:        domain.TicketStatusCompleted,
		Source:        domain.SourceManualEntry,
		Priority:      domain.TicketPriorityMedium,
		RevenueImpact: 500,
		CompletedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	require.NoError(t, repo.Create(ctx, completed))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.CompletedToday)
	assert.InDelta(t, 500, stats.CompletedRevenue, 0.001)
}
