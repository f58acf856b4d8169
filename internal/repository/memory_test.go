package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/command-tower/internal/domain"
)

func newTicket(id string, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		Source:    domain.SourceManualEntry,
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityMedium,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Version:   1,
		Activity: []domain.ActivityLogEntry{{
			Action: domain.ActivityCreated,
			At:     createdAt,
		}},
	}
}

func TestMemoryTicketRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	require.NoError(t, repo.Create(ctx, newTicket("TCK-1", time.Now())))

	got, err := repo.GetByID(ctx, "TCK-1")
	require.NoError(t, err)
	assert.Equal(t, "TCK-1", got.ID)

	_, err = repo.GetByID(ctx, "TCK-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTicketRepository_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	require.NoError(t, repo.Create(ctx, newTicket("TCK-1", time.Now())))

	first, err := repo.GetByID(ctx, "TCK-1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "TCK-1")
	require.NoError(t, err)

	first.Status = domain.TicketStatusInProgress
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	// second still holds version 1; its write must lose.
	second.Status = domain.TicketStatusCancelled
	assert.ErrorIs(t, repo.Update(ctx, second), ErrVersionConflict)

	stored, err := repo.GetByID(ctx, "TCK-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
}

func TestMemoryTicketRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	err := repo.Update(ctx, newTicket("TCK-ghost", time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTicketRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTicket("TCK-old", base.Add(-2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newTicket("TCK-new", base)))
	require.NoError(t, repo.Create(ctx, newTicket("TCK-mid", base.Add(-time.Hour))))

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "TCK-new", listed[0].ID)
	assert.Equal(t, "TCK-mid", listed[1].ID)
	assert.Equal(t, "TCK-old", listed[2].ID)
}

func TestMemoryTicketRepository_CopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	require.NoError(t, repo.Create(ctx, newTicket("TCK-1", time.Now())))

	got, err := repo.GetByID(ctx, "TCK-1")
	require.NoError(t, err)
	got.Activity = append(got.Activity, domain.ActivityLogEntry{Action: "tampered"})

	stored, err := repo.GetByID(ctx, "TCK-1")
	require.NoError(t, err)
	assert.Len(t, stored.Activity, 1)
}

func TestMemoryActionRepository_ListUnresolved(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryActionRepository()
	now := time.Now()

	open := &domain.EscalatableAction{ID: "ACT-1", WorkflowStatus: domain.WorkflowSent, CreatedAt: now, Version: 1}
	resolved := &domain.EscalatableAction{ID: "ACT-2", WorkflowStatus: domain.WorkflowResolved, CreatedAt: now, Version: 1}
	require.NoError(t, repo.Create(ctx, open))
	require.NoError(t, repo.Create(ctx, resolved))

	unresolved, err := repo.ListUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "ACT-1", unresolved[0].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryActionRepository_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryActionRepository()
	action := &domain.EscalatableAction{ID: "ACT-1", WorkflowStatus: domain.WorkflowNotSent, CreatedAt: time.Now(), Version: 1}
	require.NoError(t, repo.Create(ctx, action))

	stale := *action
	action.EscalationLevel = 2
	require.NoError(t, repo.Update(ctx, action))

	stale.EscalationLevel = 3
	assert.ErrorIs(t, repo.Update(ctx, &stale), ErrVersionConflict)
}
