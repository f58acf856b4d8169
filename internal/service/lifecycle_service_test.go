package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/repository"
	"github.com/spec-kit/command-tower/pkg/util"
)

func newLifecycleService(repo repository.TicketRepository) *LifecycleService {
	return NewLifecycleService(LifecycleDependencies{TicketRepo: repo})
}

func validEvent() SourceEvent {
	return SourceEvent{
		Source:     domain.SourceAlertAction,
		Severity:   "critical",
		ActionType: "review_quote",
		Category:   "pricing",
		Title:      "Review quote for Acme Metals",
		Customer:   domain.CustomerContext{Name: "Acme Metals"},
		Actor:      "j.alvarez",
	}
}

func TestCreateTicket_FromCriticalEvent(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Len(t, ticket.Activity, 1)
	assert.Equal(t, domain.ActivityCreated, ticket.Activity[0].Action)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
	assert.Nil(t, ticket.CompletedAt)
	assert.NotEmpty(t, ticket.ID)
}

func TestCreateTicket_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	missingAction := validEvent()
	missingAction.ActionType = "  "
	_, err := svc.CreateTicket(ctx, missingAction)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	missingCustomer := validEvent()
	missingCustomer.Customer = domain.CustomerContext{}
	_, err = svc.CreateTicket(ctx, missingCustomer)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateTicket_SeverityMapping(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	tests := []struct {
		severity string
		want     domain.TicketPriority
	}{
		{"critical", domain.TicketPriorityCritical},
		{"HIGH", domain.TicketPriorityHigh},
		{"opportunity", domain.TicketPriorityMedium},
		{"", domain.TicketPriorityMedium},
	}
	for _, tt := range tests {
		event := validEvent()
		event.Severity = tt.severity
		ticket, err := svc.CreateTicket(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ticket.Priority, "severity %q", tt.severity)
	}
}

func TestTransition_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	inProgress, err := svc.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "m.chen", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, inProgress.Status)
	assert.Nil(t, inProgress.CompletedAt)

	completed, err := svc.Transition(ctx, ticket.ID, domain.TicketStatusCompleted, "m.chen", "done")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	require.Len(t, completed.Activity, 3)
	assert.Equal(t, domain.ActivityCreated, completed.Activity[0].Action)
	for i := 1; i < len(completed.Activity); i++ {
		assert.False(t, completed.Activity[i].At.Before(completed.Activity[i-1].At),
			"activity timestamps must be non-decreasing")
	}
}

func TestTransition_DirectCompleteRejected(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, ticket.ID, domain.TicketStatusCompleted, "m.chen", "")
	assert.True(t, util.IsCode(err, "INVALID_TRANSITION"))

	// state untouched
	stored, err := svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Len(t, stored.Activity, 1)
}

func TestTransition_TerminalTicketRejectsEverything(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)
	_, err = svc.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "m.chen", "")
	require.NoError(t, err)
	completed, err := svc.Transition(ctx, ticket.ID, domain.TicketStatusCompleted, "m.chen", "")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, ticket.ID, domain.TicketStatusOpen, "m.chen", "")
	assert.True(t, util.IsCode(err, "INVALID_TRANSITION"))

	stored, err := svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, stored.Status)
	assert.Equal(t, completed.CompletedAt.Unix(), stored.CompletedAt.Unix())
}

func TestTransition_CancelLeavesCompletedAtNil(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	cancelled, err := svc.Transition(ctx, ticket.ID, domain.TicketStatusCancelled, "m.chen", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)
}

func TestTransition_DefaultNotes(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	updated, err := svc.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "m.chen", "")
	require.NoError(t, err)
	last := updated.Activity[len(updated.Activity)-1]
	assert.Equal(t, "status changed from OPEN to IN_PROGRESS", last.Notes)
	assert.Equal(t, "m.chen", last.By)
}

func TestTransition_UnknownTicket(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	_, err := svc.Transition(ctx, "TCK-missing", domain.TicketStatusInProgress, "m.chen", "")
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestTransition_UnknownTargetStatus(t *testing.T) {
	ctx := context.Background()
	svc := newLifecycleService(repository.NewMemoryTicketRepository())

	_, err := svc.Transition(ctx, "TCK-1", domain.TicketStatus("ARCHIVED"), "m.chen", "")
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

// conflictingTicketRepo fails the first n updates with a version conflict,
// then delegates. It simulates the scheduler racing a user transition.
type conflictingTicketRepo struct {
	repository.TicketRepository
	remaining int
}

func (r *conflictingTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if r.remaining > 0 {
		r.remaining--
		return repository.ErrVersionConflict
	}
	return r.TicketRepository.Update(ctx, ticket)
}

func TestTransition_RetriesVersionConflict(t *testing.T) {
	ctx := context.Background()
	inner := repository.NewMemoryTicketRepository()
	repo := &conflictingTicketRepo{TicketRepository: inner, remaining: 1}
	svc := newLifecycleService(repo)

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	updated, err := svc.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "m.chen", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestTransition_SurfacesConflictAfterRetryBudget(t *testing.T) {
	ctx := context.Background()
	inner := repository.NewMemoryTicketRepository()
	repo := &conflictingTicketRepo{TicketRepository: inner, remaining: 10}
	svc := newLifecycleService(repo)

	ticket, err := svc.CreateTicket(ctx, validEvent())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "m.chen", "")
	assert.True(t, util.IsCode(err, "CONCURRENCY_CONFLICT"))
}

func TestListTickets_NoCriteriaPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryTicketRepository()
	svc := newLifecycleService(repo)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"TCK-c", "TCK-b", "TCK-a"} {
		ticket := &domain.Ticket{
			ID:        id,
			Source:    domain.SourceManualEntry,
			Status:    domain.TicketStatusOpen,
			Priority:  domain.TicketPriorityLow,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
			Version:   1,
			Activity:  []domain.ActivityLogEntry{{Action: domain.ActivityCreated, At: base}},
		}
		require.NoError(t, repo.Create(ctx, ticket))
	}

	listed, err := svc.ListTickets(ctx, TicketCriteria{})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "TCK-a", listed[0].ID)
	assert.Equal(t, "TCK-b", listed[1].ID)
	assert.Equal(t, "TCK-c", listed[2].ID)
}
