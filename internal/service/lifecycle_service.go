package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/events"
	"github.com/spec-kit/command-tower/internal/repository"
	"github.com/spec-kit/command-tower/pkg/util"
)

const (
	// conflictRetries bounds transparent retries of a read-modify-write that
	// lost an optimistic version race before CONCURRENCY_CONFLICT surfaces.
	conflictRetries = 2

	// transientRetries bounds retries of repository calls that failed for
	// transport reasons.
	transientRetries = 2

	retryBackoff = 25 * time.Millisecond

	defaultQueryTimeout = 5 * time.Second
)

// SourceEvent is the upstream payload a ticket is created from: an alert
// action, an automated agent run, a manual entry or a system trigger.
type SourceEvent struct {
	Source            domain.TicketSource
	SourceReferenceID *string
	Severity          string
	ActionType        string
	Category          string
	Title             string
	Description       string
	Customer          domain.CustomerContext
	QuoteID           *string
	Material          string
	RevenueImpact     float64
	DueDate           *time.Time
	Actor             string
	AssignedTo        string
	RelatedAlerts     []string
	Tags              []string
}

// LifecycleService creates tickets from source events and drives them
// through the status graph.
type LifecycleService struct {
	tickets      repository.TicketRepository
	dispatcher   events.Dispatcher
	queryTimeout time.Duration
	now          func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo   repository.TicketRepository
	Dispatcher   events.Dispatcher
	QueryTimeout time.Duration
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	timeout := deps.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &LifecycleService{
		tickets:      deps.TicketRepo,
		dispatcher:   deps.Dispatcher,
		queryTimeout: timeout,
		now:          time.Now,
	}
}

// CreateTicket maps a source event to a new Open ticket with a single
// "created" activity entry. Priority derives from the event severity and is
// immutable afterwards.
func (s *LifecycleService) CreateTicket(ctx context.Context, event SourceEvent) (*domain.Ticket, error) {
	if strings.TrimSpace(event.ActionType) == "" {
		return nil, util.NewValidationError("action_type required", nil)
	}
	if strings.TrimSpace(event.Customer.Name) == "" {
		return nil, util.NewValidationError("customer context required", nil)
	}
	source := event.Source
	if source == "" {
		source = domain.SourceManualEntry
	}

	now := s.now()
	actor := event.Actor
	if actor == "" {
		actor = "system"
	}
	assignee := event.AssignedTo
	if assignee == "" {
		assignee = actor
	}

	ticket := &domain.Ticket{
		ID:                generateKey("TCK"),
		Source:            source,
		SourceReferenceID: event.SourceReferenceID,
		ActionType:        event.ActionType,
		Category:          event.Category,
		Title:             strings.TrimSpace(event.Title),
		Description:       strings.TrimSpace(event.Description),
		CustomerContext:   event.Customer,
		QuoteID:           event.QuoteID,
		Material:          event.Material,
		RevenueImpact:     event.RevenueImpact,
		Status:            domain.TicketStatusOpen,
		Priority:          domain.PriorityFromSeverity(strings.ToLower(event.Severity)),
		CreatedBy:         actor,
		AssignedTo:        assignee,
		CreatedAt:         now,
		UpdatedAt:         now,
		DueDate:           event.DueDate,
		RelatedAlerts:     event.RelatedAlerts,
		Tags:              event.Tags,
		Version:           1,
		Activity: []domain.ActivityLogEntry{{
			Action: domain.ActivityCreated,
			By:     actor,
			At:     now,
			Notes:  fmt.Sprintf("created from %s", source),
		}},
	}

	if err := s.createWithRetry(ctx, ticket); err != nil {
		return nil, util.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Source:   ticket.Source,
			Priority: ticket.Priority,
			Category: ticket.Category,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// Transition moves a ticket to targetStatus when the status graph allows the
// edge. The status update, timestamps and the appended activity entry are
// applied as a single repository write; version races against the scheduler
// or another caller are retried transparently a bounded number of times.
func (s *LifecycleService) Transition(ctx context.Context, ticketID string, targetStatus domain.TicketStatus, actor, notes string) (*domain.Ticket, error) {
	if !domain.IsValidStatus(targetStatus) {
		return nil, util.NewValidationError("unknown target status", map[string]any{"target_status": targetStatus})
	}
	if actor == "" {
		actor = "system"
	}

	var (
		updated   *domain.Ticket
		oldStatus domain.TicketStatus
	)
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ticket, err := s.getTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(ticket.Status, targetStatus) {
			return util.NewInvalidTransition(
				fmt.Sprintf("cannot transition from %s to %s", ticket.Status, targetStatus),
				map[string]any{"current_status": ticket.Status, "target_status": targetStatus})
		}

		now := s.now()
		oldStatus = ticket.Status
		ticket.Status = targetStatus
		ticket.UpdatedAt = now
		if targetStatus == domain.TicketStatusCompleted {
			ticket.CompletedAt = &now
		} else {
			ticket.CompletedAt = nil
		}

		entryNotes := notes
		if entryNotes == "" {
			entryNotes = fmt.Sprintf("status changed from %s to %s", oldStatus, targetStatus)
		}
		ticket.Activity = append(ticket.Activity, domain.ActivityLogEntry{
			Action: domain.ActivityStatusChanged,
			By:     actor,
			At:     now,
			Notes:  entryNotes,
		})

		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		if err := s.tickets.Update(opCtx, ticket); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, s.mapTicketError(err, ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		EntityID: updated.ID,
		Actor:    actor,
		Payload: events.TicketTransitionedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
			Notes:     notes,
		},
	})
	return updated, nil
}

// GetTicket fetches a single ticket.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, s.mapTicketError(err, ticketID)
	}
	return ticket, nil
}

// ListTickets returns the repository snapshot filtered by criteria. With no
// criteria supplied the repository's natural order is returned unchanged.
func (s *LifecycleService) ListTickets(ctx context.Context, criteria TicketCriteria) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		var err error
		tickets, err = s.tickets.List(opCtx)
		return err
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return FilterTickets(tickets, criteria), nil
}

func (s *LifecycleService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		var err error
		ticket, err = s.tickets.GetByID(opCtx, ticketID)
		return err
	})
	return ticket, err
}

func (s *LifecycleService) createWithRetry(ctx context.Context, ticket *domain.Ticket) error {
	return retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		return s.tickets.Create(opCtx, ticket)
	})
}

func (s *LifecycleService) mapTicketError(err error, ticketID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return util.NewNotFound("ticket", map[string]any{"id": ticketID})
	case errors.Is(err, repository.ErrVersionConflict):
		return util.NewConcurrencyConflict("ticket", map[string]any{"id": ticketID})
	}
	var domainErr *util.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return util.NewInternalError(err)
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// retryTransient retries fn with constant backoff on non-domain failures,
// never indefinitely. Repository sentinels and domain errors abort at once.
func retryTransient(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(transientRetries, retry.NewConstant(retryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		var domainErr *util.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func generateKey(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
