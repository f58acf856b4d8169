package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/command-tower/internal/domain"
)

// memoryTicketRepository keeps tickets in a mutex-guarded map. It backs the
// service when no POSTGRES_DSN is configured and the unit tests.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketRepository builds an empty in-memory ticket store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *memoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = copyTicket(*ticket)
	return nil
}

func (r *memoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyTicket(ticket)
	return &out, nil
}

func (r *memoryTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	r.tickets[ticket.ID] = copyTicket(*ticket)
	return nil
}

func (r *memoryTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		result = append(result, copyTicket(ticket))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// memoryActionRepository is the in-memory counterpart for escalatable actions.
type memoryActionRepository struct {
	mu      sync.RWMutex
	actions map[string]domain.EscalatableAction
}

// NewMemoryActionRepository builds an empty in-memory action store.
func NewMemoryActionRepository() ActionRepository {
	return &memoryActionRepository{actions: make(map[string]domain.EscalatableAction)}
}

func (r *memoryActionRepository) Create(ctx context.Context, action *domain.EscalatableAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action.ID] = copyAction(*action)
	return nil
}

func (r *memoryActionRepository) GetByID(ctx context.Context, id string) (*domain.EscalatableAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyAction(action)
	return &out, nil
}

func (r *memoryActionRepository) Update(ctx context.Context, action *domain.EscalatableAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.actions[action.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != action.Version {
		return ErrVersionConflict
	}
	action.Version++
	r.actions[action.ID] = copyAction(*action)
	return nil
}

func (r *memoryActionRepository) List(ctx context.Context) ([]domain.EscalatableAction, error) {
	return r.list(func(domain.EscalatableAction) bool { return true })
}

func (r *memoryActionRepository) ListUnresolved(ctx context.Context) ([]domain.EscalatableAction, error) {
	return r.list(func(a domain.EscalatableAction) bool {
		return a.WorkflowStatus != domain.WorkflowResolved
	})
}

func (r *memoryActionRepository) list(keep func(domain.EscalatableAction) bool) ([]domain.EscalatableAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.EscalatableAction, 0, len(r.actions))
	for _, action := range r.actions {
		if keep(action) {
			result = append(result, copyAction(action))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func copyTicket(t domain.Ticket) domain.Ticket {
	t.Activity = append([]domain.ActivityLogEntry(nil), t.Activity...)
	t.RelatedAlerts = append([]string(nil), t.RelatedAlerts...)
	t.RelatedTickets = append([]string(nil), t.RelatedTickets...)
	t.Tags = append([]string(nil), t.Tags...)
	if t.SourceReferenceID != nil {
		ref := *t.SourceReferenceID
		t.SourceReferenceID = &ref
	}
	if t.QuoteID != nil {
		quote := *t.QuoteID
		t.QuoteID = &quote
	}
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		t.CompletedAt = &completed
	}
	return t
}

func copyAction(a domain.EscalatableAction) domain.EscalatableAction {
	a.Events = append([]domain.ActivityLogEntry(nil), a.Events...)
	if a.LastEscalatedOverdueDays != nil {
		marker := *a.LastEscalatedOverdueDays
		a.LastEscalatedOverdueDays = &marker
	}
	if a.ResolvedAt != nil {
		resolved := *a.ResolvedAt
		a.ResolvedAt = &resolved
	}
	return a
}
