package service

import (
	"strings"

	"github.com/spec-kit/command-tower/internal/domain"
)

// TicketCriteria captures the compound filter the presentation layer sends.
// All provided criteria combine with AND semantics. Query performs
// case-insensitive substring matching across title, description, customer
// name, id and action label, matching when any field contains it.
type TicketCriteria struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Category *string
	Source   *domain.TicketSource
	Query    string
}

// IsZero reports whether no criterion was supplied.
func (c TicketCriteria) IsZero() bool {
	return c.Status == nil && c.Priority == nil && c.Category == nil &&
		c.Source == nil && strings.TrimSpace(c.Query) == ""
}

// FilterTickets is a pure function over the ticket collection. With zero
// criteria it returns the input unchanged, preserving order.
func FilterTickets(tickets []domain.Ticket, criteria TicketCriteria) []domain.Ticket {
	if criteria.IsZero() {
		return tickets
	}

	query := strings.ToLower(strings.TrimSpace(criteria.Query))
	result := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if criteria.Status != nil && ticket.Status != *criteria.Status {
			continue
		}
		if criteria.Priority != nil && ticket.Priority != *criteria.Priority {
			continue
		}
		if criteria.Category != nil && ticket.Category != *criteria.Category {
			continue
		}
		if criteria.Source != nil && ticket.Source != *criteria.Source {
			continue
		}
		if query != "" && !matchesQuery(&ticket, query) {
			continue
		}
		result = append(result, ticket)
	}
	return result
}

func matchesQuery(ticket *domain.Ticket, query string) bool {
	for _, field := range []string{
		ticket.Title,
		ticket.Description,
		ticket.CustomerContext.Name,
		ticket.ID,
		ticket.ActionType,
	} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
