package service

import (
	"context"
	"time"

	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/repository"
	"github.com/spec-kit/command-tower/pkg/util"
)

// Stats is the rollup consumed by the KPI cards. The sum of ByStatus values
// always equals Total.
type Stats struct {
	Total            int                           `json:"total"`
	ByStatus         map[domain.TicketStatus]int   `json:"by_status"`
	BySource         map[domain.TicketSource]int   `json:"by_source"`
	ByCategory       map[string]int                `json:"by_category"`
	ByPriority       map[domain.TicketPriority]int `json:"by_priority"`
	CompletedToday   int                           `json:"completed_today"`
	CompletedRevenue float64                       `json:"completed_revenue"`
}

// ComputeStats produces the rollup in a single pass over the collection.
// Nothing is cached; callers re-invoke after mutations.
func ComputeStats(tickets []domain.Ticket, now time.Time) Stats {
	stats := Stats{
		Total:      len(tickets),
		ByStatus:   make(map[domain.TicketStatus]int),
		BySource:   make(map[domain.TicketSource]int),
		ByCategory: make(map[string]int),
		ByPriority: make(map[domain.TicketPriority]int),
	}
	year, month, day := now.Date()
	for i := range tickets {
		ticket := &tickets[i]
		stats.ByStatus[ticket.Status]++
		stats.BySource[ticket.Source]++
		if ticket.Category != "" {
			stats.ByCategory[ticket.Category]++
		}
		stats.ByPriority[ticket.Priority]++
		if ticket.Status == domain.TicketStatusCompleted {
			stats.CompletedRevenue += ticket.RevenueImpact
			if ticket.CompletedAt != nil {
				cy, cm, cd := ticket.CompletedAt.Date()
				if cy == year && cm == month && cd == day {
					stats.CompletedToday++
				}
			}
		}
	}
	return stats
}

// StatsService computes rollups from the current repository snapshot on
// demand.
type StatsService struct {
	tickets      repository.TicketRepository
	queryTimeout time.Duration
	now          func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository, queryTimeout time.Duration) *StatsService {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &StatsService{tickets: tickets, queryTimeout: queryTimeout, now: time.Now}
}

// GetStats recomputes the rollup from a fresh repository snapshot.
func (s *StatsService) GetStats(ctx context.Context) (Stats, error) {
	var tickets []domain.Ticket
	err := retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		var err error
		tickets, err = s.tickets.List(opCtx)
		return err
	})
	if err != nil {
		return Stats{}, util.NewInternalError(err)
	}
	return ComputeStats(tickets, s.now()), nil
}
