package fixture

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spec-kit/command-tower/internal/domain"
)

// Deterministic fixture generators for demo seeding and tests. The same seed
// always produces the same records; nothing here uses the global rand source.

var (
	sources = []domain.TicketSource{
		domain.SourceAlertAction,
		domain.SourceAgentAutomated,
		domain.SourceManualEntry,
		domain.SourceSystemTrigger,
	}
	severities = []string{"critical", "high", "opportunity", "info"}
	categories = []string{"pricing", "inventory", "logistics", "fleet", "margin"}
	actions    = []string{"review_quote", "expedite_shipment", "reprice_material", "recover_asset", "confirm_stock"}
	customers  = []string{"Acme Metals", "Harbor Steel", "Northline Supply", "Vulcan Industrial", "Crescent Alloys"}
	owners     = []string{"j.alvarez", "m.chen", "s.okafor", "t.nguyen", "r.patel"}
	statuses   = []domain.TicketStatus{
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusPendingReview,
		domain.TicketStatusCompleted,
		domain.TicketStatusCancelled,
	}
)

// Tickets generates n deterministic tickets, newest first, anchored at base.
func Tickets(seed int64, n int, base time.Time) []domain.Ticket {
	rng := rand.New(rand.NewSource(seed))
	tickets := make([]domain.Ticket, 0, n)
	for i := 0; i < n; i++ {
		createdAt := base.Add(-time.Duration(i) * time.Hour)
		source := sources[rng.Intn(len(sources))]
		severity := severities[rng.Intn(len(severities))]
		status := statuses[rng.Intn(len(statuses))]
		owner := owners[rng.Intn(len(owners))]
		customer := customers[rng.Intn(len(customers))]

		ticket := domain.Ticket{
			ID:          fmt.Sprintf("TCK-%04d", i+1),
			Source:      source,
			ActionType:  actions[rng.Intn(len(actions))],
			Category:    categories[rng.Intn(len(categories))],
			Title:       fmt.Sprintf("%s for %s", actions[rng.Intn(len(actions))], customer),
			Description: fmt.Sprintf("auto-generated demo record %d", i+1),
			CustomerContext: domain.CustomerContext{
				Name:      customer,
				AccountID: fmt.Sprintf("ACC-%03d", rng.Intn(900)+100),
				Region:    []string{"northeast", "midwest", "gulf"}[rng.Intn(3)],
			},
			Material:      []string{"HRC", "CRC", "rebar", "plate"}[rng.Intn(4)],
			RevenueImpact: float64(rng.Intn(40000)) + 500,
			Status:        status,
			Priority:      domain.PriorityFromSeverity(severity),
			CreatedBy:     owner,
			AssignedTo:    owner,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
			Version:       1,
			Activity: []domain.ActivityLogEntry{{
				Action: domain.ActivityCreated,
				By:     owner,
				At:     createdAt,
				Notes:  fmt.Sprintf("created from %s", source),
			}},
		}
		if status == domain.TicketStatusCompleted {
			completedAt := createdAt.Add(30 * time.Minute)
			ticket.CompletedAt = &completedAt
			ticket.UpdatedAt = completedAt
			ticket.Activity = append(ticket.Activity, domain.ActivityLogEntry{
				Action: domain.ActivityStatusChanged,
				By:     owner,
				At:     completedAt,
				Notes:  "status changed from IN_PROGRESS to COMPLETED",
			})
		}
		tickets = append(tickets, ticket)
	}
	return tickets
}

// Actions generates n deterministic escalatable actions anchored at base.
func Actions(seed int64, n int, base time.Time) []domain.EscalatableAction {
	rng := rand.New(rand.NewSource(seed))
	result := make([]domain.EscalatableAction, 0, n)
	for i := 0; i < n; i++ {
		createdAt := base.Add(-time.Duration(i) * 2 * time.Hour)
		owner := owners[rng.Intn(len(owners))]
		backup := owners[rng.Intn(len(owners))]
		action := domain.EscalatableAction{
			ID:               fmt.Sprintf("ACT-%04d", i+1),
			AssetID:          fmt.Sprintf("KIT-%03d", rng.Intn(900)+100),
			DaysOverdue:      rng.Intn(14),
			RequiredAction:   actions[rng.Intn(len(actions))],
			OwnerType:        domain.OwnerTypeForLevel(domain.EscalationLevelMin),
			AccountableOwner: owner,
			BackupOwner:      backup,
			EscalationLevel:  domain.EscalationLevelMin,
			WorkflowStatus:   domain.WorkflowNotSent,
			SLAWindowDays:    rng.Intn(5) + 1,
			RevenueAtRisk:    float64(rng.Intn(80000)) + 1000,
			MarginPerDay:     float64(rng.Intn(900)) + 50,
			CreatedAt:        createdAt,
			UpdatedAt:        createdAt,
			Version:          1,
			Events: []domain.ActivityLogEntry{{
				Action: domain.ActivityCreated,
				By:     "telemetry",
				At:     createdAt,
			}},
		}
		result = append(result, action)
	}
	return result
}
