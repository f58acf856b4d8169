package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/command-tower/internal/domain"
)

// TicketRepository encapsulates ticket persistence. List returns tickets in
// natural order, newest CreatedAt first. Update performs an optimistic write
// against the Version the caller read and returns ErrVersionConflict on a
// mismatch.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	List(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, source, source_reference_id, action_type, category, title, description,
        customer_context, quote_id, material, revenue_impact, status, priority,
        created_by, assigned_to, created_at, updated_at, due_date, completed_at,
        activity, related_alerts, related_tickets, tags, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	customerCtx, activity, relatedAlerts, relatedTickets, tags, err := marshalTicketDocs(ticket)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, source, source_reference_id, action_type, category, title, description,
            customer_context, quote_id, material, revenue_impact, status, priority,
            created_by, assigned_to, created_at, updated_at, due_date, completed_at,
            activity, related_alerts, related_tickets, tags, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`
	_, err = r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Source,
		ticket.SourceReferenceID,
		ticket.ActionType,
		ticket.Category,
		ticket.Title,
		ticket.Description,
		customerCtx,
		ticket.QuoteID,
		ticket.Material,
		ticket.RevenueImpact,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.DueDate,
		ticket.CompletedAt,
		activity,
		relatedAlerts,
		relatedTickets,
		tags,
		ticket.Version,
	)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	customerCtx, activity, relatedAlerts, relatedTickets, tags, err := marshalTicketDocs(ticket)
	if err != nil {
		return err
	}
	// Status, timestamps and the activity append land in one row write so a
	// cancelled request can never leave a partially-applied transition.
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assigned_to=$3, updated_at=$4,
            due_date=$5, completed_at=$6, customer_context=$7, activity=$8,
            related_alerts=$9, related_tickets=$10, tags=$11, version=version+1
        WHERE id=$12 AND version=$13`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.UpdatedAt,
		ticket.DueDate,
		ticket.CompletedAt,
		customerCtx,
		activity,
		relatedAlerts,
		relatedTickets,
		tags,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.classifyMissedWrite(ctx, ticket.ID)
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets ORDER BY created_at DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) classifyMissedWrite(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket         domain.Ticket
		customerCtx    []byte
		activity       []byte
		relatedAlerts  []byte
		relatedTickets []byte
		tags           []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Source,
		&ticket.SourceReferenceID,
		&ticket.ActionType,
		&ticket.Category,
		&ticket.Title,
		&ticket.Description,
		&customerCtx,
		&ticket.QuoteID,
		&ticket.Material,
		&ticket.RevenueImpact,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DueDate,
		&ticket.CompletedAt,
		&activity,
		&relatedAlerts,
		&relatedTickets,
		&tags,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(customerCtx, &ticket.CustomerContext); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(activity, &ticket.Activity); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(relatedAlerts, &ticket.RelatedAlerts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(relatedTickets, &ticket.RelatedTickets); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &ticket.Tags); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func marshalTicketDocs(ticket *domain.Ticket) (customerCtx, activity, relatedAlerts, relatedTickets, tags []byte, err error) {
	if customerCtx, err = json.Marshal(ticket.CustomerContext); err != nil {
		return
	}
	if activity, err = marshalSlice(ticket.Activity); err != nil {
		return
	}
	if relatedAlerts, err = marshalSlice(ticket.RelatedAlerts); err != nil {
		return
	}
	if relatedTickets, err = marshalSlice(ticket.RelatedTickets); err != nil {
		return
	}
	tags, err = marshalSlice(ticket.Tags)
	return
}

func marshalSlice[T any](items []T) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}
