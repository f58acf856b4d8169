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

// ActionRepository encapsulates escalatable action persistence. Update uses
// the same optimistic version check as tickets.
type ActionRepository interface {
	Create(ctx context.Context, action *domain.EscalatableAction) error
	GetByID(ctx context.Context, id string) (*domain.EscalatableAction, error)
	Update(ctx context.Context, action *domain.EscalatableAction) error
	List(ctx context.Context) ([]domain.EscalatableAction, error)
	ListUnresolved(ctx context.Context) ([]domain.EscalatableAction, error)
}

type actionRepository struct {
	pool *pgxpool.Pool
}

// NewActionRepository instantiates the postgres-backed repository.
func NewActionRepository(pool *pgxpool.Pool) ActionRepository {
	return &actionRepository{pool: pool}
}

const actionColumns = `id, asset_id, days_overdue, required_action, owner_type, accountable_owner,
        backup_owner, escalation_level, workflow_status, sla_window_days, revenue_at_risk,
        margin_per_day, last_escalated_overdue_days, events, created_at, updated_at,
        resolved_at, version`

func (r *actionRepository) Create(ctx context.Context, action *domain.EscalatableAction) error {
	events, err := marshalSlice(action.Events)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO escalatable_actions (id, asset_id, days_overdue, required_action, owner_type,
            accountable_owner, backup_owner, escalation_level, workflow_status, sla_window_days,
            revenue_at_risk, margin_per_day, last_escalated_overdue_days, events, created_at,
            updated_at, resolved_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err = r.pool.Exec(ctx, query,
		action.ID,
		action.AssetID,
		action.DaysOverdue,
		action.RequiredAction,
		action.OwnerType,
		action.AccountableOwner,
		action.BackupOwner,
		action.EscalationLevel,
		action.WorkflowStatus,
		action.SLAWindowDays,
		action.RevenueAtRisk,
		action.MarginPerDay,
		action.LastEscalatedOverdueDays,
		events,
		action.CreatedAt,
		action.UpdatedAt,
		action.ResolvedAt,
		action.Version,
	)
	return err
}

func (r *actionRepository) GetByID(ctx context.Context, id string) (*domain.EscalatableAction, error) {
	query := fmt.Sprintf(`SELECT %s FROM escalatable_actions WHERE id=$1`, actionColumns)
	action, err := scanAction(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (r *actionRepository) Update(ctx context.Context, action *domain.EscalatableAction) error {
	events, err := marshalSlice(action.Events)
	if err != nil {
		return err
	}
	const query = `
        UPDATE escalatable_actions SET days_overdue=$1, owner_type=$2, escalation_level=$3,
            workflow_status=$4, last_escalated_overdue_days=$5, events=$6, updated_at=$7,
            resolved_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := r.pool.Exec(ctx, query,
		action.DaysOverdue,
		action.OwnerType,
		action.EscalationLevel,
		action.WorkflowStatus,
		action.LastEscalatedOverdueDays,
		events,
		action.UpdatedAt,
		action.ResolvedAt,
		action.ID,
		action.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.classifyMissedWrite(ctx, action.ID)
	}
	action.Version++
	return nil
}

func (r *actionRepository) List(ctx context.Context) ([]domain.EscalatableAction, error) {
	query := fmt.Sprintf(`SELECT %s FROM escalatable_actions ORDER BY created_at DESC`, actionColumns)
	return r.queryActions(ctx, query)
}

func (r *actionRepository) ListUnresolved(ctx context.Context) ([]domain.EscalatableAction, error) {
	query := fmt.Sprintf(`SELECT %s FROM escalatable_actions WHERE workflow_status != $1 ORDER BY created_at DESC`, actionColumns)
	return r.queryActions(ctx, query, domain.WorkflowResolved)
}

func (r *actionRepository) queryActions(ctx context.Context, query string, args ...any) ([]domain.EscalatableAction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalatableAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *action)
	}
	return result, rows.Err()
}

func (r *actionRepository) classifyMissedWrite(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM escalatable_actions WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func scanAction(row rowScanner) (*domain.EscalatableAction, error) {
	var (
		action domain.EscalatableAction
		events []byte
	)
	if err := row.Scan(
		&action.ID,
		&action.AssetID,
		&action.DaysOverdue,
		&action.RequiredAction,
		&action.OwnerType,
		&action.AccountableOwner,
		&action.BackupOwner,
		&action.EscalationLevel,
		&action.WorkflowStatus,
		&action.SLAWindowDays,
		&action.RevenueAtRisk,
		&action.MarginPerDay,
		&action.LastEscalatedOverdueDays,
		&events,
		&action.CreatedAt,
		&action.UpdatedAt,
		&action.ResolvedAt,
		&action.Version,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(events, &action.Events); err != nil {
		return nil, err
	}
	return &action, nil
}
