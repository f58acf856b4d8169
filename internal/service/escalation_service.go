package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/spec-kit/command-tower/internal/domain"
	"github.com/spec-kit/command-tower/internal/events"
	"github.com/spec-kit/command-tower/internal/repository"
	"github.com/spec-kit/command-tower/pkg/util"
)

// SchedulerItemError wraps a single action's failure during a sweep. It is
// logged and skipped; it never aborts the sweep for other actions.
type SchedulerItemError struct {
	ActionID string
	Err      error
}

func (e *SchedulerItemError) Error() string {
	return fmt.Sprintf("sweep item %s: %v", e.ActionID, e.Err)
}

func (e *SchedulerItemError) Unwrap() error {
	return e.Err
}

// SweepReport summarizes one escalation sweep.
type SweepReport struct {
	Scanned   int
	Escalated int
	Skipped   int
	Failed    int
}

// ActionInput describes a newly detected overdue obligation from the
// monitored-asset telemetry feed.
type ActionInput struct {
	AssetID          string
	DaysOverdue      int
	RequiredAction   string
	AccountableOwner string
	BackupOwner      string
	SLAWindowDays    int
	RevenueAtRisk    float64
	MarginPerDay     float64
}

// EscalationService owns escalatable actions: creation, the periodic SLA
// sweep, the presentation queue and workflow advances.
type EscalationService struct {
	actions      repository.ActionRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	queryTimeout time.Duration
	now          func() time.Time
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	ActionRepo   repository.ActionRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	QueryTimeout time.Duration
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	timeout := deps.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		actions:      deps.ActionRepo,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		queryTimeout: timeout,
		now:          time.Now,
	}
}

// CreateAction registers an overdue obligation at escalation level 1 with an
// empty workflow.
func (s *EscalationService) CreateAction(ctx context.Context, input ActionInput) (*domain.EscalatableAction, error) {
	if strings.TrimSpace(input.AssetID) == "" {
		return nil, util.NewValidationError("asset_id required", nil)
	}
	if strings.TrimSpace(input.RequiredAction) == "" {
		return nil, util.NewValidationError("required_action required", nil)
	}
	if strings.TrimSpace(input.AccountableOwner) == "" {
		return nil, util.NewValidationError("accountable_owner required", nil)
	}
	if input.SLAWindowDays <= 0 {
		return nil, util.NewValidationError("sla_window_days must be positive", map[string]any{"sla_window_days": input.SLAWindowDays})
	}

	now := s.now()
	action := &domain.EscalatableAction{
		ID:               generateKey("ACT"),
		AssetID:          input.AssetID,
		DaysOverdue:      input.DaysOverdue,
		RequiredAction:   input.RequiredAction,
		OwnerType:        domain.OwnerTypeForLevel(domain.EscalationLevelMin),
		AccountableOwner: input.AccountableOwner,
		BackupOwner:      input.BackupOwner,
		EscalationLevel:  domain.EscalationLevelMin,
		WorkflowStatus:   domain.WorkflowNotSent,
		SLAWindowDays:    input.SLAWindowDays,
		RevenueAtRisk:    input.RevenueAtRisk,
		MarginPerDay:     input.MarginPerDay,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
		Events: []domain.ActivityLogEntry{{
			Action: domain.ActivityCreated,
			By:     "telemetry",
			At:     now,
			Notes:  fmt.Sprintf("detected on asset %s", input.AssetID),
		}},
	}

	err := retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		return s.actions.Create(opCtx, action)
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventActionCreated,
		EntityID: action.ID,
		Actor:    "telemetry",
		Payload: events.ActionCreatedPayload{
			AssetID:        action.AssetID,
			RequiredAction: action.RequiredAction,
			SLAWindowDays:  action.SLAWindowDays,
		},
	})
	return action, nil
}

// Sweep walks every unresolved action once, escalating those whose current
// breach window has not been acted on yet. Running the sweep again with
// unchanged inputs is a no-op. A single action's failure is logged and
// counted, never fatal.
func (s *EscalationService) Sweep(ctx context.Context) (SweepReport, error) {
	var actionList []domain.EscalatableAction
	err := retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		var err error
		actionList, err = s.actions.ListUnresolved(opCtx)
		return err
	})
	if err != nil {
		return SweepReport{}, util.NewInternalError(err)
	}

	report := SweepReport{Scanned: len(actionList)}
	for i := range actionList {
		action := actionList[i]
		escalated, err := s.sweepOne(ctx, &action)
		if err != nil {
			report.Failed++
			itemErr := &SchedulerItemError{ActionID: action.ID, Err: err}
			s.logger.Warn("sweep item failed",
				zap.String("action_id", action.ID),
				zap.Error(itemErr))
			continue
		}
		if escalated {
			report.Escalated++
		} else {
			report.Skipped++
		}
	}

	s.logger.Info("escalation sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("escalated", report.Escalated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *EscalationService) sweepOne(ctx context.Context, action *domain.EscalatableAction) (bool, error) {
	if action.SLAWindowDays <= 0 {
		return false, fmt.Errorf("malformed sla window: %d", action.SLAWindowDays)
	}
	if !action.EscalationPending() {
		return false, nil
	}

	now := s.now()
	oldLevel := action.EscalationLevel
	if action.EscalationLevel < domain.EscalationLevelMax {
		action.EscalationLevel++
	}
	overdue := action.DaysOverdue
	action.LastEscalatedOverdueDays = &overdue
	action.UpdatedAt = now

	levelChanged := action.EscalationLevel != oldLevel
	if levelChanged {
		action.OwnerType = domain.OwnerTypeForLevel(action.EscalationLevel)
		action.Events = append(action.Events, domain.ActivityLogEntry{
			Action: domain.ActivityEscalated,
			By:     "scheduler",
			At:     now,
			Notes: fmt.Sprintf("escalated to level %d (%s), %d days overdue against %d day SLA",
				action.EscalationLevel, action.OwnerType, action.DaysOverdue, action.SLAWindowDays),
		})
	}

	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.actions.Update(opCtx, action); err != nil {
		// A lost version race means another writer already advanced this
		// action; the next sweep re-evaluates it.
		return false, err
	}

	if levelChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventActionEscalated,
			EntityID: action.ID,
			Actor:    "scheduler",
			Payload: events.ActionEscalatedPayload{
				AssetID:     action.AssetID,
				OldLevel:    oldLevel,
				NewLevel:    action.EscalationLevel,
				OwnerType:   action.OwnerType,
				DaysOverdue: action.DaysOverdue,
			},
		})
	}
	return levelChanged, nil
}

// Queue returns the unresolved actions ordered for the "who must act now"
// view: margin per day descending, ties by revenue at risk descending, then
// days overdue descending. The ordering is a derived view recomputed on each
// read, never a stored mutation.
func (s *EscalationService) Queue(ctx context.Context) ([]domain.EscalatableAction, error) {
	var actionList []domain.EscalatableAction
	err := retryTransient(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		var err error
		actionList, err = s.actions.ListUnresolved(opCtx)
		return err
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	sort.SliceStable(actionList, func(i, j int) bool {
		a, b := &actionList[i], &actionList[j]
		if a.MarginPerDay != b.MarginPerDay {
			return a.MarginPerDay > b.MarginPerDay
		}
		if a.RevenueAtRisk != b.RevenueAtRisk {
			return a.RevenueAtRisk > b.RevenueAtRisk
		}
		return a.DaysOverdue > b.DaysOverdue
	})
	return actionList, nil
}

// AdvanceWorkflow moves an action's workflow status forward. Regressions and
// unknown statuses are rejected with InvalidTransition; reaching Resolved
// closes the action.
func (s *EscalationService) AdvanceWorkflow(ctx context.Context, actionID string, newStatus domain.WorkflowStatus, actor string) (*domain.EscalatableAction, error) {
	if domain.WorkflowRank(newStatus) < 0 {
		return nil, util.NewValidationError("unknown workflow status", map[string]any{"workflow_status": newStatus})
	}
	if actor == "" {
		actor = "system"
	}

	var updated *domain.EscalatableAction
	var oldStatus domain.WorkflowStatus
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		action, err := s.actions.GetByID(opCtx, actionID)
		if err != nil {
			return err
		}
		if !domain.CanAdvanceWorkflow(action.WorkflowStatus, newStatus) {
			return util.NewInvalidTransition(
				fmt.Sprintf("workflow cannot move from %s to %s", action.WorkflowStatus, newStatus),
				map[string]any{"current_status": action.WorkflowStatus, "target_status": newStatus})
		}

		now := s.now()
		oldStatus = action.WorkflowStatus
		action.WorkflowStatus = newStatus
		action.UpdatedAt = now
		if newStatus == domain.WorkflowResolved {
			action.ResolvedAt = &now
		}
		action.Events = append(action.Events, domain.ActivityLogEntry{
			Action: domain.ActivityWorkflowAdvanced,
			By:     actor,
			At:     now,
			Notes:  fmt.Sprintf("workflow advanced from %s to %s", oldStatus, newStatus),
		})

		updateCtx, cancelUpdate := context.WithTimeout(ctx, s.queryTimeout)
		defer cancelUpdate()
		if err := s.actions.Update(updateCtx, action); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		updated = action
		return nil
	})
	if err != nil {
		return nil, s.mapActionError(err, actionID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventActionWorkflowAdvanced,
		EntityID: updated.ID,
		Actor:    actor,
		Payload: events.ActionWorkflowAdvancedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.WorkflowStatus,
		},
	})
	return updated, nil
}

func (s *EscalationService) mapActionError(err error, actionID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return util.NewNotFound("action", map[string]any{"id": actionID})
	case errors.Is(err, repository.ErrVersionConflict):
		return util.NewConcurrencyConflict("action", map[string]any{"id": actionID})
	}
	var domainErr *util.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return util.NewInternalError(err)
}

func (s *EscalationService) publishEvent(ctx context.Context, event events.Event) {
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
