package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/command-tower/internal/config"
	"github.com/spec-kit/command-tower/internal/observability"
	"github.com/spec-kit/command-tower/internal/persistence"
	"github.com/spec-kit/command-tower/internal/service"
)

const sweepLockKey = "command-tower:escalation:sweep"

// EscalationWorker drives the periodic escalation sweep independently of any
// request. One sweep runs at a time across all instances, guarded by a Redis
// lock when Redis is configured.
type EscalationWorker struct {
	escalations *service.EscalationService
	redis       *persistence.Redis
	metrics     *observability.Metrics
	logger      *zap.Logger
	cfg         config.SchedulerConfig
	holderID    string
}

// NewEscalationWorker constructs the worker.
func NewEscalationWorker(escalations *service.EscalationService, redis *persistence.Redis, metrics *observability.Metrics, logger *zap.Logger, cfg config.SchedulerConfig) *EscalationWorker {
	return &EscalationWorker{
		escalations: escalations,
		redis:       redis,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		holderID:    uuid.NewString(),
	}
}

// Start launches the sweep loop. It returns immediately; the loop stops when
// ctx is cancelled.
func (w *EscalationWorker) Start(ctx context.Context) {
	if !w.cfg.Enabled {
		w.logger.Info("escalation worker disabled")
		return
	}
	go w.run(ctx)
}

func (w *EscalationWorker) run(ctx context.Context) {
	interval := w.cfg.SweepInterval()
	w.logger.Info("escalation worker started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single guarded sweep. Sweep failures are logged, never
// fatal to the loop.
func (w *EscalationWorker) RunOnce(ctx context.Context) {
	acquired, err := w.redis.AcquireLock(ctx, sweepLockKey, w.holderID, w.cfg.LockTTLSeconds)
	if err != nil {
		w.logger.Warn("sweep lock unavailable, running unguarded", zap.Error(err))
	} else if !acquired {
		w.logger.Debug("sweep lock held elsewhere, skipping")
		return
	}
	if acquired {
		defer func() {
			if err := w.redis.ReleaseLock(ctx, sweepLockKey, w.holderID); err != nil {
				w.logger.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	report, err := w.escalations.Sweep(ctx)
	if err != nil {
		w.logger.Error("escalation sweep failed", zap.Error(err))
		return
	}
	w.metrics.RecordSweep(report.Scanned, report.Escalated, report.Skipped, report.Failed)
}
