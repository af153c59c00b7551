package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/services"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

type WorkerPolicy struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
	PollInterval time.Duration
}

func DefaultWorkerPolicy() WorkerPolicy {
	return WorkerPolicy{
		MaxAttempts:  5,
		RetryDelay:   30 * time.Second,
		StaleRunning: 2 * time.Minute,
		PollInterval: 1 * time.Second,
	}
}

// Worker drains the denorm task outbox: it claims one runnable task at a
// time and replays it through the denorm service. A failed or panicking task
// is marked failed and retried later under the policy.
type Worker struct {
	db     *gorm.DB
	log    *logger.Logger
	tasks  repos.DenormTaskRepo
	denorm services.DenormService
	policy WorkerPolicy
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, tasks repos.DenormTaskRepo, denorm services.DenormService, policy WorkerPolicy) *Worker {
	if policy.PollInterval <= 0 {
		policy = DefaultWorkerPolicy()
	}
	return &Worker{
		db:     db,
		log:    baseLog.With("component", "DenormWorker"),
		tasks:  tasks,
		denorm: denorm,
		policy: policy,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.policy.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				task, err := w.tasks.ClaimNextRunnable(ctx, nil, w.policy.MaxAttempts, w.policy.RetryDelay, w.policy.StaleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if task == nil {
					continue
				}
				w.runTask(ctx, task)
			}
		}
	}()
}

func (w *Worker) runTask(ctx context.Context, task *types.DenormTask) {
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("denorm task panic", "task_id", task.ID, "kind", task.Kind, "panic", r)
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		runErr = w.Execute(ctx, task)
	}()

	if runErr != nil {
		w.log.Warn("denorm task failed", "task_id", task.ID, "kind", task.Kind, "error", runErr)
		if err := w.tasks.MarkFailed(ctx, nil, task.ID, runErr, w.policy.RetryDelay); err != nil {
			w.log.Error("failed to mark denorm task failed", "task_id", task.ID, "error", err)
		}
		return
	}
	if err := w.tasks.MarkDone(ctx, nil, task.ID); err != nil {
		w.log.Error("failed to mark denorm task done", "task_id", task.ID, "error", err)
	}
}

// Execute replays one task against the denorm service.
func (w *Worker) Execute(ctx context.Context, task *types.DenormTask) error {
	switch task.Kind {
	case types.DenormTaskKindTargetChange:
		if task.TargetEntryID == nil {
			return fmt.Errorf("task %s missing target entry id", task.ID)
		}
		return w.denorm.RecomputeForTargetChange(ctx, task.WorkspaceID, *task.TargetEntryID)
	case types.DenormTaskKindRelationField:
		if task.RelationFieldID == nil {
			return fmt.Errorf("task %s missing relation field id", task.ID)
		}
		var fromEntryIDs []uuid.UUID
		if len(task.FromEntryIDs) > 0 {
			if err := json.Unmarshal(task.FromEntryIDs, &fromEntryIDs); err != nil {
				return fmt.Errorf("task %s has malformed from_entry_ids: %w", task.ID, err)
			}
		}
		return w.denorm.RecomputeForRelationField(ctx, task.WorkspaceID, *task.RelationFieldID, fromEntryIDs)
	default:
		return fmt.Errorf("task %s has unknown kind %q", task.ID, task.Kind)
	}
}
