package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

type DenormTaskRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, task *types.DenormTask) (*types.DenormTask, error)
	// ClaimNextRunnable picks one pending (or retryable failed, or stale
	// running) task and marks it running.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.DenormTask, error)
	MarkDone(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr error, retryDelay time.Duration) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DenormTask, error)
}

type denormTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDenormTaskRepo(db *gorm.DB, baseLog *logger.Logger) DenormTaskRepo {
	return &denormTaskRepo{
		db:  db,
		log: baseLog.With("repo", "DenormTaskRepo"),
	}
}

func (r *denormTaskRepo) Enqueue(ctx context.Context, tx *gorm.DB, task *types.DenormTask) (*types.DenormTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if task.Status == "" {
		task.Status = types.DenormTaskPending
	}
	if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (r *denormTaskRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.DenormTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.DenormTask
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var task types.DenormTask
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					(status = ? AND (run_after IS NULL OR run_after <= ?))
					OR (
						status = ?
						AND attempts < ?
						AND (run_after IS NULL OR run_after <= ?)
					)
					OR (
						status = ?
						AND started_at IS NOT NULL
						AND started_at < ?
					)
				)
			`, types.DenormTaskPending, now, types.DenormTaskFailed, maxAttempts, now, types.DenormTaskRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&task).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.DenormTask{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"status":     types.DenormTaskRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"started_at": now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *denormTaskRepo) MarkDone(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	if err := transaction.WithContext(ctx).
		Model(&types.DenormTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      types.DenormTaskDone,
			"finished_at": now,
			"updated_at":  now,
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *denormTaskRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr error, retryDelay time.Duration) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	runAfter := now.Add(retryDelay)
	msg := ""
	if taskErr != nil {
		msg = taskErr.Error()
	}
	if err := transaction.WithContext(ctx).
		Model(&types.DenormTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      types.DenormTaskFailed,
			"last_error":  msg,
			"run_after":   runAfter,
			"finished_at": now,
			"updated_at":  now,
		}).Error; err != nil {
		return err
	}
	return nil
}

func (r *denormTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DenormTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var task types.DenormTask
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
