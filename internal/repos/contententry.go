package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

type ContentEntryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.ContentEntry) (*types.ContentEntry, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentEntry, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentEntry, error)
	// GetSummariesByIDs fetches entries scoped to the workspace;
	// publishedOnly filters to is_published = true.
	GetSummariesByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID, publishedOnly bool) ([]*types.ContentEntry, error)
	ListByContentType(ctx context.Context, tx *gorm.DB, workspaceID, contentTypeID uuid.UUID, publishedOnly bool) ([]*types.ContentEntry, error)
	CountByIDsAndContentType(ctx context.Context, tx *gorm.DB, workspaceID, contentTypeID uuid.UUID, ids []uuid.UUID) (int64, error)
	SlugExists(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, slug string, excludeEntryID *uuid.UUID) (bool, error)
	// Delete releases the slug before soft-deleting so the tombstone does not
	// keep occupying the (workspace, slug) unique index.
	Delete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) error
}

type contentEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentEntryRepo(db *gorm.DB, baseLog *logger.Logger) ContentEntryRepo {
	repoLog := baseLog.With("repo", "ContentEntryRepo")
	return &contentEntryRepo{db: db, log: repoLog}
}

func (r *contentEntryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.ContentEntry) (*types.ContentEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *contentEntryRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(updates) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ContentEntry{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *contentEntryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entry types.ContentEntry
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *contentEntryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentEntry
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentEntryRepo) GetSummariesByIDs(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, ids []uuid.UUID, publishedOnly bool) ([]*types.ContentEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentEntry
	if len(ids) == 0 {
		return results, nil
	}

	query := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentEntryRepo) ListByContentType(ctx context.Context, tx *gorm.DB, workspaceID, contentTypeID uuid.UUID, publishedOnly bool) ([]*types.ContentEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentEntry
	query := transaction.WithContext(ctx).
		Where("workspace_id = ? AND content_type_id = ?", workspaceID, contentTypeID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentEntryRepo) CountByIDsAndContentType(ctx context.Context, tx *gorm.DB, workspaceID, contentTypeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return 0, nil
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContentEntry{}).
		Where("workspace_id = ? AND content_type_id = ? AND id IN ?", workspaceID, contentTypeID, ids).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *contentEntryRepo) SlugExists(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, slug string, excludeEntryID *uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.ContentEntry{}).
		Where("workspace_id = ? AND slug = ?", workspaceID, slug)
	if excludeEntryID != nil {
		query = query.Where("id <> ?", *excludeEntryID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *contentEntryRepo) Delete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ContentEntry{}).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Update("slug", nil).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Delete(&types.ContentEntry{}).Error; err != nil {
		return err
	}
	return nil
}
