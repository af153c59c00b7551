package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

type ContentTypeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ct *types.ContentType) (*types.ContentType, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentType, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentType, error)
	GetByAPIKey(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, apiKey string) (*types.ContentType, error)
	ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.ContentType, error)
	Delete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) error
}

type contentTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentTypeRepo(db *gorm.DB, baseLog *logger.Logger) ContentTypeRepo {
	repoLog := baseLog.With("repo", "ContentTypeRepo")
	return &contentTypeRepo{db: db, log: repoLog}
}

func (r *contentTypeRepo) Create(ctx context.Context, tx *gorm.DB, ct *types.ContentType) (*types.ContentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(ct).Error; err != nil {
		return nil, err
	}
	return ct, nil
}

func (r *contentTypeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ct types.ContentType
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&ct).Error; err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *contentTypeRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentType
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

func (r *contentTypeRepo) GetByAPIKey(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, apiKey string) (*types.ContentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ct types.ContentType
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND api_key = ?", workspaceID, apiKey).
		First(&ct).Error; err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *contentTypeRepo) ListByWorkspace(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID) ([]*types.ContentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentType
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentTypeRepo) Delete(ctx context.Context, tx *gorm.DB, workspaceID, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		Delete(&types.ContentType{}).Error; err != nil {
		return err
	}
	return nil
}
