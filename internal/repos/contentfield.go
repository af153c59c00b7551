package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

type ContentFieldRepo interface {
	Create(ctx context.Context, tx *gorm.DB, field *types.ContentField) (*types.ContentField, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentField, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentField, error)
	// GetByContentTypeID returns the fields in schema-declared order
	// (position ascending, creation order breaking ties), with relation
	// configs preloaded.
	GetByContentTypeID(ctx context.Context, tx *gorm.DB, contentTypeID uuid.UUID) ([]*types.ContentField, error)
	GetByAPIKey(ctx context.Context, tx *gorm.DB, contentTypeID uuid.UUID, apiKey string) (*types.ContentField, error)
	CreateRelationConfig(ctx context.Context, tx *gorm.DB, cfg *types.RelationConfig) (*types.RelationConfig, error)
	GetRelationConfigByFieldID(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID) (*types.RelationConfig, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type contentFieldRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentFieldRepo(db *gorm.DB, baseLog *logger.Logger) ContentFieldRepo {
	repoLog := baseLog.With("repo", "ContentFieldRepo")
	return &contentFieldRepo{db: db, log: repoLog}
}

func (r *contentFieldRepo) Create(ctx context.Context, tx *gorm.DB, field *types.ContentField) (*types.ContentField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(field).Error; err != nil {
		return nil, err
	}
	return field, nil
}

func (r *contentFieldRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ContentField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var field types.ContentField
	if err := transaction.WithContext(ctx).
		Preload("RelationConfig").
		Where("id = ?", id).
		First(&field).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *contentFieldRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentField
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("RelationConfig").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentFieldRepo) GetByContentTypeID(ctx context.Context, tx *gorm.DB, contentTypeID uuid.UUID) ([]*types.ContentField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentField
	if err := transaction.WithContext(ctx).
		Preload("RelationConfig").
		Where("content_type_id = ?", contentTypeID).
		Order("position ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentFieldRepo) GetByAPIKey(ctx context.Context, tx *gorm.DB, contentTypeID uuid.UUID, apiKey string) (*types.ContentField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var field types.ContentField
	if err := transaction.WithContext(ctx).
		Preload("RelationConfig").
		Where("content_type_id = ? AND api_key = ?", contentTypeID, apiKey).
		First(&field).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *contentFieldRepo) CreateRelationConfig(ctx context.Context, tx *gorm.DB, cfg *types.RelationConfig) (*types.RelationConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *contentFieldRepo) GetRelationConfigByFieldID(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID) (*types.RelationConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var cfg types.RelationConfig
	if err := transaction.WithContext(ctx).
		Where("field_id = ?", fieldID).
		First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *contentFieldRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ContentField{}).Error; err != nil {
		return err
	}
	return nil
}
