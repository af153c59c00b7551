package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// RelationM2MRepo stores many-to-many edges. Attaching an existing
// (field, from, to) triple is idempotent.
type RelationM2MRepo interface {
	AttachMany(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error
	ReplaceForField(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error
	DetachMany(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error
	Clear(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) error
	ListRelated(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) ([]uuid.UUID, error)
	FindFromByRelated(ctx context.Context, tx *gorm.DB, fieldID, toEntryID uuid.UUID) ([]uuid.UUID, error)
	GetByFieldsAndFrom(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, fieldIDs, fromEntryIDs []uuid.UUID) ([]*types.ContentRelationM2M, error)
	GetByTarget(ctx context.Context, tx *gorm.DB, workspaceID, toEntryID uuid.UUID) ([]*types.ContentRelationM2M, error)
	CountByFieldAndFrom(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) (int64, error)
	DeleteByEntryID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) error
}

type relationM2MRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationM2MRepo(db *gorm.DB, baseLog *logger.Logger) RelationM2MRepo {
	repoLog := baseLog.With("repo", "RelationM2MRepo")
	return &relationM2MRepo{db: db, log: repoLog}
}

func (r *relationM2MRepo) AttachMany(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(targetIDs) == 0 {
		return nil
	}

	var maxPosition *int
	if err := transaction.WithContext(ctx).
		Model(&types.ContentRelationM2M{}).
		Where("relation_field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Select("MAX(position)").
		Scan(&maxPosition).Error; err != nil {
		return err
	}
	next := 0
	if maxPosition != nil {
		next = *maxPosition + 1
	}

	edges := make([]*types.ContentRelationM2M, 0, len(targetIDs))
	for i, toID := range targetIDs {
		edges = append(edges, &types.ContentRelationM2M{
			WorkspaceID:     workspaceID,
			RelationFieldID: fieldID,
			FromEntryID:     fromEntryID,
			ToEntryID:       toID,
			Position:        next + i,
		})
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "relation_field_id"}, {Name: "from_entry_id"}, {Name: "to_entry_id"}},
			DoNothing: true,
		}).
		Create(&edges).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationM2MRepo) ReplaceForField(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("relation_field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Delete(&types.ContentRelationM2M{}).Error; err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		return nil
	}
	edges := make([]*types.ContentRelationM2M, 0, len(targetIDs))
	for i, toID := range targetIDs {
		edges = append(edges, &types.ContentRelationM2M{
			WorkspaceID:     workspaceID,
			RelationFieldID: fieldID,
			FromEntryID:     fromEntryID,
			ToEntryID:       toID,
			Position:        i,
		})
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "relation_field_id"}, {Name: "from_entry_id"}, {Name: "to_entry_id"}},
			DoNothing: true,
		}).
		Create(&edges).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationM2MRepo) DetachMany(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(targetIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("relation_field_id = ? AND from_entry_id = ? AND to_entry_id IN ?", fieldID, fromEntryID, targetIDs).
		Delete(&types.ContentRelationM2M{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationM2MRepo) Clear(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("relation_field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Delete(&types.ContentRelationM2M{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationM2MRepo) ListRelated(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var edges []*types.ContentRelationM2M
	if err := transaction.WithContext(ctx).
		Where("relation_field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Order("position ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ToEntryID)
	}
	return ids, nil
}

func (r *relationM2MRepo) FindFromByRelated(ctx context.Context, tx *gorm.DB, fieldID, toEntryID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var edges []*types.ContentRelationM2M
	if err := transaction.WithContext(ctx).
		Where("relation_field_id = ? AND to_entry_id = ?", fieldID, toEntryID).
		Find(&edges).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FromEntryID)
	}
	return ids, nil
}

func (r *relationM2MRepo) GetByFieldsAndFrom(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, fieldIDs, fromEntryIDs []uuid.UUID) ([]*types.ContentRelationM2M, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentRelationM2M
	if len(fieldIDs) == 0 || len(fromEntryIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND relation_field_id IN ? AND from_entry_id IN ?", workspaceID, fieldIDs, fromEntryIDs).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *relationM2MRepo) GetByTarget(ctx context.Context, tx *gorm.DB, workspaceID, toEntryID uuid.UUID) ([]*types.ContentRelationM2M, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentRelationM2M
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND to_entry_id = ?", workspaceID, toEntryID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *relationM2MRepo) CountByFieldAndFrom(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContentRelationM2M{}).
		Where("relation_field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *relationM2MRepo) DeleteByEntryID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("from_entry_id = ? OR to_entry_id = ?", entryID, entryID).
		Delete(&types.ContentRelationM2M{}).Error; err != nil {
		return err
	}
	return nil
}
