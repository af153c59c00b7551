package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// RelationRepo stores the ordered edges backing ONE_TO_ONE, ONE_TO_MANY and
// MANY_TO_ONE relation fields.
type RelationRepo interface {
	// ReplaceForField drops every edge of (field, fromEntry) and re-inserts
	// the targets in payload order, position assigned from the array index.
	ReplaceForField(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error
	// AttachMany appends targets after the current highest position.
	AttachMany(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error
	// DetachMany removes the given targets; missing edges are a no-op.
	DetachMany(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error
	Clear(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) error
	ListRelated(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) ([]uuid.UUID, error)
	FindFromByRelated(ctx context.Context, tx *gorm.DB, fieldID, toEntryID uuid.UUID) ([]uuid.UUID, error)
	// GetByFieldsAndFrom bulk-loads edges for a set of fields and source
	// entries in one query, position ascending, scoped to the workspace.
	GetByFieldsAndFrom(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, fieldIDs, fromEntryIDs []uuid.UUID) ([]*types.ContentRelation, error)
	GetByTarget(ctx context.Context, tx *gorm.DB, workspaceID, toEntryID uuid.UUID) ([]*types.ContentRelation, error)
	DeleteByEntryID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) error
}

type relationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationRepo(db *gorm.DB, baseLog *logger.Logger) RelationRepo {
	repoLog := baseLog.With("repo", "RelationRepo")
	return &relationRepo{db: db, log: repoLog}
}

func (r *relationRepo) ReplaceForField(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Delete(&types.ContentRelation{}).Error; err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		return nil
	}
	edges := make([]*types.ContentRelation, 0, len(targetIDs))
	for i, toID := range targetIDs {
		edges = append(edges, &types.ContentRelation{
			WorkspaceID: workspaceID,
			FieldID:     fieldID,
			FromEntryID: fromEntryID,
			ToEntryID:   toID,
			Position:    i,
		})
	}
	if err := transaction.WithContext(ctx).Create(&edges).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationRepo) AttachMany(ctx context.Context, tx *gorm.DB, workspaceID, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(targetIDs) == 0 {
		return nil
	}

	var maxPosition *int
	if err := transaction.WithContext(ctx).
		Model(&types.ContentRelation{}).
		Where("field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Select("MAX(position)").
		Scan(&maxPosition).Error; err != nil {
		return err
	}
	next := 0
	if maxPosition != nil {
		next = *maxPosition + 1
	}

	edges := make([]*types.ContentRelation, 0, len(targetIDs))
	for i, toID := range targetIDs {
		edges = append(edges, &types.ContentRelation{
			WorkspaceID: workspaceID,
			FieldID:     fieldID,
			FromEntryID: fromEntryID,
			ToEntryID:   toID,
			Position:    next + i,
		})
	}
	if err := transaction.WithContext(ctx).Create(&edges).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationRepo) DetachMany(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID, targetIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(targetIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("field_id = ? AND from_entry_id = ? AND to_entry_id IN ?", fieldID, fromEntryID, targetIDs).
		Delete(&types.ContentRelation{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationRepo) Clear(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
		Delete(&types.ContentRelation{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *relationRepo) ListRelated(ctx context.Context, tx *gorm.DB, fieldID, fromEntryID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var edges []*types.ContentRelation
	if err := transaction.WithContext(ctx).
		Where("field_id = ? AND from_entry_id = ?", fieldID, fromEntryID).
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

func (r *relationRepo) FindFromByRelated(ctx context.Context, tx *gorm.DB, fieldID, toEntryID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var edges []*types.ContentRelation
	if err := transaction.WithContext(ctx).
		Where("field_id = ? AND to_entry_id = ?", fieldID, toEntryID).
		Find(&edges).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FromEntryID)
	}
	return ids, nil
}

func (r *relationRepo) GetByFieldsAndFrom(ctx context.Context, tx *gorm.DB, workspaceID uuid.UUID, fieldIDs, fromEntryIDs []uuid.UUID) ([]*types.ContentRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentRelation
	if len(fieldIDs) == 0 || len(fromEntryIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND field_id IN ? AND from_entry_id IN ?", workspaceID, fieldIDs, fromEntryIDs).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *relationRepo) GetByTarget(ctx context.Context, tx *gorm.DB, workspaceID, toEntryID uuid.UUID) ([]*types.ContentRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContentRelation
	if err := transaction.WithContext(ctx).
		Where("workspace_id = ? AND to_entry_id = ?", workspaceID, toEntryID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *relationRepo) DeleteByEntryID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("from_entry_id = ? OR to_entry_id = ?", entryID, entryID).
		Delete(&types.ContentRelation{}).Error; err != nil {
		return err
	}
	return nil
}
