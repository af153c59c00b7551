package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

type FieldValueRepo interface {
	Create(ctx context.Context, tx *gorm.DB, values []*types.FieldValue) ([]*types.FieldValue, error)
	// ReplaceForField deletes any existing row for (entry, field) and inserts
	// the given value. A nil value just deletes.
	ReplaceForField(ctx context.Context, tx *gorm.DB, entryID, fieldID uuid.UUID, value *types.FieldValue) error
	GetByEntryIDs(ctx context.Context, tx *gorm.DB, entryIDs []uuid.UUID) ([]*types.FieldValue, error)
	GetByEntryAndField(ctx context.Context, tx *gorm.DB, entryID, fieldID uuid.UUID) (*types.FieldValue, error)
	GetByFieldID(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, excludeEntryID *uuid.UUID) ([]*types.FieldValue, error)
	ExistsString(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value string, excludeEntryID *uuid.UUID) (bool, error)
	ExistsNumber(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value float64, excludeEntryID *uuid.UUID) (bool, error)
	ExistsBoolean(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value bool, excludeEntryID *uuid.UUID) (bool, error)
	ExistsDate(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value time.Time, excludeEntryID *uuid.UUID) (bool, error)
	DeleteByEntryIDs(ctx context.Context, tx *gorm.DB, entryIDs []uuid.UUID) error
}

type fieldValueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldValueRepo(db *gorm.DB, baseLog *logger.Logger) FieldValueRepo {
	repoLog := baseLog.With("repo", "FieldValueRepo")
	return &fieldValueRepo{db: db, log: repoLog}
}

func (r *fieldValueRepo) Create(ctx context.Context, tx *gorm.DB, values []*types.FieldValue) ([]*types.FieldValue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(values) == 0 {
		return []*types.FieldValue{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (r *fieldValueRepo) ReplaceForField(ctx context.Context, tx *gorm.DB, entryID, fieldID uuid.UUID, value *types.FieldValue) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("entry_id = ? AND field_id = ?", entryID, fieldID).
		Delete(&types.FieldValue{}).Error; err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	value.EntryID = entryID
	value.FieldID = fieldID
	if err := transaction.WithContext(ctx).Create(value).Error; err != nil {
		return err
	}
	return nil
}

func (r *fieldValueRepo) GetByEntryIDs(ctx context.Context, tx *gorm.DB, entryIDs []uuid.UUID) ([]*types.FieldValue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.FieldValue
	if len(entryIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("entry_id IN ?", entryIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fieldValueRepo) GetByEntryAndField(ctx context.Context, tx *gorm.DB, entryID, fieldID uuid.UUID) (*types.FieldValue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var value types.FieldValue
	if err := transaction.WithContext(ctx).
		Where("entry_id = ? AND field_id = ?", entryID, fieldID).
		First(&value).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *fieldValueRepo) GetByFieldID(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, excludeEntryID *uuid.UUID) ([]*types.FieldValue, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Where("field_id = ?", fieldID)
	if excludeEntryID != nil {
		query = query.Where("entry_id <> ?", *excludeEntryID)
	}
	var results []*types.FieldValue
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fieldValueRepo) existsWhere(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, column string, value any, excludeEntryID *uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.FieldValue{}).
		Where("field_id = ?", fieldID).
		Where(column+" = ?", value)
	if excludeEntryID != nil {
		query = query.Where("entry_id <> ?", *excludeEntryID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *fieldValueRepo) ExistsString(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value string, excludeEntryID *uuid.UUID) (bool, error) {
	return r.existsWhere(ctx, tx, fieldID, "value_string", value, excludeEntryID)
}

func (r *fieldValueRepo) ExistsNumber(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value float64, excludeEntryID *uuid.UUID) (bool, error) {
	return r.existsWhere(ctx, tx, fieldID, "value_number", value, excludeEntryID)
}

func (r *fieldValueRepo) ExistsBoolean(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value bool, excludeEntryID *uuid.UUID) (bool, error) {
	return r.existsWhere(ctx, tx, fieldID, "value_boolean", value, excludeEntryID)
}

func (r *fieldValueRepo) ExistsDate(ctx context.Context, tx *gorm.DB, fieldID uuid.UUID, value time.Time, excludeEntryID *uuid.UUID) (bool, error) {
	return r.existsWhere(ctx, tx, fieldID, "value_date", value, excludeEntryID)
}

func (r *fieldValueRepo) DeleteByEntryIDs(ctx context.Context, tx *gorm.DB, entryIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entryIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("entry_id IN ?", entryIDs).
		Delete(&types.FieldValue{}).Error; err != nil {
		return err
	}
	return nil
}
