package types

import (
	"time"

	"github.com/google/uuid"
)

// ContentRelation is one ordered edge for a non-M2M relation field. Position
// defines traversal and display order within a (field, fromEntry) group; for
// single-valued kinds the write path keeps at most one row per group.
type ContentRelation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	FieldID     uuid.UUID `gorm:"type:uuid;not null;index:idx_content_relation_field_from" json:"field_id"`
	FromEntryID uuid.UUID `gorm:"type:uuid;not null;index:idx_content_relation_field_from" json:"from_entry_id"`
	ToEntryID   uuid.UUID `gorm:"type:uuid;not null;index" json:"to_entry_id"`
	Position    int       `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (ContentRelation) TableName() string { return "content_relation" }
