package types

import (
	"time"

	"github.com/google/uuid"
)

// ContentRelationM2M is one many-to-many edge. The
// (relationFieldId, fromEntryId, toEntryId) triple is unique, making attach
// idempotent.
type ContentRelationM2M struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	RelationFieldID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_relation_m2m_triple" json:"relation_field_id"`
	FromEntryID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_relation_m2m_triple" json:"from_entry_id"`
	ToEntryID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_content_relation_m2m_triple" json:"to_entry_id"`
	Position        int       `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
}

func (ContentRelationM2M) TableName() string { return "content_relation_m2m" }
