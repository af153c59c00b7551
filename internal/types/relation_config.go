package types

import (
	"time"

	"github.com/google/uuid"
)

// RelationConfig is the 1:1 extension of a RELATION-typed ContentField. Kind
// selects the edge table and the cardinality enforced on write.
type RelationConfig struct {
	ID                  uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	FieldID             uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"field_id"`
	Kind                RelationKind `gorm:"column:kind;not null" json:"kind"`
	TargetContentTypeID uuid.UUID    `gorm:"type:uuid;not null;index" json:"target_content_type_id"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updated_at"`
}

func (RelationConfig) TableName() string { return "relation_config" }
