package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FieldValue is the typed scalar for one (entry, field) pair. Exactly one of
// the value columns is populated, selected by the owning field's type.
// RELATION fields never have FieldValue rows; their data lives in the edge
// tables.
type FieldValue struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EntryID      uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_field_value_entry_field" json:"entry_id"`
	FieldID      uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_field_value_entry_field" json:"field_id"`
	ValueString  *string        `gorm:"column:value_string" json:"value_string,omitempty"`
	ValueNumber  *float64       `gorm:"column:value_number" json:"value_number,omitempty"`
	ValueBoolean *bool          `gorm:"column:value_boolean" json:"value_boolean,omitempty"`
	ValueDate    *time.Time     `gorm:"column:value_date" json:"value_date,omitempty"`
	ValueJSON    datatypes.JSON `gorm:"column:value_json;type:jsonb" json:"value_json,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (FieldValue) TableName() string { return "field_value" }
