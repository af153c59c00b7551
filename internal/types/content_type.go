package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentType is a tenant-scoped schema definition. Its apiKey is unique
// within the owning workspace.
type ContentType struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_content_type_ws_api_key" json:"workspace_id"`
	Workspace   *Workspace     `gorm:"constraint:OnDelete:CASCADE;foreignKey:WorkspaceID;references:ID" json:"workspace,omitempty"`
	APIKey      string         `gorm:"column:api_key;not null;uniqueIndex:idx_content_type_ws_api_key" json:"api_key"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	SeoEnabled  bool           `gorm:"column:seo_enabled;not null;default:false" json:"seo_enabled"`
	Fields      []ContentField `gorm:"foreignKey:ContentTypeID;references:ID" json:"fields,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentType) TableName() string { return "content_type" }
