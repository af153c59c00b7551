package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentEntry is one record of a ContentType. Slug is unique within the
// workspace once set; unpublished entries are invisible to public-scope
// reads.
type ContentEntry struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_content_entry_ws_slug" json:"workspace_id"`
	ContentTypeID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"content_type_id"`
	ContentType     *ContentType   `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContentTypeID;references:ID" json:"content_type,omitempty"`
	Slug            *string        `gorm:"column:slug;uniqueIndex:idx_content_entry_ws_slug" json:"slug,omitempty"`
	SeoTitle        string         `gorm:"column:seo_title" json:"seo_title"`
	MetaDescription string         `gorm:"column:meta_description" json:"meta_description"`
	Keywords        datatypes.JSON `gorm:"column:keywords;type:jsonb" json:"keywords,omitempty"`
	IsPublished     bool           `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	PublishedAt     *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedByID     *uuid.UUID     `gorm:"type:uuid" json:"created_by_id,omitempty"`
	UpdatedByID     *uuid.UUID     `gorm:"type:uuid" json:"updated_by_id,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentEntry) TableName() string { return "content_entry" }
