package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentField is one attribute of a ContentType schema. Position defines the
// rendering and validation order; apiKey is unique within the content type.
// Type-specific rules (media, relation counts, denorm mirroring) live in the
// Config jsonb blob and are read through the typed accessors below.
type ContentField struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ContentTypeID  uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_content_field_ct_api_key" json:"content_type_id"`
	ContentType    *ContentType    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ContentTypeID;references:ID" json:"content_type,omitempty"`
	APIKey         string          `gorm:"column:api_key;not null;uniqueIndex:idx_content_field_ct_api_key" json:"api_key"`
	Name           string          `gorm:"column:name;not null" json:"name"`
	Type           FieldType       `gorm:"column:type;not null" json:"type"`
	IsRequired     bool            `gorm:"column:is_required;not null;default:false" json:"is_required"`
	IsUnique       bool            `gorm:"column:is_unique;not null;default:false" json:"is_unique"`
	Position       int             `gorm:"column:position;not null;default:0" json:"position"`
	MinLength      *int            `gorm:"column:min_length" json:"min_length,omitempty"`
	MaxLength      *int            `gorm:"column:max_length" json:"max_length,omitempty"`
	MinNumber      *float64        `gorm:"column:min_number" json:"min_number,omitempty"`
	MaxNumber      *float64        `gorm:"column:max_number" json:"max_number,omitempty"`
	SlugFrom       *string         `gorm:"column:slug_from" json:"slug_from,omitempty"`
	Config         datatypes.JSON  `gorm:"column:config;type:jsonb" json:"config,omitempty"`
	RelationConfig *RelationConfig `gorm:"foreignKey:FieldID;references:ID" json:"relation_config,omitempty"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentField) TableName() string { return "content_field" }

// MediaRules constrains MEDIA payloads. Zero-value fields fall back to the
// defaults applied by MediaRulesOrDefault.
type MediaRules struct {
	AcceptMimeTypes []string `json:"acceptMimeTypes,omitempty"`
	MaxFiles        int      `json:"maxFiles,omitempty"`
	MinFiles        int      `json:"minFiles,omitempty"`
	MaxSizeMB       *float64 `json:"maxSizeMB,omitempty"`
}

// RelationRules constrains how many targets a RELATION field may hold.
type RelationRules struct {
	MinCount *int `json:"minCount,omitempty"`
	MaxCount *int `json:"maxCount,omitempty"`
}

// DenormRule mirrors an aggregate of the related targets into a scalar field
// on the source entry. From is either "seoTitle" (default) or
// "field:<apiKey>" to read a specific field value off each target.
type DenormRule struct {
	TargetFieldAPIKey string `json:"targetFieldApiKey"`
	From              string `json:"from,omitempty"`
	JoinWith          string `json:"joinWith,omitempty"`
}

type fieldConfig struct {
	Media    *MediaRules    `json:"media,omitempty"`
	Relation *RelationRules `json:"relation,omitempty"`
	Denorm   *DenormRule    `json:"denorm,omitempty"`
}

func (f *ContentField) parseConfig() fieldConfig {
	var cfg fieldConfig
	if len(f.Config) == 0 {
		return cfg
	}
	if err := json.Unmarshal(f.Config, &cfg); err != nil {
		return fieldConfig{}
	}
	return cfg
}

// MediaRulesOrDefault returns the field's media rules with defaults filled
// in: png/jpeg/webp accepted, at most one file, none required.
func (f *ContentField) MediaRulesOrDefault() MediaRules {
	cfg := f.parseConfig()
	rules := MediaRules{}
	if cfg.Media != nil {
		rules = *cfg.Media
	}
	if len(rules.AcceptMimeTypes) == 0 {
		rules.AcceptMimeTypes = []string{"image/png", "image/jpeg", "image/webp"}
	}
	if rules.MaxFiles <= 0 {
		rules.MaxFiles = 1
	}
	if rules.MinFiles < 0 {
		rules.MinFiles = 0
	}
	return rules
}

// RelationRulesOrNil returns the relation count bounds, or nil when none are
// configured.
func (f *ContentField) RelationRulesOrNil() *RelationRules {
	cfg := f.parseConfig()
	return cfg.Relation
}

// DenormRuleOrNil returns the denorm rule with From/JoinWith defaults
// applied, or nil when the field mirrors nothing.
func (f *ContentField) DenormRuleOrNil() *DenormRule {
	cfg := f.parseConfig()
	if cfg.Denorm == nil || cfg.Denorm.TargetFieldAPIKey == "" {
		return nil
	}
	rule := *cfg.Denorm
	if rule.From == "" {
		rule.From = "seoTitle"
	}
	if rule.JoinWith == "" {
		rule.JoinWith = ", "
	}
	return &rule
}
