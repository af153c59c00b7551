package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DenormTaskPending = "pending"
	DenormTaskRunning = "running"
	DenormTaskDone    = "done"
	DenormTaskFailed  = "failed"

	DenormTaskKindTargetChange  = "target_change"
	DenormTaskKindRelationField = "relation_field"
)

// DenormTask is one outbox row for a post-commit denormalization recompute.
// Kind "target_change" carries TargetEntryID; kind "relation_field" carries
// RelationFieldID plus the affected source entry ids.
type DenormTask struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Kind            string         `gorm:"column:kind;not null" json:"kind"`
	TargetEntryID   *uuid.UUID     `gorm:"type:uuid" json:"target_entry_id,omitempty"`
	RelationFieldID *uuid.UUID     `gorm:"type:uuid" json:"relation_field_id,omitempty"`
	FromEntryIDs    datatypes.JSON `gorm:"column:from_entry_ids;type:jsonb" json:"from_entry_ids,omitempty"`
	Status          string         `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Attempts        int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError       string         `gorm:"column:last_error" json:"last_error,omitempty"`
	RunAfter        *time.Time     `gorm:"column:run_after;index" json:"run_after,omitempty"`
	StartedAt       *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt      *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (DenormTask) TableName() string { return "denorm_task" }
