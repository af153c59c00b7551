package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	pkgerrors "github.com/inkwell-cms/inkwell-backend/internal/pkg/errors"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
	"github.com/inkwell-cms/inkwell-backend/internal/utils"
)

const (
	maxMetaDescriptionLen = 160
	maxSlugAttempts       = 50
)

// EntryPayload carries the entry-level attributes plus the dynamic field
// values of a create/update request. Nil pointers mean "leave unchanged" on
// update and "unset" on create.
type EntryPayload struct {
	Slug            *string
	SeoTitle        *string
	MetaDescription *string
	Keywords        []string
	IsPublished     *bool
	PublishedAt     *time.Time
	Values          []EntryValue
}

// EntryService owns entry persistence: it validates payloads against the
// schema, writes field values and relation edges in one transaction, and
// fires the denorm recompute after commit.
type EntryService interface {
	CreateEntry(ctx context.Context, workspaceID, contentTypeID uuid.UUID, payload EntryPayload, actorID *uuid.UUID) (*types.ContentEntry, error)
	UpdateEntry(ctx context.Context, entryID uuid.UUID, payload EntryPayload, actorID *uuid.UUID) (*types.ContentEntry, error)
	DeleteEntry(ctx context.Context, workspaceID, entryID uuid.UUID) error
}

type entryService struct {
	db          *gorm.DB
	log         *logger.Logger
	schemas     SchemaService
	validator   EntryValidator
	entryRepo   repos.ContentEntryRepo
	valueRepo   repos.FieldValueRepo
	relRepo     repos.RelationRepo
	m2mRepo     repos.RelationM2MRepo
	denorm      DenormService
	taskRepo    repos.DenormTaskRepo
	denormAsync bool
	slugMaxLen  int
}

func NewEntryService(db *gorm.DB, baseLog *logger.Logger, schemas SchemaService, validator EntryValidator, entryRepo repos.ContentEntryRepo, valueRepo repos.FieldValueRepo, relRepo repos.RelationRepo, m2mRepo repos.RelationM2MRepo, denorm DenormService, taskRepo repos.DenormTaskRepo, denormAsync bool, slugMaxLen int) EntryService {
	if slugMaxLen <= 0 {
		slugMaxLen = utils.DefaultSlugMaxLength
	}
	return &entryService{
		db:          db,
		log:         baseLog.With("service", "EntryService"),
		schemas:     schemas,
		validator:   validator,
		entryRepo:   entryRepo,
		valueRepo:   valueRepo,
		relRepo:     relRepo,
		m2mRepo:     m2mRepo,
		denorm:      denorm,
		taskRepo:    taskRepo,
		denormAsync: denormAsync,
		slugMaxLen:  slugMaxLen,
	}
}

func (s *entryService) CreateEntry(ctx context.Context, workspaceID, contentTypeID uuid.UUID, payload EntryPayload, actorID *uuid.UUID) (*types.ContentEntry, error) {
	schema, err := s.schemas.GetSchema(ctx, contentTypeID)
	if err != nil {
		return nil, err
	}
	if schema.ContentType.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("content type %s: %w", contentTypeID, pkgerrors.ErrNotFound)
	}
	if err := validateEntryAttrs(payload); err != nil {
		return nil, err
	}

	staged, err := s.validator.ValidateAndStage(ctx, nil, schema, nil, payload.Values)
	if err != nil {
		return nil, err
	}
	if err := s.verifyRelationTargets(ctx, workspaceID, staged); err != nil {
		return nil, err
	}

	slug, err := s.resolveSlug(ctx, workspaceID, nil, payload, staged)
	if err != nil {
		return nil, err
	}

	entry := &types.ContentEntry{
		WorkspaceID:   workspaceID,
		ContentTypeID: contentTypeID,
		Slug:          slug,
		CreatedByID:   actorID,
		UpdatedByID:   actorID,
	}
	if payload.SeoTitle != nil {
		entry.SeoTitle = *payload.SeoTitle
	}
	if payload.MetaDescription != nil {
		entry.MetaDescription = *payload.MetaDescription
	}
	if payload.Keywords != nil {
		raw, err := json.Marshal(payload.Keywords)
		if err != nil {
			return nil, err
		}
		entry.Keywords = datatypes.JSON(raw)
	}
	if payload.IsPublished != nil {
		entry.IsPublished = *payload.IsPublished
		if entry.IsPublished {
			publishedAt := time.Now()
			if payload.PublishedAt != nil {
				publishedAt = *payload.PublishedAt
			}
			entry.PublishedAt = &publishedAt
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.entryRepo.Create(ctx, tx, entry); err != nil {
			return err
		}
		return s.persistStaged(ctx, tx, workspaceID, entry.ID, staged)
	})
	if err != nil {
		return nil, err
	}

	s.triggerDenorm(ctx, workspaceID, entry.ID, staged)
	return entry, nil
}

func (s *entryService) UpdateEntry(ctx context.Context, entryID uuid.UUID, payload EntryPayload, actorID *uuid.UUID) (*types.ContentEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, nil, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("entry %s: %w", entryID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	schema, err := s.schemas.GetSchema(ctx, entry.ContentTypeID)
	if err != nil {
		return nil, err
	}
	if err := validateEntryAttrs(payload); err != nil {
		return nil, err
	}

	staged, err := s.validator.ValidateAndStage(ctx, nil, schema, &entry.ID, payload.Values)
	if err != nil {
		return nil, err
	}
	if err := s.verifyRelationTargets(ctx, entry.WorkspaceID, staged); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": time.Now()}
	if actorID != nil {
		updates["updated_by_id"] = *actorID
	}
	if payload.Slug != nil {
		slug, err := s.resolveSlug(ctx, entry.WorkspaceID, &entry.ID, payload, staged)
		if err != nil {
			return nil, err
		}
		updates["slug"] = slug
	}
	if payload.SeoTitle != nil {
		updates["seo_title"] = *payload.SeoTitle
	}
	if payload.MetaDescription != nil {
		updates["meta_description"] = *payload.MetaDescription
	}
	if payload.Keywords != nil {
		raw, err := json.Marshal(payload.Keywords)
		if err != nil {
			return nil, err
		}
		updates["keywords"] = datatypes.JSON(raw)
	}
	if payload.IsPublished != nil {
		updates["is_published"] = *payload.IsPublished
		if *payload.IsPublished && entry.PublishedAt == nil {
			publishedAt := time.Now()
			if payload.PublishedAt != nil {
				publishedAt = *payload.PublishedAt
			}
			updates["published_at"] = publishedAt
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.entryRepo.UpdateFields(ctx, tx, entry.ID, updates); err != nil {
			return err
		}
		return s.persistStaged(ctx, tx, entry.WorkspaceID, entry.ID, staged)
	})
	if err != nil {
		return nil, err
	}

	s.triggerDenorm(ctx, entry.WorkspaceID, entry.ID, staged)

	updated, err := s.entryRepo.GetByID(ctx, nil, entry.ID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *entryService) DeleteEntry(ctx context.Context, workspaceID, entryID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.valueRepo.DeleteByEntryIDs(ctx, tx, []uuid.UUID{entryID}); err != nil {
			return err
		}
		if err := s.relRepo.DeleteByEntryID(ctx, tx, entryID); err != nil {
			return err
		}
		if err := s.m2mRepo.DeleteByEntryID(ctx, tx, entryID); err != nil {
			return err
		}
		return s.entryRepo.Delete(ctx, tx, workspaceID, entryID)
	})
}

// persistStaged writes the validator's staging output: field values replace
// prior rows per touched field, relation edges replace the full set per
// touched relation field, in payload order.
func (s *entryService) persistStaged(ctx context.Context, tx *gorm.DB, workspaceID, entryID uuid.UUID, staged *StagedEntry) error {
	for _, value := range staged.FieldValues {
		if err := s.valueRepo.ReplaceForField(ctx, tx, entryID, value.FieldID, value); err != nil {
			return err
		}
	}
	for _, relation := range staged.Relations {
		cfg := relation.Field.RelationConfig
		if cfg == nil {
			return fmt.Errorf("relation field %s has no relation config: %w", relation.Field.APIKey, pkgerrors.ErrInvalidArgument)
		}
		targetIDs := relation.TargetIDs
		if cfg.Kind.SingleValued() && len(targetIDs) > 1 {
			targetIDs = targetIDs[:1]
		}
		if cfg.Kind.ManyToMany() {
			if err := s.m2mRepo.ReplaceForField(ctx, tx, workspaceID, relation.FieldID, entryID, targetIDs); err != nil {
				return err
			}
		} else {
			if err := s.relRepo.ReplaceForField(ctx, tx, workspaceID, relation.FieldID, entryID, targetIDs); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyRelationTargets checks every staged target id exists in the field's
// configured target content type within the workspace. This applies to both
// edge tables.
func (s *entryService) verifyRelationTargets(ctx context.Context, workspaceID uuid.UUID, staged *StagedEntry) error {
	for _, relation := range staged.Relations {
		if len(relation.TargetIDs) == 0 {
			continue
		}
		cfg := relation.Field.RelationConfig
		if cfg == nil {
			return fmt.Errorf("relation field %s has no relation config: %w", relation.Field.APIKey, pkgerrors.ErrInvalidArgument)
		}
		unique := make(map[uuid.UUID]bool, len(relation.TargetIDs))
		ids := make([]uuid.UUID, 0, len(relation.TargetIDs))
		for _, id := range relation.TargetIDs {
			if !unique[id] {
				unique[id] = true
				ids = append(ids, id)
			}
		}
		count, err := s.entryRepo.CountByIDsAndContentType(ctx, nil, workspaceID, cfg.TargetContentTypeID, ids)
		if err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return pkgerrors.NewValidation(relation.Field.APIKey, "relationTarget", "%s references entries that do not exist in the target content type", relation.Field.APIKey)
		}
	}
	return nil
}

// resolveSlug picks the entry slug: an explicit payload slug wins, then the
// seoTitle, then the first TEXT value of the payload. The result is made
// unique within the workspace by numeric suffixing. A nil return leaves the
// slug unset.
func (s *entryService) resolveSlug(ctx context.Context, workspaceID uuid.UUID, excludeEntryID *uuid.UUID, payload EntryPayload, staged *StagedEntry) (*string, error) {
	base := ""
	if payload.Slug != nil {
		base = utils.Slugify(*payload.Slug, s.slugMaxLen)
	}
	if base == "" && payload.SeoTitle != nil {
		base = utils.Slugify(*payload.SeoTitle, s.slugMaxLen)
	}
	if base == "" {
		for _, value := range staged.FieldValues {
			if value.ValueString != nil && *value.ValueString != "" {
				base = utils.Slugify(*value.ValueString, s.slugMaxLen)
				break
			}
		}
	}
	if base == "" {
		return nil, nil
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := s.entryRepo.SlugExists(ctx, nil, workspaceID, candidate, excludeEntryID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return &candidate, nil
		}
		if i > maxSlugAttempts {
			return nil, fmt.Errorf("could not find a free slug for %q", base)
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

// triggerDenorm fires the post-commit recompute hooks. Failures are logged
// and never propagated to the caller of the entry write; when async mode is
// on they are enqueued to the denorm task outbox instead of running inline.
func (s *entryService) triggerDenorm(ctx context.Context, workspaceID, entryID uuid.UUID, staged *StagedEntry) {
	if s.denorm == nil {
		return
	}

	if s.denormAsync && s.taskRepo != nil {
		entryRef := entryID
		task := &types.DenormTask{
			WorkspaceID:   workspaceID,
			Kind:          types.DenormTaskKindTargetChange,
			TargetEntryID: &entryRef,
		}
		if _, err := s.taskRepo.Enqueue(ctx, nil, task); err != nil {
			s.log.Error("failed to enqueue denorm task", "entry_id", entryID, "error", err)
		}
		for _, relation := range staged.Relations {
			if relation.Field.DenormRuleOrNil() == nil {
				continue
			}
			fieldRef := relation.FieldID
			raw, err := json.Marshal([]uuid.UUID{entryID})
			if err != nil {
				continue
			}
			task := &types.DenormTask{
				WorkspaceID:     workspaceID,
				Kind:            types.DenormTaskKindRelationField,
				RelationFieldID: &fieldRef,
				FromEntryIDs:    datatypes.JSON(raw),
			}
			if _, err := s.taskRepo.Enqueue(ctx, nil, task); err != nil {
				s.log.Error("failed to enqueue denorm task", "field_id", relation.FieldID, "error", err)
			}
		}
		return
	}

	if err := s.denorm.RecomputeForTargetChange(ctx, workspaceID, entryID); err != nil {
		s.log.Error("denorm recompute for target change failed", "entry_id", entryID, "error", err)
	}
	for _, relation := range staged.Relations {
		if relation.Field.DenormRuleOrNil() == nil {
			continue
		}
		if err := s.denorm.RecomputeForRelationField(ctx, workspaceID, relation.FieldID, []uuid.UUID{entryID}); err != nil {
			s.log.Error("denorm recompute for relation field failed", "field_id", relation.FieldID, "error", err)
		}
	}
}

func validateEntryAttrs(payload EntryPayload) error {
	if payload.MetaDescription != nil && len(*payload.MetaDescription) > maxMetaDescriptionLen {
		return pkgerrors.NewValidation("metaDescription", "maxLength", "metaDescription must be at most %d characters", maxMetaDescriptionLen)
	}
	return nil
}
