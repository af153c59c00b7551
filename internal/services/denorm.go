package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// DenormService keeps a scalar field on source entries synchronized with an
// aggregate derived from their related target entries. Recomputes are
// best-effort: missing config or mirror fields skip silently, and callers
// must never let a denorm failure roll back the triggering write.
type DenormService interface {
	RecomputeForRelationField(ctx context.Context, workspaceID, relationFieldID uuid.UUID, fromEntryIDs []uuid.UUID) error
	RecomputeForTargetChange(ctx context.Context, workspaceID, targetEntryID uuid.UUID) error
}

type denormService struct {
	db        *gorm.DB
	log       *logger.Logger
	enabled   bool
	schemas   SchemaService
	fieldRepo repos.ContentFieldRepo
	entryRepo repos.ContentEntryRepo
	valueRepo repos.FieldValueRepo
	relRepo   repos.RelationRepo
	m2mRepo   repos.RelationM2MRepo
}

func NewDenormService(db *gorm.DB, baseLog *logger.Logger, enabled bool, schemas SchemaService, fieldRepo repos.ContentFieldRepo, entryRepo repos.ContentEntryRepo, valueRepo repos.FieldValueRepo, relRepo repos.RelationRepo, m2mRepo repos.RelationM2MRepo) DenormService {
	return &denormService{
		db:        db,
		log:       baseLog.With("service", "DenormService"),
		enabled:   enabled,
		schemas:   schemas,
		fieldRepo: fieldRepo,
		entryRepo: entryRepo,
		valueRepo: valueRepo,
		relRepo:   relRepo,
		m2mRepo:   m2mRepo,
	}
}

func (s *denormService) RecomputeForRelationField(ctx context.Context, workspaceID, relationFieldID uuid.UUID, fromEntryIDs []uuid.UUID) error {
	if !s.enabled || len(fromEntryIDs) == 0 {
		return nil
	}

	field, err := s.fieldRepo.GetByID(ctx, nil, relationFieldID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	rule := field.DenormRuleOrNil()
	if rule == nil {
		return nil
	}

	// The mirror lives on the source's own content type; a schema without it
	// is not an error, the denorm just has nowhere to land yet.
	sourceSchema, err := s.schemas.GetSchema(ctx, field.ContentTypeID)
	if err != nil {
		return err
	}
	mirror := sourceSchema.FieldByAPIKey(rule.TargetFieldAPIKey)
	if mirror == nil {
		s.log.Debug("denorm: mirror field missing, skipping", "field_id", relationFieldID, "target_field_api_key", rule.TargetFieldAPIKey)
		return nil
	}

	orderedEdges, err := s.relRepo.GetByFieldsAndFrom(ctx, nil, workspaceID, []uuid.UUID{relationFieldID}, fromEntryIDs)
	if err != nil {
		return err
	}
	m2mEdges, err := s.m2mRepo.GetByFieldsAndFrom(ctx, nil, workspaceID, []uuid.UUID{relationFieldID}, fromEntryIDs)
	if err != nil {
		return err
	}

	targetsBySource := make(map[uuid.UUID][]uuid.UUID)
	targetIDSet := make(map[uuid.UUID]bool)
	for _, edge := range orderedEdges {
		targetsBySource[edge.FromEntryID] = append(targetsBySource[edge.FromEntryID], edge.ToEntryID)
		targetIDSet[edge.ToEntryID] = true
	}
	for _, edge := range m2mEdges {
		targetsBySource[edge.FromEntryID] = append(targetsBySource[edge.FromEntryID], edge.ToEntryID)
		targetIDSet[edge.ToEntryID] = true
	}

	targetIDs := make([]uuid.UUID, 0, len(targetIDSet))
	for id := range targetIDSet {
		targetIDs = append(targetIDs, id)
	}
	targets, err := s.entryRepo.GetByIDs(ctx, nil, targetIDs)
	if err != nil {
		return err
	}
	targetsByID := make(map[uuid.UUID]*types.ContentEntry, len(targets))
	for _, target := range targets {
		targetsByID[target.ID] = target
	}

	renderings, err := s.renderTargets(ctx, field, rule, targetsByID)
	if err != nil {
		return err
	}

	for _, sourceID := range fromEntryIDs {
		var parts []string
		for _, targetID := range targetsBySource[sourceID] {
			if rendered, ok := renderings[targetID]; ok && rendered != "" {
				parts = append(parts, rendered)
			}
		}
		joined := strings.Join(parts, rule.JoinWith)
		value := &types.FieldValue{ValueString: &joined}
		if err := s.valueRepo.ReplaceForField(ctx, nil, sourceID, mirror.ID, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *denormService) RecomputeForTargetChange(ctx context.Context, workspaceID, targetEntryID uuid.UUID) error {
	if !s.enabled {
		return nil
	}

	orderedEdges, err := s.relRepo.GetByTarget(ctx, nil, workspaceID, targetEntryID)
	if err != nil {
		return err
	}
	m2mEdges, err := s.m2mRepo.GetByTarget(ctx, nil, workspaceID, targetEntryID)
	if err != nil {
		return err
	}

	sourcesByField := make(map[uuid.UUID]map[uuid.UUID]bool)
	record := func(fieldID, fromID uuid.UUID) {
		set, ok := sourcesByField[fieldID]
		if !ok {
			set = make(map[uuid.UUID]bool)
			sourcesByField[fieldID] = set
		}
		set[fromID] = true
	}
	for _, edge := range orderedEdges {
		record(edge.FieldID, edge.FromEntryID)
	}
	for _, edge := range m2mEdges {
		record(edge.RelationFieldID, edge.FromEntryID)
	}

	for fieldID, sourceSet := range sourcesByField {
		sourceIDs := make([]uuid.UUID, 0, len(sourceSet))
		for id := range sourceSet {
			sourceIDs = append(sourceIDs, id)
		}
		if err := s.RecomputeForRelationField(ctx, workspaceID, fieldID, sourceIDs); err != nil {
			return err
		}
	}
	return nil
}

// renderTargets produces the per-target string under the rule's From
// selector: "seoTitle" (with slug and id fallbacks) or "field:<apiKey>".
func (s *denormService) renderTargets(ctx context.Context, field *types.ContentField, rule *types.DenormRule, targetsByID map[uuid.UUID]*types.ContentEntry) (map[uuid.UUID]string, error) {
	renderings := make(map[uuid.UUID]string, len(targetsByID))

	if apiKey, ok := strings.CutPrefix(rule.From, "field:"); ok {
		if field.RelationConfig == nil {
			return renderings, nil
		}
		targetSchema, err := s.schemas.GetSchema(ctx, field.RelationConfig.TargetContentTypeID)
		if err != nil {
			return nil, err
		}
		sourceField := targetSchema.FieldByAPIKey(apiKey)
		if sourceField == nil {
			s.log.Debug("denorm: from-field missing on target type, skipping", "from", rule.From)
			return renderings, nil
		}
		targetIDs := make([]uuid.UUID, 0, len(targetsByID))
		for id := range targetsByID {
			targetIDs = append(targetIDs, id)
		}
		values, err := s.valueRepo.GetByEntryIDs(ctx, nil, targetIDs)
		if err != nil {
			return nil, err
		}
		for _, value := range values {
			if value.FieldID != sourceField.ID {
				continue
			}
			renderings[value.EntryID] = renderValueAsString(value)
		}
		return renderings, nil
	}

	for id, target := range targetsByID {
		switch {
		case target.SeoTitle != "":
			renderings[id] = target.SeoTitle
		case target.Slug != nil && *target.Slug != "":
			renderings[id] = *target.Slug
		default:
			renderings[id] = target.ID.String()
		}
	}
	return renderings, nil
}

// renderValueAsString stringifies whichever typed column is populated:
// numbers as decimal strings, booleans as true/false, dates as ISO-8601,
// JSON via its serialization.
func renderValueAsString(value *types.FieldValue) string {
	switch {
	case value.ValueString != nil:
		return *value.ValueString
	case value.ValueNumber != nil:
		return strconv.FormatFloat(*value.ValueNumber, 'f', -1, 64)
	case value.ValueBoolean != nil:
		return strconv.FormatBool(*value.ValueBoolean)
	case value.ValueDate != nil:
		return value.ValueDate.Format(time.RFC3339)
	case len(value.ValueJSON) > 0:
		return string(value.ValueJSON)
	default:
		return ""
	}
}
