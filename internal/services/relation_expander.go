package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

const maxExpandDepth = 5

type SummaryMode string

const (
	SummaryBasic SummaryMode = "basic"
	SummaryFull  SummaryMode = "full"
)

// TargetSummary is the projection of one resolved target entry. Values is
// populated in full summary mode only, keyed by field apiKey.
type TargetSummary struct {
	ID              uuid.UUID      `json:"id"`
	ContentTypeID   uuid.UUID      `json:"content_type_id"`
	Slug            *string        `json:"slug,omitempty"`
	SeoTitle        string         `json:"seo_title,omitempty"`
	MetaDescription string         `json:"meta_description,omitempty"`
	PublishedAt     *time.Time     `json:"published_at,omitempty"`
	Values          map[string]any `json:"values,omitempty"`
}

// RelationValue holds the resolved targets of one relation field as ids into
// the expansion arena. Single-valued kinds carry at most one id.
type RelationValue struct {
	Single    bool        `json:"single"`
	TargetIDs []uuid.UUID `json:"target_ids"`
}

// RelationsByField maps a field apiKey to its resolved relation value.
type RelationsByField map[string]*RelationValue

// Expansion is the result of a traversal. Parent records reference targets
// by id into the Targets arena instead of sharing object instances; a
// target's own relations (depth > 1) live in Nested under the same id.
type Expansion struct {
	Roots   map[uuid.UUID]RelationsByField `json:"roots"`
	Targets map[uuid.UUID]*TargetSummary   `json:"targets"`
	Nested  map[uuid.UUID]RelationsByField `json:"nested,omitempty"`
}

type ExpandParams struct {
	WorkspaceID   uuid.UUID
	RootEntryIDs  []uuid.UUID
	ContentTypeID uuid.UUID
	// Depth <= 0 expands nothing; values above 5 clamp to 5.
	Depth   int
	Summary SummaryMode
	// AllowedFieldAPIKeys whitelists relation fields at the root level only;
	// nested levels always expose all relation fields.
	AllowedFieldAPIKeys []string
	// IncludeUnpublished lifts the public-scope visibility filter. The scope
	// propagates unchanged into nested levels.
	IncludeUnpublished bool
}

// RelationExpander recursively resolves relation fields for a set of root
// entries. It performs no mutation and degrades gracefully: missing schemas,
// absent targets, and unknown fields produce omitted keys, never errors.
type RelationExpander interface {
	Expand(ctx context.Context, params ExpandParams) (*Expansion, error)
}

type relationExpander struct {
	db        *gorm.DB
	log       *logger.Logger
	schemas   SchemaService
	entryRepo repos.ContentEntryRepo
	valueRepo repos.FieldValueRepo
	relRepo   repos.RelationRepo
	m2mRepo   repos.RelationM2MRepo
}

func NewRelationExpander(db *gorm.DB, baseLog *logger.Logger, schemas SchemaService, entryRepo repos.ContentEntryRepo, valueRepo repos.FieldValueRepo, relRepo repos.RelationRepo, m2mRepo repos.RelationM2MRepo) RelationExpander {
	return &relationExpander{
		db:        db,
		log:       baseLog.With("service", "RelationExpander"),
		schemas:   schemas,
		entryRepo: entryRepo,
		valueRepo: valueRepo,
		relRepo:   relRepo,
		m2mRepo:   m2mRepo,
	}
}

func (e *relationExpander) Expand(ctx context.Context, params ExpandParams) (*Expansion, error) {
	result := &Expansion{
		Roots:   make(map[uuid.UUID]RelationsByField, len(params.RootEntryIDs)),
		Targets: make(map[uuid.UUID]*TargetSummary),
		Nested:  make(map[uuid.UUID]RelationsByField),
	}
	for _, id := range params.RootEntryIDs {
		result.Roots[id] = RelationsByField{}
	}
	if params.Depth <= 0 || len(params.RootEntryIDs) == 0 {
		return result, nil
	}
	depth := params.Depth
	if depth > maxExpandDepth {
		depth = maxExpandDepth
	}
	summary := params.Summary
	if summary == "" {
		summary = SummaryBasic
	}

	err := e.expandLevel(ctx, result, params.WorkspaceID, params.RootEntryIDs, params.ContentTypeID, depth, summary, params.AllowedFieldAPIKeys, params.IncludeUnpublished, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// edgeRef is one loaded edge, normalized across both tables.
type edgeRef struct {
	fromEntryID uuid.UUID
	toEntryID   uuid.UUID
	position    int
}

func (e *relationExpander) expandLevel(ctx context.Context, result *Expansion, workspaceID uuid.UUID, entryIDs []uuid.UUID, contentTypeID uuid.UUID, depth int, summary SummaryMode, allowedAPIKeys []string, includeUnpublished bool, isRoot bool) error {
	schema, err := e.schemas.GetSchema(ctx, contentTypeID)
	if err != nil {
		// A vanished content type degrades to no expansion for this branch.
		e.log.Warn("expand: schema unavailable, skipping level", "content_type_id", contentTypeID, "error", err)
		return nil
	}

	relationFields := schema.RelationFields()
	if len(allowedAPIKeys) > 0 {
		allowed := make(map[string]bool, len(allowedAPIKeys))
		for _, key := range allowedAPIKeys {
			allowed[key] = true
		}
		filtered := make([]*types.ContentField, 0, len(relationFields))
		for _, field := range relationFields {
			if allowed[field.APIKey] {
				filtered = append(filtered, field)
			}
		}
		relationFields = filtered
	}
	if len(relationFields) == 0 {
		return nil
	}

	var orderedFieldIDs, m2mFieldIDs []uuid.UUID
	fieldsByID := make(map[uuid.UUID]*types.ContentField, len(relationFields))
	for _, field := range relationFields {
		if field.RelationConfig == nil {
			e.log.Warn("expand: relation field without config, skipping", "field_id", field.ID, "api_key", field.APIKey)
			continue
		}
		fieldsByID[field.ID] = field
		if field.RelationConfig.Kind.ManyToMany() {
			m2mFieldIDs = append(m2mFieldIDs, field.ID)
		} else {
			orderedFieldIDs = append(orderedFieldIDs, field.ID)
		}
	}
	if len(fieldsByID) == 0 {
		return nil
	}

	// One bulk query per edge table for the whole level, never per entry.
	var orderedEdges []*types.ContentRelation
	var m2mEdges []*types.ContentRelationM2M
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		orderedEdges, err = e.relRepo.GetByFieldsAndFrom(groupCtx, nil, workspaceID, orderedFieldIDs, entryIDs)
		return err
	})
	group.Go(func() error {
		var err error
		m2mEdges, err = e.m2mRepo.GetByFieldsAndFrom(groupCtx, nil, workspaceID, m2mFieldIDs, entryIDs)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	// Group by (fromEntry, field), keeping the repo's position order.
	grouped := make(map[uuid.UUID]map[uuid.UUID][]edgeRef)
	appendEdge := func(fieldID uuid.UUID, ref edgeRef) {
		byField, ok := grouped[ref.fromEntryID]
		if !ok {
			byField = make(map[uuid.UUID][]edgeRef)
			grouped[ref.fromEntryID] = byField
		}
		byField[fieldID] = append(byField[fieldID], ref)
	}
	targetIDSet := make(map[uuid.UUID]bool)
	for _, edge := range orderedEdges {
		appendEdge(edge.FieldID, edgeRef{fromEntryID: edge.FromEntryID, toEntryID: edge.ToEntryID, position: edge.Position})
		targetIDSet[edge.ToEntryID] = true
	}
	for _, edge := range m2mEdges {
		appendEdge(edge.RelationFieldID, edgeRef{fromEntryID: edge.FromEntryID, toEntryID: edge.ToEntryID, position: edge.Position})
		targetIDSet[edge.ToEntryID] = true
	}
	if len(targetIDSet) == 0 {
		return nil
	}

	targetIDs := make([]uuid.UUID, 0, len(targetIDSet))
	for id := range targetIDSet {
		targetIDs = append(targetIDs, id)
	}
	targets, err := e.entryRepo.GetSummariesByIDs(ctx, nil, workspaceID, targetIDs, !includeUnpublished)
	if err != nil {
		return err
	}
	summaries := make(map[uuid.UUID]*TargetSummary, len(targets))
	for _, target := range targets {
		summaries[target.ID] = &TargetSummary{
			ID:              target.ID,
			ContentTypeID:   target.ContentTypeID,
			Slug:            target.Slug,
			SeoTitle:        target.SeoTitle,
			MetaDescription: target.MetaDescription,
			PublishedAt:     target.PublishedAt,
		}
	}
	if summary == SummaryFull {
		if err := e.attachFullValues(ctx, summaries); err != nil {
			return err
		}
	}

	resolvedIDs := make(map[uuid.UUID]bool)
	for fromID, byField := range grouped {
		for fieldID, refs := range byField {
			field := fieldsByID[fieldID]
			if field == nil {
				continue
			}
			singleValued := field.RelationConfig.Kind.SingleValued()
			value := &RelationValue{Single: singleValued}
			seen := make(map[uuid.UUID]bool, len(refs))
			for _, ref := range refs {
				target, ok := summaries[ref.toEntryID]
				if !ok {
					continue // unpublished or gone
				}
				if seen[target.ID] {
					continue
				}
				seen[target.ID] = true
				value.TargetIDs = append(value.TargetIDs, target.ID)
				resolvedIDs[target.ID] = true
				if _, exists := result.Targets[target.ID]; !exists {
					result.Targets[target.ID] = target
				}
				if singleValued {
					// Lowest position wins; extra edges are tolerated, not
					// an error.
					break
				}
			}
			if len(value.TargetIDs) == 0 {
				continue
			}
			e.assignRelation(result, fromID, field.APIKey, value, isRoot)
		}
	}

	if depth <= 1 || len(resolvedIDs) == 0 {
		return nil
	}

	// Recurse grouped by the targets' own content type, known from the
	// summary projection. The field whitelist applies at the root only.
	byContentType := make(map[uuid.UUID][]uuid.UUID)
	for id := range resolvedIDs {
		target := result.Targets[id]
		if target == nil {
			continue
		}
		byContentType[target.ContentTypeID] = append(byContentType[target.ContentTypeID], id)
	}
	for childContentTypeID, childIDs := range byContentType {
		if err := e.expandLevel(ctx, result, workspaceID, childIDs, childContentTypeID, depth-1, summary, nil, includeUnpublished, false); err != nil {
			return err
		}
	}
	return nil
}

// assignRelation writes a resolved relation value into the root map or the
// nested arena. Existing keys are kept (merge, not overwrite): the same
// entry can be reached through multiple containers.
func (e *relationExpander) assignRelation(result *Expansion, entryID uuid.UUID, apiKey string, value *RelationValue, isRoot bool) {
	var slot RelationsByField
	if isRoot {
		slot = result.Roots[entryID]
		if slot == nil {
			slot = RelationsByField{}
			result.Roots[entryID] = slot
		}
	} else {
		slot = result.Nested[entryID]
		if slot == nil {
			slot = RelationsByField{}
			result.Nested[entryID] = slot
		}
	}
	if _, exists := slot[apiKey]; exists {
		return
	}
	slot[apiKey] = value
}

// attachFullValues loads every summary's field values in one query and
// renders them under the owning field's apiKey.
func (e *relationExpander) attachFullValues(ctx context.Context, summaries map[uuid.UUID]*TargetSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	entryIDs := make([]uuid.UUID, 0, len(summaries))
	contentTypeIDs := make(map[uuid.UUID]bool)
	for _, target := range summaries {
		entryIDs = append(entryIDs, target.ID)
		contentTypeIDs[target.ContentTypeID] = true
	}

	fieldKeys := make(map[uuid.UUID]string)
	for contentTypeID := range contentTypeIDs {
		schema, err := e.schemas.GetSchema(ctx, contentTypeID)
		if err != nil {
			e.log.Warn("expand: schema unavailable for full summary", "content_type_id", contentTypeID, "error", err)
			continue
		}
		for _, field := range schema.Fields {
			fieldKeys[field.ID] = field.APIKey
		}
	}

	values, err := e.valueRepo.GetByEntryIDs(ctx, nil, entryIDs)
	if err != nil {
		return err
	}
	for _, value := range values {
		apiKey, ok := fieldKeys[value.FieldID]
		if !ok {
			continue
		}
		target, ok := summaries[value.EntryID]
		if !ok {
			continue
		}
		if target.Values == nil {
			target.Values = make(map[string]any)
		}
		target.Values[apiKey] = renderFieldValue(value)
	}
	return nil
}

// renderFieldValue exposes whichever typed column is populated.
func renderFieldValue(value *types.FieldValue) any {
	switch {
	case value.ValueString != nil:
		return *value.ValueString
	case value.ValueNumber != nil:
		return *value.ValueNumber
	case value.ValueBoolean != nil:
		return *value.ValueBoolean
	case value.ValueDate != nil:
		return value.ValueDate.Format(time.RFC3339)
	case len(value.ValueJSON) > 0:
		return json.RawMessage(value.ValueJSON)
	default:
		return nil
	}
}
