package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	pkgerrors "github.com/inkwell-cms/inkwell-backend/internal/pkg/errors"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// SchemaCache is an optional read-through cache for content schemas. The
// redis client implements it; tests run with nil (uncached).
type SchemaCache interface {
	Get(ctx context.Context, contentTypeID uuid.UUID) (*types.ContentSchema, bool)
	Set(ctx context.Context, schema *types.ContentSchema)
	Invalidate(ctx context.Context, contentTypeID uuid.UUID)
}

type CreateContentTypeParams struct {
	WorkspaceID uuid.UUID
	APIKey      string
	Name        string
	SeoEnabled  bool
}

type CreateFieldParams struct {
	ContentTypeID uuid.UUID
	APIKey        string
	Name          string
	Type          types.FieldType
	IsRequired    bool
	IsUnique      bool
	Position      *int
	MinLength     *int
	MaxLength     *int
	MinNumber     *float64
	MaxNumber     *float64
	SlugFrom      *string
	Config        datatypes.JSON

	// Required when Type is RELATION.
	RelationKind        types.RelationKind
	TargetContentTypeID uuid.UUID
}

type SchemaService interface {
	CreateContentType(ctx context.Context, params CreateContentTypeParams) (*types.ContentType, error)
	CreateField(ctx context.Context, params CreateFieldParams) (*types.ContentField, error)
	// GetSchema returns the content type with its ordered fields, through
	// the cache when one is configured.
	GetSchema(ctx context.Context, contentTypeID uuid.UUID) (*types.ContentSchema, error)
	GetContentTypeByAPIKey(ctx context.Context, workspaceID uuid.UUID, apiKey string) (*types.ContentType, error)
}

type schemaService struct {
	db              *gorm.DB
	log             *logger.Logger
	contentTypeRepo repos.ContentTypeRepo
	fieldRepo       repos.ContentFieldRepo
	cache           SchemaCache
}

func NewSchemaService(db *gorm.DB, baseLog *logger.Logger, contentTypeRepo repos.ContentTypeRepo, fieldRepo repos.ContentFieldRepo, cache SchemaCache) SchemaService {
	return &schemaService{
		db:              db,
		log:             baseLog.With("service", "SchemaService"),
		contentTypeRepo: contentTypeRepo,
		fieldRepo:       fieldRepo,
		cache:           cache,
	}
}

func (s *schemaService) CreateContentType(ctx context.Context, params CreateContentTypeParams) (*types.ContentType, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("apiKey: %w", pkgerrors.ErrInvalidArgument)
	}
	existing, err := s.contentTypeRepo.GetByAPIKey(ctx, nil, params.WorkspaceID, params.APIKey)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("content type apiKey %q already exists in workspace: %w", params.APIKey, pkgerrors.ErrInvalidArgument)
	}
	ct := &types.ContentType{
		WorkspaceID: params.WorkspaceID,
		APIKey:      params.APIKey,
		Name:        params.Name,
		SeoEnabled:  params.SeoEnabled,
	}
	return s.contentTypeRepo.Create(ctx, nil, ct)
}

func (s *schemaService) CreateField(ctx context.Context, params CreateFieldParams) (*types.ContentField, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("apiKey: %w", pkgerrors.ErrInvalidArgument)
	}
	if !params.Type.Valid() {
		return nil, fmt.Errorf("field type %q: %w", params.Type, pkgerrors.ErrInvalidArgument)
	}
	if params.Type == types.FieldTypeRelation {
		if !params.RelationKind.Valid() {
			return nil, fmt.Errorf("relation kind %q: %w", params.RelationKind, pkgerrors.ErrInvalidArgument)
		}
		if params.TargetContentTypeID == uuid.Nil {
			return nil, fmt.Errorf("relation target content type: %w", pkgerrors.ErrInvalidArgument)
		}
	}

	existing, err := s.fieldRepo.GetByAPIKey(ctx, nil, params.ContentTypeID, params.APIKey)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("field apiKey %q already exists on content type: %w", params.APIKey, pkgerrors.ErrInvalidArgument)
	}

	position := 0
	if params.Position != nil {
		position = *params.Position
	} else {
		siblings, err := s.fieldRepo.GetByContentTypeID(ctx, nil, params.ContentTypeID)
		if err != nil {
			return nil, err
		}
		for _, sib := range siblings {
			if sib.Position >= position {
				position = sib.Position + 1
			}
		}
	}

	field := &types.ContentField{
		ContentTypeID: params.ContentTypeID,
		APIKey:        params.APIKey,
		Name:          params.Name,
		Type:          params.Type,
		IsRequired:    params.IsRequired,
		IsUnique:      params.IsUnique,
		Position:      position,
		MinLength:     params.MinLength,
		MaxLength:     params.MaxLength,
		MinNumber:     params.MinNumber,
		MaxNumber:     params.MaxNumber,
		SlugFrom:      params.SlugFrom,
		Config:        params.Config,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.fieldRepo.Create(ctx, tx, field); err != nil {
			return err
		}
		if params.Type == types.FieldTypeRelation {
			cfg := &types.RelationConfig{
				FieldID:             field.ID,
				Kind:                params.RelationKind,
				TargetContentTypeID: params.TargetContentTypeID,
			}
			if _, err := s.fieldRepo.CreateRelationConfig(ctx, tx, cfg); err != nil {
				return err
			}
			field.RelationConfig = cfg
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, params.ContentTypeID)
	}
	return field, nil
}

func (s *schemaService) GetSchema(ctx context.Context, contentTypeID uuid.UUID) (*types.ContentSchema, error) {
	if s.cache != nil {
		if schema, ok := s.cache.Get(ctx, contentTypeID); ok {
			return schema, nil
		}
	}

	ct, err := s.contentTypeRepo.GetByID(ctx, nil, contentTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content type %s: %w", contentTypeID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	fields, err := s.fieldRepo.GetByContentTypeID(ctx, nil, contentTypeID)
	if err != nil {
		return nil, err
	}
	schema := &types.ContentSchema{ContentType: ct, Fields: fields}

	if s.cache != nil {
		s.cache.Set(ctx, schema)
	}
	return schema, nil
}

func (s *schemaService) GetContentTypeByAPIKey(ctx context.Context, workspaceID uuid.UUID, apiKey string) (*types.ContentType, error) {
	ct, err := s.contentTypeRepo.GetByAPIKey(ctx, nil, workspaceID, apiKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content type %q: %w", apiKey, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	return ct, nil
}
