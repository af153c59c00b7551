package services

import (
	"context"
	"testing"

	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

func TestCreateContentTypeRejectsDuplicateAPIKey(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreateContentType(t, "article")

	_, err := env.schemas.CreateContentType(context.Background(), CreateContentTypeParams{
		WorkspaceID: env.ws.ID,
		APIKey:      "article",
		Name:        "Article again",
	})
	if err == nil {
		t.Fatalf("duplicate apiKey must be rejected")
	}
}

func TestCreateFieldAppendsPosition(t *testing.T) {
	env := newTestEnv(t)
	ct := env.mustCreateContentType(t, "article")

	first := env.mustCreateField(t, CreateFieldParams{ContentTypeID: ct.ID, APIKey: "headline", Name: "Headline", Type: types.FieldTypeText})
	second := env.mustCreateField(t, CreateFieldParams{ContentTypeID: ct.ID, APIKey: "body", Name: "Body", Type: types.FieldTypeRichText})

	if first.Position != 0 || second.Position != 1 {
		t.Fatalf("positions: want=0,1 got=%d,%d", first.Position, second.Position)
	}

	_, err := env.schemas.CreateField(context.Background(), CreateFieldParams{
		ContentTypeID: ct.ID, APIKey: "headline", Name: "Duplicate", Type: types.FieldTypeText,
	})
	if err == nil {
		t.Fatalf("duplicate field apiKey must be rejected")
	}
}

func TestCreateFieldValidatesRelationParams(t *testing.T) {
	env := newTestEnv(t)
	ct := env.mustCreateContentType(t, "article")

	_, err := env.schemas.CreateField(context.Background(), CreateFieldParams{
		ContentTypeID: ct.ID, APIKey: "authors", Name: "Authors", Type: types.FieldTypeRelation,
	})
	if err == nil {
		t.Fatalf("relation field without kind must be rejected")
	}

	_, err = env.schemas.CreateField(context.Background(), CreateFieldParams{
		ContentTypeID: ct.ID, APIKey: "broken", Name: "Broken", Type: types.FieldType("FANCY"),
	})
	if err == nil {
		t.Fatalf("unknown field type must be rejected")
	}
}

func TestGetSchemaReturnsOrderedFieldsWithRelationConfig(t *testing.T) {
	env := newTestEnv(t)
	author := env.mustCreateContentType(t, "author")
	article := env.mustCreateContentType(t, "article")
	env.mustCreateField(t, CreateFieldParams{ContentTypeID: article.ID, APIKey: "headline", Name: "Headline", Type: types.FieldTypeText})
	env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: article.ID, APIKey: "authors", Name: "Authors", Type: types.FieldTypeRelation,
		RelationKind: types.RelationOneToMany, TargetContentTypeID: author.ID,
	})

	schema, err := env.schemas.GetSchema(context.Background(), article.ID)
	if err != nil {
		t.Fatalf("get schema: %v", err)
	}
	if len(schema.Fields) != 2 || schema.Fields[0].APIKey != "headline" || schema.Fields[1].APIKey != "authors" {
		t.Fatalf("field order: %+v", schema.Fields)
	}
	rel := schema.FieldByAPIKey("authors")
	if rel == nil || rel.RelationConfig == nil {
		t.Fatalf("relation config must be preloaded, got %+v", rel)
	}
	if rel.RelationConfig.Kind != types.RelationOneToMany || rel.RelationConfig.TargetContentTypeID != author.ID {
		t.Fatalf("relation config wrong: %+v", rel.RelationConfig)
	}
}
