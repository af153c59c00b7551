package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// denormFixture builds an article type whose "authorNames" text field mirrors
// an aggregate of the related authors.
type denormFixture struct {
	env     *testEnv
	author  *types.ContentType
	article *types.ContentType
	mirror  *types.ContentField
	authors *types.ContentField
}

func newDenormFixture(t *testing.T, denormConfig string) *denormFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &denormFixture{env: env}

	f.author = env.mustCreateContentType(t, "author")
	f.article = env.mustCreateContentType(t, "article")
	env.mustCreateField(t, CreateFieldParams{ContentTypeID: f.author.ID, APIKey: "name", Name: "Name", Type: types.FieldTypeText})
	f.mirror = env.mustCreateField(t, CreateFieldParams{ContentTypeID: f.article.ID, APIKey: "authorNames", Name: "Author Names", Type: types.FieldTypeText})
	f.authors = env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: f.article.ID, APIKey: "authors", Name: "Authors", Type: types.FieldTypeRelation,
		RelationKind: types.RelationOneToMany, TargetContentTypeID: f.author.ID,
		Config: jsonCfg(denormConfig),
	})
	return f
}

func (f *denormFixture) mirrorValue(t *testing.T, entryID uuid.UUID) string {
	t.Helper()
	value, err := f.env.valueRepo.GetByEntryAndField(context.Background(), nil, entryID, f.mirror.ID)
	if err != nil {
		t.Fatalf("load mirror value: %v", err)
	}
	if value.ValueString == nil {
		t.Fatalf("mirror value has no string: %+v", value)
	}
	return *value.ValueString
}

func TestDenormJoinsTargetTitlesOnCreate(t *testing.T) {
	f := newDenormFixture(t, `{"denorm":{"targetFieldApiKey":"authorNames"}}`)
	env := f.env

	a := env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Ada Lovelace")})
	b := env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Brian Kernighan")})

	article := env.mustCreateEntry(t, f.article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{a.ID.String(), b.ID.String()}},
	}})

	if got := f.mirrorValue(t, article.ID); got != "Ada Lovelace, Brian Kernighan" {
		t.Fatalf("mirror: want=%q got=%q", "Ada Lovelace, Brian Kernighan", got)
	}
}

func TestDenormRecomputesWhenTargetChanges(t *testing.T) {
	f := newDenormFixture(t, `{"denorm":{"targetFieldApiKey":"authorNames"}}`)
	env := f.env
	ctx := context.Background()

	a := env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Ada")})
	b := env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Brian")})
	article := env.mustCreateEntry(t, f.article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{a.ID.String(), b.ID.String()}},
	}})

	if got := f.mirrorValue(t, article.ID); got != "Ada, Brian" {
		t.Fatalf("mirror before: want=%q got=%q", "Ada, Brian", got)
	}

	if _, err := env.entries.UpdateEntry(ctx, a.ID, EntryPayload{SeoTitle: strPtr("Zelda")}, nil); err != nil {
		t.Fatalf("rename author: %v", err)
	}

	if got := f.mirrorValue(t, article.ID); got != "Zelda, Brian" {
		t.Fatalf("mirror after: want=%q got=%q", "Zelda, Brian", got)
	}
}

func TestDenormReadsFromTargetField(t *testing.T) {
	f := newDenormFixture(t, `{"denorm":{"targetFieldApiKey":"authorNames","from":"field:name","joinWith":" & "}}`)
	env := f.env

	a := env.mustCreateEntry(t, f.author.ID, EntryPayload{
		SeoTitle: strPtr("ignored"),
		Values:   []EntryValue{{APIKey: "name", Value: "Ada"}},
	})
	b := env.mustCreateEntry(t, f.author.ID, EntryPayload{
		SeoTitle: strPtr("also ignored"),
		Values:   []EntryValue{{APIKey: "name", Value: "Brian"}},
	})

	article := env.mustCreateEntry(t, f.article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{a.ID.String(), b.ID.String()}},
	}})

	if got := f.mirrorValue(t, article.ID); got != "Ada & Brian" {
		t.Fatalf("mirror: want=%q got=%q", "Ada & Brian", got)
	}
}

func TestDenormClearedRelationEmptiesMirror(t *testing.T) {
	f := newDenormFixture(t, `{"denorm":{"targetFieldApiKey":"authorNames"}}`)
	env := f.env
	ctx := context.Background()

	a := env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Ada")})
	article := env.mustCreateEntry(t, f.article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{a.ID.String()}},
	}})
	if got := f.mirrorValue(t, article.ID); got != "Ada" {
		t.Fatalf("mirror before clear: want=%q got=%q", "Ada", got)
	}

	if _, err := env.entries.UpdateEntry(ctx, article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{}},
	}}, nil); err != nil {
		t.Fatalf("clear relation: %v", err)
	}

	if got := f.mirrorValue(t, article.ID); got != "" {
		t.Fatalf("mirror after clear: want empty got=%q", got)
	}
}

func TestDenormDisabledWritesNothing(t *testing.T) {
	f := newDenormFixture(t, `{"denorm":{"targetFieldApiKey":"authorNames"}}`)
	env := f.env

	// Rebuild the write path with denorm switched off.
	disabled := NewDenormService(env.db, logger.NewNop(), false, env.schemas, env.fieldRepo, env.entryRepo, env.valueRepo, env.relRepo, env.m2mRepo)
	entries := NewEntryService(env.db, logger.NewNop(), env.schemas, env.validator, env.entryRepo, env.valueRepo, env.relRepo, env.m2mRepo, disabled, env.taskRepo, false, 0)

	a := env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Ada")})
	article, err := entries.CreateEntry(context.Background(), env.ws.ID, f.article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{a.ID.String()}},
	}}, nil)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	_, err = env.valueRepo.GetByEntryAndField(context.Background(), nil, article.ID, f.mirror.ID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("disabled denorm must not write, got err=%v", err)
	}
}
