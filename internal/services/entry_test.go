package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

func TestCreateEntrySuffixesCollidingSlugs(t *testing.T) {
	env := newTestEnv(t)
	ct := env.mustCreateContentType(t, "author")

	first := env.mustCreateEntry(t, ct.ID, EntryPayload{SeoTitle: strPtr("John Doe")})
	second := env.mustCreateEntry(t, ct.ID, EntryPayload{SeoTitle: strPtr("John Doe")})
	third := env.mustCreateEntry(t, ct.ID, EntryPayload{SeoTitle: strPtr("John Doe")})

	if first.Slug == nil || *first.Slug != "john-doe" {
		t.Fatalf("first slug: want=%q got=%v", "john-doe", first.Slug)
	}
	if second.Slug == nil || *second.Slug != "john-doe-2" {
		t.Fatalf("second slug: want=%q got=%v", "john-doe-2", second.Slug)
	}
	if third.Slug == nil || *third.Slug != "john-doe-3" {
		t.Fatalf("third slug: want=%q got=%v", "john-doe-3", third.Slug)
	}
}

func TestUpdateEntryReplacesOnlyProvidedFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ct := env.mustCreateContentType(t, "article")
	headline := env.mustCreateField(t, CreateFieldParams{ContentTypeID: ct.ID, APIKey: "headline", Name: "Headline", Type: types.FieldTypeText})
	body := env.mustCreateField(t, CreateFieldParams{ContentTypeID: ct.ID, APIKey: "body", Name: "Body", Type: types.FieldTypeRichText})

	entry := env.mustCreateEntry(t, ct.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "headline", Value: "Original"},
		{APIKey: "body", Value: "Long text"},
	}})

	if _, err := env.entries.UpdateEntry(ctx, entry.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "headline", Value: "Edited"},
	}}, nil); err != nil {
		t.Fatalf("update entry: %v", err)
	}

	headlineValue, err := env.valueRepo.GetByEntryAndField(ctx, nil, entry.ID, headline.ID)
	if err != nil {
		t.Fatalf("load headline value: %v", err)
	}
	if headlineValue.ValueString == nil || *headlineValue.ValueString != "Edited" {
		t.Fatalf("headline: want=%q got=%+v", "Edited", headlineValue)
	}

	bodyValue, err := env.valueRepo.GetByEntryAndField(ctx, nil, entry.ID, body.ID)
	if err != nil {
		t.Fatalf("load body value: %v", err)
	}
	if bodyValue.ValueString == nil || *bodyValue.ValueString != "Long text" {
		t.Fatalf("body must be untouched, got %+v", bodyValue)
	}
}

func TestCreateEntryRejectsUnknownRelationTargets(t *testing.T) {
	env := newTestEnv(t)
	author := env.mustCreateContentType(t, "author")
	article := env.mustCreateContentType(t, "article")
	env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: article.ID, APIKey: "authors", Name: "Authors", Type: types.FieldTypeRelation,
		RelationKind: types.RelationOneToMany, TargetContentTypeID: author.ID,
	})

	_, err := env.entries.CreateEntry(context.Background(), env.ws.ID, article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "authors", Value: []any{uuid.New().String()}},
	}}, nil)
	wantRule(t, err, "authors", "relationTarget")
}

func TestCreateEntryTruncatesSingleValuedRelation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.mustCreateContentType(t, "author")
	article := env.mustCreateContentType(t, "article")
	owner := env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: article.ID, APIKey: "owner", Name: "Owner", Type: types.FieldTypeRelation,
		RelationKind: types.RelationManyToOne, TargetContentTypeID: author.ID,
	})

	a := env.mustCreateEntry(t, author.ID, EntryPayload{SeoTitle: strPtr("A")})
	b := env.mustCreateEntry(t, author.ID, EntryPayload{SeoTitle: strPtr("B")})

	entry := env.mustCreateEntry(t, article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "owner", Value: []any{a.ID.String(), b.ID.String()}},
	}})

	related, err := env.relRepo.ListRelated(ctx, nil, owner.ID, entry.ID)
	if err != nil {
		t.Fatalf("list related: %v", err)
	}
	if len(related) != 1 || related[0] != a.ID {
		t.Fatalf("single-valued relation: want=[%s] got=%v", a.ID, related)
	}
}

func TestPublishStampsPublishedAt(t *testing.T) {
	env := newTestEnv(t)
	ct := env.mustCreateContentType(t, "page")

	entry := env.mustCreateEntry(t, ct.ID, EntryPayload{IsPublished: boolPtr(true)})
	if !entry.IsPublished || entry.PublishedAt == nil {
		t.Fatalf("expected published entry with timestamp, got %+v", entry)
	}

	draft := env.mustCreateEntry(t, ct.ID, EntryPayload{})
	if draft.IsPublished || draft.PublishedAt != nil {
		t.Fatalf("expected draft without timestamp, got %+v", draft)
	}

	updated, err := env.entries.UpdateEntry(context.Background(), draft.ID, EntryPayload{IsPublished: boolPtr(true)}, nil)
	if err != nil {
		t.Fatalf("publish update: %v", err)
	}
	if !updated.IsPublished || updated.PublishedAt == nil {
		t.Fatalf("expected publish to stamp timestamp, got %+v", updated)
	}
}

func TestDeleteEntryRemovesValuesAndEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.mustCreateContentType(t, "author")
	article := env.mustCreateContentType(t, "article")
	headline := env.mustCreateField(t, CreateFieldParams{ContentTypeID: article.ID, APIKey: "headline", Name: "Headline", Type: types.FieldTypeText})
	authorsField := env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: article.ID, APIKey: "authors", Name: "Authors", Type: types.FieldTypeRelation,
		RelationKind: types.RelationManyToMany, TargetContentTypeID: author.ID,
	})

	a := env.mustCreateEntry(t, author.ID, EntryPayload{SeoTitle: strPtr("A")})
	entry := env.mustCreateEntry(t, article.ID, EntryPayload{Values: []EntryValue{
		{APIKey: "headline", Value: "Doomed"},
		{APIKey: "authors", Value: []any{a.ID.String()}},
	}})

	if err := env.entries.DeleteEntry(ctx, env.ws.ID, entry.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	if _, err := env.entryRepo.GetByID(ctx, nil, entry.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("entry must be gone, got err=%v", err)
	}
	if _, err := env.valueRepo.GetByEntryAndField(ctx, nil, entry.ID, headline.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("field value must be gone, got err=%v", err)
	}
	related, err := env.m2mRepo.ListRelated(ctx, nil, authorsField.ID, entry.ID)
	if err != nil {
		t.Fatalf("list related: %v", err)
	}
	if len(related) != 0 {
		t.Fatalf("edges must be gone, got %v", related)
	}
}

func TestDeleteEntryReleasesSlugForReuse(t *testing.T) {
	env := newTestEnv(t)
	ct := env.mustCreateContentType(t, "page")

	first := env.mustCreateEntry(t, ct.ID, EntryPayload{SeoTitle: strPtr("Hello World")})
	if first.Slug == nil || *first.Slug != "hello-world" {
		t.Fatalf("first slug: want=%q got=%v", "hello-world", first.Slug)
	}

	if err := env.entries.DeleteEntry(context.Background(), env.ws.ID, first.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}

	// The deleted entry no longer occupies the slug, so the same title maps
	// back to the plain form instead of failing or suffixing.
	second := env.mustCreateEntry(t, ct.ID, EntryPayload{SeoTitle: strPtr("Hello World")})
	if second.Slug == nil || *second.Slug != "hello-world" {
		t.Fatalf("slug after delete: want=%q got=%v", "hello-world", second.Slug)
	}
}

func TestCreateEntryRejectsLongMetaDescription(t *testing.T) {
	env := newTestEnv(t)
	ct := env.mustCreateContentType(t, "page")

	long := make([]byte, maxMetaDescriptionLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := env.entries.CreateEntry(context.Background(), env.ws.ID, ct.ID, EntryPayload{MetaDescription: strPtr(string(long))}, nil)
	wantRule(t, err, "metaDescription", "maxLength")
}
