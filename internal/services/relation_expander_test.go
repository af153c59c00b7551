package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// expanderFixture builds an author/article graph: articles relate to authors
// through the ordered "authors" field.
type expanderFixture struct {
	env      *testEnv
	author   *types.ContentType
	article  *types.ContentType
	authors  *types.ContentField
	authorA  *types.ContentEntry
	authorB  *types.ContentEntry
	authorC  *types.ContentEntry
	article1 *types.ContentEntry
}

func newExpanderFixture(t *testing.T) *expanderFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &expanderFixture{env: env}

	f.author = env.mustCreateContentType(t, "author")
	f.article = env.mustCreateContentType(t, "article")
	f.authors = env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: f.article.ID, APIKey: "authors", Name: "Authors", Type: types.FieldTypeRelation,
		RelationKind: types.RelationOneToMany, TargetContentTypeID: f.author.ID,
	})

	f.authorA = env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Ada"), IsPublished: boolPtr(true)})
	f.authorB = env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Brian"), IsPublished: boolPtr(true)})
	f.authorC = env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Cleo"), IsPublished: boolPtr(true)})

	f.article1 = env.mustCreateEntry(t, f.article.ID, EntryPayload{
		SeoTitle:    strPtr("Graph Shapes"),
		IsPublished: boolPtr(true),
		Values: []EntryValue{
			{APIKey: "authors", Value: []any{f.authorA.ID.String(), f.authorB.ID.String(), f.authorC.ID.String()}},
		},
	})
	return f
}

func (f *expanderFixture) expand(t *testing.T, params ExpandParams) *Expansion {
	t.Helper()
	params.WorkspaceID = f.env.ws.ID
	params.ContentTypeID = f.article.ID
	result, err := f.env.expander.Expand(context.Background(), params)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	return result
}

func TestExpandPreservesEdgeOrder(t *testing.T) {
	f := newExpanderFixture(t)

	result := f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{f.article1.ID}, Depth: 1})

	value := result.Roots[f.article1.ID]["authors"]
	if value == nil {
		t.Fatalf("authors relation missing: %+v", result.Roots)
	}
	want := []uuid.UUID{f.authorA.ID, f.authorB.ID, f.authorC.ID}
	if len(value.TargetIDs) != len(want) {
		t.Fatalf("targets: want=%d got=%d", len(want), len(value.TargetIDs))
	}
	for i, id := range want {
		if value.TargetIDs[i] != id {
			t.Fatalf("target order at %d: want=%s got=%s", i, id, value.TargetIDs[i])
		}
	}
	if result.Targets[f.authorB.ID] == nil || result.Targets[f.authorB.ID].SeoTitle != "Brian" {
		t.Fatalf("target summary missing or wrong: %+v", result.Targets[f.authorB.ID])
	}
}

func TestExpandDepthZeroResolvesNothing(t *testing.T) {
	f := newExpanderFixture(t)

	result := f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{f.article1.ID}, Depth: 0})

	root, ok := result.Roots[f.article1.ID]
	if !ok {
		t.Fatalf("root key must exist even at depth 0")
	}
	if len(root) != 0 || len(result.Targets) != 0 {
		t.Fatalf("depth 0 must resolve nothing, got roots=%v targets=%d", root, len(result.Targets))
	}
}

func TestExpandExcludesUnpublishedTargets(t *testing.T) {
	f := newExpanderFixture(t)

	draft := f.env.mustCreateEntry(t, f.author.ID, EntryPayload{SeoTitle: strPtr("Drafty")})
	article := f.env.mustCreateEntry(t, f.article.ID, EntryPayload{
		IsPublished: boolPtr(true),
		Values: []EntryValue{
			{APIKey: "authors", Value: []any{draft.ID.String(), f.authorA.ID.String()}},
		},
	})

	result := f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{article.ID}, Depth: 1})
	value := result.Roots[article.ID]["authors"]
	if value == nil || len(value.TargetIDs) != 1 || value.TargetIDs[0] != f.authorA.ID {
		t.Fatalf("public scope must drop drafts, got %+v", value)
	}

	result = f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{article.ID}, Depth: 1, IncludeUnpublished: true})
	value = result.Roots[article.ID]["authors"]
	if value == nil || len(value.TargetIDs) != 2 {
		t.Fatalf("workspace scope must include drafts, got %+v", value)
	}
}

func TestExpandSingleValuedKind(t *testing.T) {
	env := newTestEnv(t)
	author := env.mustCreateContentType(t, "author")
	article := env.mustCreateContentType(t, "article")
	env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: article.ID, APIKey: "owner", Name: "Owner", Type: types.FieldTypeRelation,
		RelationKind: types.RelationManyToOne, TargetContentTypeID: author.ID,
	})
	a := env.mustCreateEntry(t, author.ID, EntryPayload{SeoTitle: strPtr("Ada"), IsPublished: boolPtr(true)})
	entry := env.mustCreateEntry(t, article.ID, EntryPayload{
		IsPublished: boolPtr(true),
		Values:      []EntryValue{{APIKey: "owner", Value: a.ID.String()}},
	})

	result, err := env.expander.Expand(context.Background(), ExpandParams{
		WorkspaceID: env.ws.ID, ContentTypeID: article.ID,
		RootEntryIDs: []uuid.UUID{entry.ID}, Depth: 1,
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	value := result.Roots[entry.ID]["owner"]
	if value == nil || !value.Single || len(value.TargetIDs) != 1 || value.TargetIDs[0] != a.ID {
		t.Fatalf("single-valued expansion: %+v", value)
	}
}

func TestExpandNestedLevelsAndClamping(t *testing.T) {
	f := newExpanderFixture(t)
	env := f.env

	// Give authors their own relation so depth > 1 has something to resolve.
	env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: f.author.ID, APIKey: "mentor", Name: "Mentor", Type: types.FieldTypeRelation,
		RelationKind: types.RelationManyToOne, TargetContentTypeID: f.author.ID,
	})
	if _, err := env.entries.UpdateEntry(context.Background(), f.authorA.ID, EntryPayload{
		Values: []EntryValue{{APIKey: "mentor", Value: f.authorB.ID.String()}},
	}, nil); err != nil {
		t.Fatalf("link mentor: %v", err)
	}

	shallow := f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{f.article1.ID}, Depth: 1})
	if len(shallow.Nested) != 0 {
		t.Fatalf("depth 1 must not recurse, got nested=%v", shallow.Nested)
	}

	deep := f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{f.article1.ID}, Depth: 2})
	mentor := deep.Nested[f.authorA.ID]["mentor"]
	if mentor == nil || len(mentor.TargetIDs) != 1 || mentor.TargetIDs[0] != f.authorB.ID {
		t.Fatalf("nested mentor relation: %+v", deep.Nested)
	}

	// An out-of-range depth behaves like the maximum, not an error.
	clamped := f.expand(t, ExpandParams{RootEntryIDs: []uuid.UUID{f.article1.ID}, Depth: 50})
	if clamped.Nested[f.authorA.ID]["mentor"] == nil {
		t.Fatalf("clamped depth must still recurse: %+v", clamped.Nested)
	}
}

func TestExpandRootFieldWhitelist(t *testing.T) {
	f := newExpanderFixture(t)
	env := f.env

	env.mustCreateField(t, CreateFieldParams{
		ContentTypeID: f.article.ID, APIKey: "reviewer", Name: "Reviewer", Type: types.FieldTypeRelation,
		RelationKind: types.RelationManyToOne, TargetContentTypeID: f.author.ID,
	})
	if _, err := env.entries.UpdateEntry(context.Background(), f.article1.ID, EntryPayload{
		Values: []EntryValue{{APIKey: "reviewer", Value: f.authorC.ID.String()}},
	}, nil); err != nil {
		t.Fatalf("link reviewer: %v", err)
	}

	result := f.expand(t, ExpandParams{
		RootEntryIDs:        []uuid.UUID{f.article1.ID},
		Depth:               1,
		AllowedFieldAPIKeys: []string{"reviewer"},
	})
	root := result.Roots[f.article1.ID]
	if root["authors"] != nil {
		t.Fatalf("whitelist must hide authors, got %+v", root)
	}
	if root["reviewer"] == nil || len(root["reviewer"].TargetIDs) != 1 {
		t.Fatalf("whitelisted field missing: %+v", root)
	}
}
