package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/db"
	"github.com/inkwell-cms/inkwell-backend/internal/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return gdb
}

func TestM2MAttachManyIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRelationM2MRepo(gdb, logger.NewNop())
	ctx := context.Background()

	wsID, fieldID, fromID := uuid.New(), uuid.New(), uuid.New()
	t1, t2, t3 := uuid.New(), uuid.New(), uuid.New()

	if err := repo.AttachMany(ctx, nil, wsID, fieldID, fromID, []uuid.UUID{t1, t2}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	// Re-attaching an existing pair must neither fail nor duplicate.
	if err := repo.AttachMany(ctx, nil, wsID, fieldID, fromID, []uuid.UUID{t2, t3}); err != nil {
		t.Fatalf("second attach: %v", err)
	}

	count, err := repo.CountByFieldAndFrom(ctx, nil, fieldID, fromID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("edge count: want=3 got=%d", count)
	}
}

func TestM2MDetachManyIgnoresMissing(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRelationM2MRepo(gdb, logger.NewNop())
	ctx := context.Background()

	wsID, fieldID, fromID := uuid.New(), uuid.New(), uuid.New()
	t1 := uuid.New()
	if err := repo.AttachMany(ctx, nil, wsID, fieldID, fromID, []uuid.UUID{t1}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := repo.DetachMany(ctx, nil, fieldID, fromID, []uuid.UUID{t1, uuid.New()}); err != nil {
		t.Fatalf("detach with missing edge: %v", err)
	}
	count, err := repo.CountByFieldAndFrom(ctx, nil, fieldID, fromID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("edge count after detach: want=0 got=%d", count)
	}
}

func TestM2MReplaceForField(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRelationM2MRepo(gdb, logger.NewNop())
	ctx := context.Background()

	wsID, fieldID, fromID := uuid.New(), uuid.New(), uuid.New()
	t1, t2, t3 := uuid.New(), uuid.New(), uuid.New()

	if err := repo.ReplaceForField(ctx, nil, wsID, fieldID, fromID, []uuid.UUID{t1, t2}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := repo.ReplaceForField(ctx, nil, wsID, fieldID, fromID, []uuid.UUID{t3}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	related, err := repo.ListRelated(ctx, nil, fieldID, fromID)
	if err != nil {
		t.Fatalf("list related: %v", err)
	}
	if len(related) != 1 || related[0] != t3 {
		t.Fatalf("related after replace: want=[%s] got=%v", t3, related)
	}
}

func TestM2MBulkLoadScopedToWorkspace(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRelationM2MRepo(gdb, logger.NewNop())
	ctx := context.Background()

	wsID, otherWsID := uuid.New(), uuid.New()
	fieldID, fromID := uuid.New(), uuid.New()

	if err := repo.AttachMany(ctx, nil, wsID, fieldID, fromID, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	edges, err := repo.GetByFieldsAndFrom(ctx, nil, wsID, []uuid.UUID{fieldID}, []uuid.UUID{fromID})
	if err != nil {
		t.Fatalf("get edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("own-workspace edges: want=1 got=%d", len(edges))
	}

	foreign, err := repo.GetByFieldsAndFrom(ctx, nil, otherWsID, []uuid.UUID{fieldID}, []uuid.UUID{fromID})
	if err != nil {
		t.Fatalf("get foreign edges: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("edges must not cross workspaces, got %d", len(foreign))
	}
}
