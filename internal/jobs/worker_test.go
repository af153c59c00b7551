package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkwell-backend/internal/db"
	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/services"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

func newTestWorker(t *testing.T) (*Worker, repos.DenormTaskRepo) {
	t.Helper()
	gdb, err := db.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	log := logger.NewNop()

	contentTypeRepo := repos.NewContentTypeRepo(gdb, log)
	fieldRepo := repos.NewContentFieldRepo(gdb, log)
	entryRepo := repos.NewContentEntryRepo(gdb, log)
	valueRepo := repos.NewFieldValueRepo(gdb, log)
	relRepo := repos.NewRelationRepo(gdb, log)
	m2mRepo := repos.NewRelationM2MRepo(gdb, log)
	taskRepo := repos.NewDenormTaskRepo(gdb, log)

	schemas := services.NewSchemaService(gdb, log, contentTypeRepo, fieldRepo, nil)
	denorm := services.NewDenormService(gdb, log, true, schemas, fieldRepo, entryRepo, valueRepo, relRepo, m2mRepo)

	worker := NewWorker(gdb, log, taskRepo, denorm, DefaultWorkerPolicy())
	return worker, taskRepo
}

func TestExecuteRejectsUnknownKind(t *testing.T) {
	worker, _ := newTestWorker(t)

	err := worker.Execute(context.Background(), &types.DenormTask{ID: uuid.New(), Kind: "mystery"})
	if err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestExecuteRejectsMissingPayload(t *testing.T) {
	worker, _ := newTestWorker(t)
	ctx := context.Background()

	if err := worker.Execute(ctx, &types.DenormTask{ID: uuid.New(), Kind: types.DenormTaskKindTargetChange}); err == nil {
		t.Fatalf("target_change without target entry id must fail")
	}
	if err := worker.Execute(ctx, &types.DenormTask{ID: uuid.New(), Kind: types.DenormTaskKindRelationField}); err == nil {
		t.Fatalf("relation_field without field id must fail")
	}
}

func TestExecuteTargetChangeNoEdges(t *testing.T) {
	worker, _ := newTestWorker(t)
	target := uuid.New()

	err := worker.Execute(context.Background(), &types.DenormTask{
		ID:            uuid.New(),
		WorkspaceID:   uuid.New(),
		Kind:          types.DenormTaskKindTargetChange,
		TargetEntryID: &target,
	})
	if err != nil {
		t.Fatalf("recompute with no edges must no-op, got %v", err)
	}
}

func TestRunTaskMarksFailureAndBacksOff(t *testing.T) {
	worker, taskRepo := newTestWorker(t)
	ctx := context.Background()

	task, err := taskRepo.Enqueue(ctx, nil, &types.DenormTask{
		WorkspaceID: uuid.New(),
		Kind:        "mystery",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker.runTask(ctx, task)

	reloaded, err := taskRepo.GetByID(ctx, nil, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != types.DenormTaskFailed {
		t.Fatalf("status: want=%q got=%q", types.DenormTaskFailed, reloaded.Status)
	}
	if reloaded.LastError == "" || reloaded.RunAfter == nil {
		t.Fatalf("failure details missing: %+v", reloaded)
	}
}

func TestRunTaskMarksDone(t *testing.T) {
	worker, taskRepo := newTestWorker(t)
	ctx := context.Background()
	target := uuid.New()

	task, err := taskRepo.Enqueue(ctx, nil, &types.DenormTask{
		WorkspaceID:   uuid.New(),
		Kind:          types.DenormTaskKindTargetChange,
		TargetEntryID: &target,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker.runTask(ctx, task)

	reloaded, err := taskRepo.GetByID(ctx, nil, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != types.DenormTaskDone {
		t.Fatalf("status: want=%q got=%q", types.DenormTaskDone, reloaded.Status)
	}
}
