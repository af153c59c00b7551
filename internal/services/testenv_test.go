package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/db"
	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// testEnv wires the full service stack against an in-memory database, with
// the schema cache disabled and denorm running inline.
type testEnv struct {
	db *gorm.DB
	ws *types.Workspace

	workspaceRepo repos.WorkspaceRepo
	fieldRepo     repos.ContentFieldRepo
	entryRepo     repos.ContentEntryRepo
	valueRepo     repos.FieldValueRepo
	relRepo       repos.RelationRepo
	m2mRepo       repos.RelationM2MRepo
	taskRepo      repos.DenormTaskRepo

	schemas   SchemaService
	validator EntryValidator
	expander  RelationExpander
	denorm    DenormService
	entries   EntryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	log := logger.NewNop()

	env := &testEnv{
		db:            gdb,
		workspaceRepo: repos.NewWorkspaceRepo(gdb, log),
		fieldRepo:     repos.NewContentFieldRepo(gdb, log),
		entryRepo:     repos.NewContentEntryRepo(gdb, log),
		valueRepo:     repos.NewFieldValueRepo(gdb, log),
		relRepo:       repos.NewRelationRepo(gdb, log),
		m2mRepo:       repos.NewRelationM2MRepo(gdb, log),
		taskRepo:      repos.NewDenormTaskRepo(gdb, log),
	}
	contentTypeRepo := repos.NewContentTypeRepo(gdb, log)
	env.schemas = NewSchemaService(gdb, log, contentTypeRepo, env.fieldRepo, nil)
	env.validator = NewEntryValidator(log, env.valueRepo, "", 0)
	env.expander = NewRelationExpander(gdb, log, env.schemas, env.entryRepo, env.valueRepo, env.relRepo, env.m2mRepo)
	env.denorm = NewDenormService(gdb, log, true, env.schemas, env.fieldRepo, env.entryRepo, env.valueRepo, env.relRepo, env.m2mRepo)
	env.entries = NewEntryService(gdb, log, env.schemas, env.validator, env.entryRepo, env.valueRepo, env.relRepo, env.m2mRepo, env.denorm, env.taskRepo, false, 0)

	ws, err := env.workspaceRepo.Create(context.Background(), nil, &types.Workspace{Name: "test"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	env.ws = ws
	return env
}

func (env *testEnv) mustCreateContentType(t *testing.T, apiKey string) *types.ContentType {
	t.Helper()
	ct, err := env.schemas.CreateContentType(context.Background(), CreateContentTypeParams{
		WorkspaceID: env.ws.ID,
		APIKey:      apiKey,
		Name:        apiKey,
	})
	if err != nil {
		t.Fatalf("create content type %s: %v", apiKey, err)
	}
	return ct
}

func (env *testEnv) mustCreateField(t *testing.T, params CreateFieldParams) *types.ContentField {
	t.Helper()
	field, err := env.schemas.CreateField(context.Background(), params)
	if err != nil {
		t.Fatalf("create field %s: %v", params.APIKey, err)
	}
	return field
}

func (env *testEnv) mustCreateEntry(t *testing.T, contentTypeID uuid.UUID, payload EntryPayload) *types.ContentEntry {
	t.Helper()
	entry, err := env.entries.CreateEntry(context.Background(), env.ws.ID, contentTypeID, payload, nil)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return entry
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func jsonCfg(s string) datatypes.JSON {
	return datatypes.JSON([]byte(s))
}
