package app

import (
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/repos"
)

type Repos struct {
	Workspace   repos.WorkspaceRepo
	ContentType repos.ContentTypeRepo
	Field       repos.ContentFieldRepo
	Entry       repos.ContentEntryRepo
	FieldValue  repos.FieldValueRepo
	Relation    repos.RelationRepo
	RelationM2M repos.RelationM2MRepo
	DenormTask  repos.DenormTaskRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Workspace:   repos.NewWorkspaceRepo(db, log),
		ContentType: repos.NewContentTypeRepo(db, log),
		Field:       repos.NewContentFieldRepo(db, log),
		Entry:       repos.NewContentEntryRepo(db, log),
		FieldValue:  repos.NewFieldValueRepo(db, log),
		Relation:    repos.NewRelationRepo(db, log),
		RelationM2M: repos.NewRelationM2MRepo(db, log),
		DenormTask:  repos.NewDenormTaskRepo(db, log),
	}
}
