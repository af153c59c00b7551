package app

import (
	"gorm.io/gorm"

	"github.com/inkwell-cms/inkwell-backend/internal/clients/redis"
	"github.com/inkwell-cms/inkwell-backend/internal/jobs"
	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/services"
)

type Services struct {
	Schema       services.SchemaService
	Validator    services.EntryValidator
	Expander     services.RelationExpander
	Denorm       services.DenormService
	Entry        services.EntryService
	DenormWorker *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	var cache services.SchemaCache
	if cfg.RedisAddr != "" {
		redisCache, err := redis.NewSchemaCache(log, cfg.RedisAddr, cfg.SchemaCacheTTL)
		if err != nil {
			log.Warn("Schema cache unavailable, reads go straight to the database", "error", err)
		} else {
			cache = redisCache
		}
	}

	schemaService := services.NewSchemaService(db, log, reposet.ContentType, reposet.Field, cache)
	validator := services.NewEntryValidator(log, reposet.FieldValue, cfg.UploadPathPrefix, cfg.SlugMaxLength)
	expander := services.NewRelationExpander(db, log, schemaService, reposet.Entry, reposet.FieldValue, reposet.Relation, reposet.RelationM2M)
	denormService := services.NewDenormService(db, log, cfg.DenormEnabled, schemaService, reposet.Field, reposet.Entry, reposet.FieldValue, reposet.Relation, reposet.RelationM2M)
	entryService := services.NewEntryService(db, log, schemaService, validator, reposet.Entry, reposet.FieldValue, reposet.Relation, reposet.RelationM2M, denormService, reposet.DenormTask, cfg.DenormAsync, cfg.SlugMaxLength)

	var worker *jobs.Worker
	if cfg.DenormEnabled && cfg.DenormAsync {
		policy := jobs.DefaultWorkerPolicy()
		policy.MaxAttempts = cfg.DenormMaxAttempts
		policy.RetryDelay = cfg.DenormRetryDelay
		policy.PollInterval = cfg.DenormPollInterval
		worker = jobs.NewWorker(db, log, reposet.DenormTask, denormService, policy)
	}

	return Services{
		Schema:       schemaService,
		Validator:    validator,
		Expander:     expander,
		Denorm:       denormService,
		Entry:        entryService,
		DenormWorker: worker,
	}, nil
}
