package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/utils"
)

// Config carries the runtime knobs for the content engine. Environment
// variables provide the base values; an optional YAML file named by
// INKWELL_CONFIG overrides them (useful for local overrides without touching
// the environment).
type Config struct {
	Mode               string        `yaml:"mode"`
	DenormEnabled      bool          `yaml:"denormEnabled"`
	DenormAsync        bool          `yaml:"denormAsync"`
	DenormMaxAttempts  int           `yaml:"denormMaxAttempts"`
	DenormRetryDelay   time.Duration `yaml:"denormRetryDelay"`
	DenormPollInterval time.Duration `yaml:"denormPollInterval"`
	UploadPathPrefix   string        `yaml:"uploadPathPrefix"`
	SlugMaxLength      int           `yaml:"slugMaxLength"`
	RedisAddr          string        `yaml:"redisAddr"`
	SchemaCacheTTL     time.Duration `yaml:"schemaCacheTTL"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Mode:               utils.GetEnv("LOG_MODE", "development", log),
		DenormEnabled:      utils.GetEnvAsBool("DENORM_ENABLED", true, log),
		DenormAsync:        utils.GetEnvAsBool("DENORM_ASYNC", true, log),
		DenormMaxAttempts:  utils.GetEnvAsInt("DENORM_MAX_ATTEMPTS", 5, log),
		DenormRetryDelay:   time.Duration(utils.GetEnvAsInt("DENORM_RETRY_DELAY_SECONDS", 30, log)) * time.Second,
		DenormPollInterval: time.Duration(utils.GetEnvAsInt("DENORM_POLL_INTERVAL_MS", 1000, log)) * time.Millisecond,
		UploadPathPrefix:   utils.GetEnv("UPLOAD_PATH_PREFIX", "/uploads/", log),
		SlugMaxLength:      utils.GetEnvAsInt("SLUG_MAX_LENGTH", utils.DefaultSlugMaxLength, log),
		RedisAddr:          utils.GetEnv("REDIS_ADDR", "", log),
		SchemaCacheTTL:     time.Duration(utils.GetEnvAsInt("SCHEMA_CACHE_TTL_SECONDS", 300, log)) * time.Second,
	}

	path := os.Getenv("INKWELL_CONFIG")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	log.Info("Applied config file overrides", "path", path)
	return cfg, nil
}
