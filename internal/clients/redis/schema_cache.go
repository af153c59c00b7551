package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/inkwell-cms/inkwell-backend/internal/logger"
	"github.com/inkwell-cms/inkwell-backend/internal/types"
)

// SchemaCache keeps content schemas in redis so the per-request schema load
// (hit by the validator, expander, and denorm engine alike) skips the
// database on repeat reads. Misses and marshal failures degrade to the
// database path.
type SchemaCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewSchemaCache(log *logger.Logger, addr string, ttl time.Duration) (*SchemaCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &SchemaCache{
		log: log.With("service", "RedisSchemaCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func schemaKey(contentTypeID uuid.UUID) string {
	return "inkwell:schema:" + contentTypeID.String()
}

func (c *SchemaCache) Get(ctx context.Context, contentTypeID uuid.UUID) (*types.ContentSchema, bool) {
	raw, err := c.rdb.Get(ctx, schemaKey(contentTypeID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("schema cache get failed", "content_type_id", contentTypeID, "error", err)
		}
		return nil, false
	}
	var schema types.ContentSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		c.log.Warn("schema cache entry corrupt, dropping", "content_type_id", contentTypeID, "error", err)
		_ = c.rdb.Del(ctx, schemaKey(contentTypeID)).Err()
		return nil, false
	}
	return &schema, true
}

func (c *SchemaCache) Set(ctx context.Context, schema *types.ContentSchema) {
	if schema == nil || schema.ContentType == nil {
		return
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		c.log.Warn("schema cache marshal failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, schemaKey(schema.ContentType.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("schema cache set failed", "content_type_id", schema.ContentType.ID, "error", err)
	}
}

func (c *SchemaCache) Invalidate(ctx context.Context, contentTypeID uuid.UUID) {
	if err := c.rdb.Del(ctx, schemaKey(contentTypeID)).Err(); err != nil {
		c.log.Warn("schema cache invalidate failed", "content_type_id", contentTypeID, "error", err)
	}
}

func (c *SchemaCache) Close() error {
	return c.rdb.Close()
}
