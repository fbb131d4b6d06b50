// Package data provides data access layer implementations.
// It handles the fallback cache and the circuit event store.
package data

import (
	"PlayLine/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewCacheClient,
	NewMySQLClient,
	NewCircuitEventLog,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient backs the fallback cache
	redisClient *redis.Client
	// cache is the cache interface used by fetchers
	cache CacheClient
	// db stores circuit transitions, nil when no database is configured
	db *gorm.DB
}

// NewData creates a new Data instance with all data layer dependencies.
// Missing Redis or MySQL does not prevent application startup.
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, cache CacheClient, db *gorm.DB) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	if rdb == nil {
		helper.Warn("Redis client is nil, fallback cache will be unavailable")
	}
	if db == nil {
		helper.Warn("database is nil, circuit events will not be persisted")
	}

	d := &Data{
		redisClient: rdb,
		cache:       cache,
		db:          db,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
	}

	return d, cleanup, nil
}

// GetCache returns the cache client.
func (d *Data) GetCache() CacheClient {
	return d.cache
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}

// CacheAvailable reports whether the fallback cache is usable.
func (d *Data) CacheAvailable() bool {
	return d.redisClient != nil
}

// EventStoreAvailable reports whether circuit events are persisted.
func (d *Data) EventStoreAvailable() bool {
	return d.db != nil
}
