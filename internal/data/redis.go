package data

import (
	"context"
	"time"

	"PlayLine/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates the redis client behind the fallback cache.
// An unreachable server is logged and the client is still returned: cache
// reads then miss and writes fail, which callers already tolerate.
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data/redis"))

	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		helper.Warnw("msg", "redis is not configured, fallback cache disabled")
		return nil, func() {}, nil
	}

	network := c.Redis.Network
	if network == "" {
		network = "tcp"
	}

	rdb := redis.NewClient(&redis.Options{
		Network:         network,
		Addr:            c.Redis.Addr,
		Password:        c.Redis.Password,
		DB:              int(c.Redis.DB),
		PoolSize:        100,
		MinIdleConns:    10,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     c.Redis.ReadTimeout.AsDuration(),
		WriteTimeout:    c.Redis.WriteTimeout.AsDuration(),
		ConnMaxIdleTime: 5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnw(
			"msg", "redis unreachable, continuing with degraded fallback cache",
			"addr", c.Redis.Addr,
			"error", err,
		)
	} else {
		helper.Infow("msg", "connected to redis", "addr", c.Redis.Addr, "db", c.Redis.DB)
	}

	cleanup := func() {
		helper.Info("closing redis client")
		if err := rdb.Close(); err != nil {
			helper.Errorw("msg", "failed to close redis client", "error", err)
		}
	}

	return rdb, cleanup, nil
}
