package data

import (
	"context"
	"testing"
	"time"

	"PlayLine/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func redisConf(addr string) *conf.Data {
	return &conf.Data{
		Redis: &conf.Data_Redis{
			Addr:         addr,
			ReadTimeout:  durationpb.New(200 * time.Millisecond),
			WriteTimeout: durationpb.New(200 * time.Millisecond),
		},
	}
}

func TestNewRedisClient_Success(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client, cleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	// nothing listens on port 1
	client, cleanup, err := NewRedisClient(redisConf("127.0.0.1:1"), log.DefaultLogger)
	defer cleanup()

	// startup is not aborted, the client is returned degraded
	assert.NoError(t, err)
	require.NotNil(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, client.Ping(ctx).Err())
}

func TestNewRedisClient_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		c    *conf.Data
	}{
		{"nil config", nil},
		{"nil redis", &conf.Data{}},
		{"empty address", redisConf("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cleanup, err := NewRedisClient(tt.c, log.DefaultLogger)
			require.NotNil(t, cleanup)
			defer cleanup()

			assert.NoError(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestNewRedisClient_Options(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	c := redisConf(mr.Addr())
	c.Redis.DB = 2
	c.Redis.Password = "s3cret"
	mr.RequireAuth("s3cret")

	client, cleanup, err := NewRedisClient(c, log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	opts := client.Options()
	assert.Equal(t, "tcp", opts.Network)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 100, opts.PoolSize)
	assert.Equal(t, 10, opts.MinIdleConns)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.WriteTimeout)

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClient_CleanupFunction(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client, cleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	cleanup()

	assert.Error(t, client.Ping(ctx).Err())
}
