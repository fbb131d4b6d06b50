package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"PlayLine/internal/data"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCacheRepo is a mock implementation of CacheRepo for testing.
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type standings struct {
	League string   `json:"league"`
	Teams  []string `json:"teams"`
}

func newTestFetcher(t *testing.T, cache CacheRepo) (*Fetcher, *fakeClock) {
	t.Helper()
	cb, clock, _ := newTestBreaker(t, scenarioConfig())
	return NewFetcherWithBreaker(cb, cache, testLogger), clock
}

func liveStandings(ctx context.Context) (standings, error) {
	return standings{League: "EPL", Teams: []string{"ARS", "LIV"}}, nil
}

func failingStandings(ctx context.Context) (standings, error) {
	return standings{}, errUpstream
}

func TestFetch_LiveWritesCache(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCacheRepo)
	cache.On("Set", ctx, "stats:standings:epl", standings{League: "EPL", Teams: []string{"ARS", "LIV"}}, 90*time.Second).
		Return(nil)

	f, _ := newTestFetcher(t, cache)
	res := FetchWithCircuitBreaker(ctx, f, "standings", "stats:standings:epl", liveStandings, 90*time.Second)

	assert.Equal(t, FetchLive, res.Source)
	require.NotNil(t, res.Data)
	assert.Equal(t, "EPL", res.Data.League)
	assert.False(t, res.CircuitOpen)
	cache.AssertExpectations(t)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetch_CacheWriteFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCacheRepo)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, DefaultFetchTTL).Return(errors.New("READONLY"))

	f, _ := newTestFetcher(t, cache)
	res := FetchWithCircuitBreaker(ctx, f, "standings", "k", liveStandings, 0)

	assert.Equal(t, FetchLive, res.Source)
	assert.NoError(t, res.Err)
	cache.AssertExpectations(t)
}

func TestFetch_CacheWritePanicIsIgnored(t *testing.T) {
	cache := new(MockCacheRepo)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("driver bug")
	})

	f, _ := newTestFetcher(t, cache)

	var res *FetchResult[standings]
	require.NotPanics(t, func() {
		res = FetchWithCircuitBreaker(context.Background(), f, "standings", "k", liveStandings, time.Minute)
	})
	assert.Equal(t, FetchLive, res.Source)
}

func TestFetch_FailureServesCache(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCacheRepo)
	cache.On("Get", ctx, "k", mock.AnythingOfType("*biz.standings")).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*standings)
			*dest = standings{League: "EPL (cached)"}
		}).
		Return(nil)

	f, _ := newTestFetcher(t, cache)
	res := FetchWithCircuitBreaker(ctx, f, "standings", "k", failingStandings, time.Minute)

	assert.Equal(t, FetchCache, res.Source)
	require.NotNil(t, res.Data)
	assert.Equal(t, "EPL (cached)", res.Data.League)
	assert.False(t, res.CircuitOpen)
	assert.ErrorIs(t, res.Err, errUpstream)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFetch_BothFailUnavailable(t *testing.T) {
	cache := new(MockCacheRepo)
	cache.On("Get", mock.Anything, "k", mock.Anything).Return(data.ErrCacheNotFound)

	f, _ := newTestFetcher(t, cache)
	res := FetchWithCircuitBreaker(context.Background(), f, "standings", "k", failingStandings, time.Minute)

	assert.Equal(t, FetchUnavailable, res.Source)
	assert.Nil(t, res.Data)
}

func TestFetch_CacheReadErrorIsNoData(t *testing.T) {
	cache := new(MockCacheRepo)
	cache.On("Get", mock.Anything, "k", mock.Anything).Return(errors.New("connection refused"))

	f, _ := newTestFetcher(t, cache)
	res := FetchWithCircuitBreaker(context.Background(), f, "standings", "k", failingStandings, time.Minute)

	assert.Equal(t, FetchUnavailable, res.Source)
}

func TestFetch_NilCache(t *testing.T) {
	f, _ := newTestFetcher(t, nil)

	res := FetchWithCircuitBreaker(context.Background(), f, "standings", "k", failingStandings, time.Minute)
	assert.Equal(t, FetchUnavailable, res.Source)

	res = FetchWithCircuitBreaker(context.Background(), f, "standings", "k", liveStandings, time.Minute)
	assert.Equal(t, FetchLive, res.Source)
}

func TestFetch_OpenCircuitSkipsLiveCall(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCacheRepo)
	cache.On("Get", mock.Anything, "k", mock.Anything).Return(data.ErrCacheNotFound)

	f, _ := newTestFetcher(t, cache)
	for i := 0; i < 3; i++ {
		res := FetchWithCircuitBreaker(ctx, f, "standings", "k", failingStandings, time.Minute)
		assert.Equal(t, FetchUnavailable, res.Source)
	}

	calls := 0
	res := FetchWithCircuitBreaker(ctx, f, "standings", "k", func(ctx context.Context) (standings, error) {
		calls++
		return standings{}, nil
	}, time.Minute)

	assert.Equal(t, 0, calls)
	assert.True(t, res.CircuitOpen)
	assert.Equal(t, FetchUnavailable, res.Source)
}

func TestFetch_RedisReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	f, clock := newTestFetcher(t, data.NewCacheClient(rdb))
	key := data.BuildCacheKey(data.CacheKeyStats, "standings", "epl")

	res := FetchWithCircuitBreaker(ctx, f, "standings", key, liveStandings, time.Minute)
	require.Equal(t, FetchLive, res.Source)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// Open the circuit; the cached copy is served without calling upstream.
	for i := 0; i < 3; i++ {
		f.Breaker().RecordFailure("standings", errUpstream)
	}
	res = FetchWithCircuitBreaker(ctx, f, "standings", key, failingStandings, time.Minute)
	assert.Equal(t, FetchCache, res.Source)
	assert.True(t, res.CircuitOpen)
	require.NotNil(t, res.Data)
	assert.Equal(t, []string{"ARS", "LIV"}, res.Data.Teams)

	// Once the key expires nothing is left.
	mr.FastForward(2 * time.Minute)
	clock.Advance(30 * time.Second)
	res = FetchWithCircuitBreaker(ctx, f, "standings", key, failingStandings, time.Minute)
	assert.Equal(t, FetchUnavailable, res.Source)
}
