package biz

import (
	"context"
	"fmt"
	"time"

	"PlayLine/internal/model"
	zapLogger "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultFetchTTL is used when FetchWithCircuitBreaker is given a non-positive ttl.
const DefaultFetchTTL = 5 * time.Minute

// CacheRepo is the fallback cache. Any Get error is treated as "no data".
type CacheRepo interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// FetchSource tags where FetchResult.Data came from.
type FetchSource string

const (
	FetchLive        FetchSource = "LIVE"
	FetchCache       FetchSource = "CACHE"
	FetchUnavailable FetchSource = "UNAVAILABLE"
)

// FetchResult is the normalized outcome of FetchWithCircuitBreaker.
type FetchResult[T any] struct {
	Data        *T          `json:"data"`
	Source      FetchSource `json:"source"`
	CircuitOpen bool        `json:"circuitOpen"`
	// Err is the live or cache failure, if any. Informational only.
	Err error `json:"-"`
}

// Fetcher runs cache-backed calls through one breaker.
type Fetcher struct {
	breaker *CircuitBreaker
	cache   CacheRepo
	log     *zapLogger.LogHelper
}

// NewFetcher binds a Fetcher to the registry's generic breaker.
func NewFetcher(registry *CircuitRegistry, cache CacheRepo, logger log.Logger) *Fetcher {
	return NewFetcherWithBreaker(registry.Generic(), cache, logger)
}

// NewFetcherWithBreaker binds a Fetcher to an explicit breaker. cache may be nil.
func NewFetcherWithBreaker(cb *CircuitBreaker, cache CacheRepo, logger log.Logger) *Fetcher {
	return &Fetcher{
		breaker: cb,
		cache:   cache,
		log:     zapLogger.NewLogHelper(log.With(logger, "module", "biz/fetch")),
	}
}

// Breaker returns the breaker the fetcher runs through.
func (f *Fetcher) Breaker() *CircuitBreaker {
	return f.breaker
}

// FetchWithCircuitBreaker calls fetchFn under the fetcher's breaker and reads
// cacheKey when the call is denied or fails. A live result is written back
// to the cache on a best-effort basis. It never fails.
func FetchWithCircuitBreaker[T any](ctx context.Context, f *Fetcher, endpoint, cacheKey string, fetchFn func(ctx context.Context) (T, error), ttl time.Duration) *FetchResult[T] {
	primary := func(ctx context.Context) (interface{}, error) {
		v, err := fetchFn(ctx)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	fallback := func(ctx context.Context) (interface{}, error) {
		if f.cache == nil || cacheKey == "" {
			return nil, nil
		}
		var v T
		if err := f.cache.Get(ctx, cacheKey, &v); err != nil {
			f.log.Debugw(
				"msg", "fallback cache read returned no data",
				"type", "cache",
				"endpoint", endpoint,
				"cache_key", cacheKey,
				"error", err,
			)
			return nil, nil
		}
		return &v, nil
	}

	res := f.breaker.Execute(ctx, endpoint, primary, fallback)

	out := &FetchResult[T]{
		CircuitOpen: res.FromCircuitBreaker || res.CircuitState == model.StateOpen,
		Err:         res.Err,
	}

	switch {
	case res.Source == SourceLive:
		out.Data = res.Data.(*T)
		out.Source = FetchLive
		f.store(ctx, endpoint, cacheKey, *out.Data, ttl)
	case res.Data != nil:
		out.Data = res.Data.(*T)
		out.Source = FetchCache
		f.log.Fallback("served cached data",
			"breaker", f.breaker.Name(),
			"endpoint", endpoint,
			"cache_key", cacheKey,
			"circuit_open", out.CircuitOpen,
		)
	default:
		out.Source = FetchUnavailable
	}

	return out
}

// store writes value to the cache. Failures and panics are logged and dropped.
func (f *Fetcher) store(ctx context.Context, endpoint, cacheKey string, value interface{}, ttl time.Duration) {
	if f.cache == nil || cacheKey == "" {
		return
	}
	if ttl <= 0 {
		ttl = DefaultFetchTTL
	}

	defer func() {
		if r := recover(); r != nil {
			f.log.Cache("cache write panicked",
				"endpoint", endpoint,
				"cache_key", cacheKey,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if err := f.cache.Set(ctx, cacheKey, value, ttl); err != nil {
		f.log.Cache("cache write failed",
			"endpoint", endpoint,
			"cache_key", cacheKey,
			"error", err,
		)
	}
}
