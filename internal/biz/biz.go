// Package biz contains the resilience layer: circuit breakers, the cache-backed
// fetch helper and the response quality and metadata builders.
package biz

import (
	"PlayLine/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCircuitRegistry,
	NewFetcher,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(CacheRepo), new(data.CacheClient)),
)
