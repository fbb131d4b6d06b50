// Package service implements the HTTP-facing services.
package service

import (
	"PlayLine/internal/data"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewCircuitService,
	wire.Bind(new(EventLister), new(*data.CircuitEventLog)),
)
