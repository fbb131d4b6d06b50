package metrics

import "github.com/google/wire"

// ProviderSet is metrics providers.
var ProviderSet = wire.NewSet(NewRegistry, NewCircuitMetrics)
