package biz

import (
	"fmt"
	"sort"

	"PlayLine/internal/conf"
	"PlayLine/internal/model"
	perrors "PlayLine/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitRegistry holds one breaker per upstream category.
// It is built once at startup and injected where needed.
type CircuitRegistry struct {
	names    []string
	breakers map[string]*CircuitBreaker
}

// BreakerConfigFromConf converts the configuration of one category.
func BreakerConfigFromConf(b *conf.Breaker, maxEndpoints int32) CircuitBreakerConfig {
	if b == nil {
		return CircuitBreakerConfig{MaxEndpoints: int(maxEndpoints)}
	}
	return CircuitBreakerConfig{
		FailureThreshold: int(b.FailureThreshold),
		RecoveryTimeout:  b.RecoveryTimeout.AsDuration(),
		HalfOpenRequests: int(b.HalfOpenRequests),
		ResetTimeout:     b.ResetTimeout.AsDuration(),
		MaxEndpoints:     int(maxEndpoints),
	}
}

// NewCircuitRegistry creates the generic, stats, odds, llm and search breakers.
// Every breaker shares the same listeners.
func NewCircuitRegistry(c *conf.Resilience, logger log.Logger, listeners []CircuitListener) (*CircuitRegistry, error) {
	if c == nil {
		return nil, perrors.NewConfigurationError("resilience", "resilience", "is missing")
	}

	breakers := make([]*CircuitBreaker, 0, len(conf.BreakerNames))
	for _, name := range conf.BreakerNames {
		cb, err := NewCircuitBreaker(name, BreakerConfigFromConf(c.Breaker(name), c.MaxEndpoints), logger,
			WithListeners(listeners...))
		if err != nil {
			return nil, err
		}
		breakers = append(breakers, cb)
	}

	registry, err := NewCircuitRegistryFrom(breakers...)
	if err != nil {
		return nil, err
	}

	helper := log.NewHelper(log.With(logger, "module", "biz/circuit_registry"))
	for _, cb := range breakers {
		cfg := cb.Config()
		helper.Infow(
			"msg", "circuit breaker configured",
			"breaker", cb.Name(),
			"failure_threshold", cfg.FailureThreshold,
			"recovery_timeout", cfg.RecoveryTimeout.String(),
			"half_open_requests", cfg.HalfOpenRequests,
			"reset_timeout", cfg.ResetTimeout.String(),
		)
	}

	return registry, nil
}

// NewCircuitRegistryFrom builds a registry from existing breakers, keeping their order.
func NewCircuitRegistryFrom(breakers ...*CircuitBreaker) (*CircuitRegistry, error) {
	r := &CircuitRegistry{breakers: make(map[string]*CircuitBreaker, len(breakers))}
	for _, cb := range breakers {
		if cb == nil {
			return nil, perrors.NewConfigurationError("circuit registry", "breaker", "must not be nil")
		}
		if _, dup := r.breakers[cb.Name()]; dup {
			return nil, perrors.NewConfigurationError("circuit registry", cb.Name(), "is registered twice")
		}
		r.names = append(r.names, cb.Name())
		r.breakers[cb.Name()] = cb
	}
	return r, nil
}

// Get returns the named breaker.
func (r *CircuitRegistry) Get(name string) (*CircuitBreaker, bool) {
	cb, ok := r.breakers[name]
	return cb, ok
}

// MustGet panics when the breaker is missing. Only for names known at build time.
func (r *CircuitRegistry) MustGet(name string) *CircuitBreaker {
	cb, ok := r.breakers[name]
	if !ok {
		panic(fmt.Sprintf("circuit breaker %q is not registered", name))
	}
	return cb
}

// Names returns breaker names in registration order.
func (r *CircuitRegistry) Names() []string {
	return append([]string(nil), r.names...)
}

// Generic returns the breaker for upstreams without a dedicated one.
func (r *CircuitRegistry) Generic() *CircuitBreaker { return r.MustGet(conf.BreakerGeneric) }

// Stats returns the stats provider breaker.
func (r *CircuitRegistry) Stats() *CircuitBreaker { return r.MustGet(conf.BreakerStats) }

// Odds returns the odds provider breaker.
func (r *CircuitRegistry) Odds() *CircuitBreaker { return r.MustGet(conf.BreakerOdds) }

// LLM returns the language model breaker.
func (r *CircuitRegistry) LLM() *CircuitBreaker { return r.MustGet(conf.BreakerLLM) }

// Search returns the search provider breaker.
func (r *CircuitRegistry) Search() *CircuitBreaker { return r.MustGet(conf.BreakerSearch) }

// CircuitHealth is the flattened state of every circuit in the registry.
type CircuitHealth struct {
	Healthy  bool                    `json:"healthy"`
	Circuits map[string]CircuitStats `json:"circuits"`
}

// OpenCircuits returns the sorted keys of OPEN circuits.
func (h *CircuitHealth) OpenCircuits() []string {
	var open []string
	for key, stats := range h.Circuits {
		if stats.State == model.StateOpen {
			open = append(open, key)
		}
	}
	sort.Strings(open)
	return open
}

// GetCircuitHealth reports unhealthy when any circuit is OPEN.
// Keys are "<breaker>:<endpoint>". It reads snapshots only, so an idle OPEN
// circuit whose cooldown has passed still reports OPEN until its next request.
func (r *CircuitRegistry) GetCircuitHealth() *CircuitHealth {
	health := &CircuitHealth{Healthy: true, Circuits: make(map[string]CircuitStats)}
	for _, name := range r.names {
		for endpoint, stats := range r.breakers[name].GetAllStates() {
			health.Circuits[name+":"+endpoint] = stats
			if stats.State == model.StateOpen {
				health.Healthy = false
			}
		}
	}
	return health
}
