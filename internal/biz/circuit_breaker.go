package biz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"PlayLine/internal/model"
	perrors "PlayLine/pkg/errors"
	zapLogger "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultMaxEndpoints bounds the endpoint map of a breaker when no limit is configured.
const DefaultMaxEndpoints = 1024

// ErrCircuitOpen is carried in ExecutionResult.Err when admission was denied.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitStats is the per-endpoint state of a breaker.
type CircuitStats struct {
	State            model.CircuitState `json:"state"`
	Failures         int                `json:"failures"`
	Successes        int                `json:"successes"`
	LastFailure      *time.Time         `json:"lastFailure,omitempty"`
	LastSuccess      *time.Time         `json:"lastSuccess,omitempty"`
	OpenedAt         *time.Time         `json:"openedAt,omitempty"`
	HalfOpenAttempts int                `json:"halfOpenAttempts"`
}

func (s *CircuitStats) snapshot() CircuitStats {
	return CircuitStats{
		State:            s.State,
		Failures:         s.Failures,
		Successes:        s.Successes,
		LastFailure:      copyTime(s.LastFailure),
		LastSuccess:      copyTime(s.LastSuccess),
		OpenedAt:         copyTime(s.OpenedAt),
		HalfOpenAttempts: s.HalfOpenAttempts,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CircuitBreakerConfig tunes one breaker. It is copied at construction.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenRequests int
	ResetTimeout     time.Duration
	// MaxEndpoints caps tracked endpoints; the least recently used entry is evicted.
	// Zero means DefaultMaxEndpoints.
	MaxEndpoints int
}

func (c CircuitBreakerConfig) validate(name string) error {
	component := "circuit breaker " + name
	switch {
	case name == "":
		return perrors.NewConfigurationError("circuit breaker", "name", "must not be empty")
	case c.FailureThreshold <= 0:
		return perrors.NewConfigurationError(component, "failureThreshold", "must be > 0")
	case c.RecoveryTimeout <= 0:
		return perrors.NewConfigurationError(component, "recoveryTimeout", "must be > 0")
	case c.HalfOpenRequests <= 0:
		return perrors.NewConfigurationError(component, "halfOpenRequests", "must be > 0")
	case c.ResetTimeout <= 0:
		return perrors.NewConfigurationError(component, "resetTimeout", "must be > 0")
	case c.MaxEndpoints < 0:
		return perrors.NewConfigurationError(component, "maxEndpoints", "must be >= 0")
	}
	return nil
}

// AdmissionDecision is the answer to ShouldAllowRequest.
type AdmissionDecision struct {
	Allowed bool               `json:"allowed"`
	Reason  string             `json:"reason,omitempty"`
	State   model.CircuitState `json:"state"`
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// WithListeners registers listeners notified of transitions, failures and executions.
func WithListeners(listeners ...CircuitListener) Option {
	return func(cb *CircuitBreaker) {
		for _, l := range listeners {
			if l != nil {
				cb.listeners = append(cb.listeners, l)
			}
		}
	}
}

// CircuitBreaker is a failure-state machine for one upstream dependency.
// Each endpoint name is an independent sub-circuit. Time-based transitions
// happen lazily on the next admission check; no timers are started.
type CircuitBreaker struct {
	name      string
	cfg       CircuitBreakerConfig
	now       func() time.Time
	listeners []CircuitListener
	log       *zapLogger.LogHelper

	mu       sync.Mutex
	circuits *simplelru.LRU[string, *CircuitStats]
	// evicted collects LRU evictions until the caller releases mu.
	evicted []model.EvictionEvent
}

// NewCircuitBreaker validates cfg and creates a breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, logger log.Logger, opts ...Option) (*CircuitBreaker, error) {
	if err := cfg.validate(name); err != nil {
		return nil, err
	}
	if cfg.MaxEndpoints == 0 {
		cfg.MaxEndpoints = DefaultMaxEndpoints
	}

	cb := &CircuitBreaker{
		name: name,
		cfg:  cfg,
		now:  time.Now,
		log:  zapLogger.NewLogHelper(log.With(logger, "module", "biz/circuit_breaker")),
	}
	for _, opt := range opts {
		opt(cb)
	}

	circuits, err := simplelru.NewLRU[string, *CircuitStats](cfg.MaxEndpoints, cb.onEvict)
	if err != nil {
		return nil, perrors.NewConfigurationError("circuit breaker "+name, "maxEndpoints", err.Error())
	}
	cb.circuits = circuits

	return cb, nil
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Config returns the breaker configuration.
func (cb *CircuitBreaker) Config() CircuitBreakerConfig {
	return cb.cfg
}

// onEvict runs under cb.mu from inside the LRU.
func (cb *CircuitBreaker) onEvict(endpoint string, stats *CircuitStats) {
	cb.evicted = append(cb.evicted, model.EvictionEvent{
		Breaker:  cb.name,
		Endpoint: endpoint,
		State:    stats.State,
		At:       cb.now(),
	})
}

// takeEvictions must be called with cb.mu held.
func (cb *CircuitBreaker) takeEvictions() []model.EvictionEvent {
	evicted := cb.evicted
	cb.evicted = nil
	return evicted
}

// getOrCreate must be called with cb.mu held.
func (cb *CircuitBreaker) getOrCreate(endpoint string) *CircuitStats {
	if stats, ok := cb.circuits.Get(endpoint); ok {
		return stats
	}
	stats := &CircuitStats{State: model.StateClosed}
	cb.circuits.Add(endpoint, stats)
	return stats
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(endpoint string, stats *CircuitStats, to model.CircuitState, reason string, now time.Time) model.TransitionEvent {
	from := stats.State
	stats.State = to

	switch to {
	case model.StateOpen:
		openedAt := now
		stats.OpenedAt = &openedAt
		stats.HalfOpenAttempts = 0
	case model.StateHalfOpen:
		stats.HalfOpenAttempts = 0
	case model.StateClosed:
		stats.Failures = 0
		stats.HalfOpenAttempts = 0
		stats.OpenedAt = nil
	}

	ev := model.TransitionEvent{
		Breaker:  cb.name,
		Endpoint: endpoint,
		From:     from,
		To:       to,
		Reason:   reason,
		Failures: stats.Failures,
		OpenedAt: copyTime(stats.OpenedAt),
		At:       now,
	}
	if to == model.StateOpen {
		retryAt := now.Add(cb.cfg.RecoveryTimeout)
		ev.RetryAt = &retryAt
	}
	return ev
}

// ShouldAllowRequest applies the lazy OPEN→HALF_OPEN and stale-failure checks,
// then admits CLOSED and HALF_OPEN circuits.
func (cb *CircuitBreaker) ShouldAllowRequest(endpoint string) AdmissionDecision {
	var events []model.TransitionEvent

	cb.mu.Lock()
	now := cb.now()
	stats := cb.getOrCreate(endpoint)

	if stats.State == model.StateOpen && stats.OpenedAt != nil && now.Sub(*stats.OpenedAt) >= cb.cfg.RecoveryTimeout {
		events = append(events, cb.transition(endpoint, stats, model.StateHalfOpen,
			fmt.Sprintf("recovery timeout %s elapsed, probing", cb.cfg.RecoveryTimeout), now))
	}

	staleFailures := 0
	if stats.State == model.StateClosed && stats.Failures > 0 && stats.LastFailure != nil &&
		now.Sub(*stats.LastFailure) >= cb.cfg.ResetTimeout {
		staleFailures = stats.Failures
		stats.Failures = 0
	}

	decision := AdmissionDecision{Allowed: stats.State != model.StateOpen, State: stats.State}
	if !decision.Allowed {
		remaining := stats.OpenedAt.Add(cb.cfg.RecoveryTimeout).Sub(now)
		decision.Reason = fmt.Sprintf("circuit %s:%s is OPEN, retry in %ds", cb.name, endpoint, ceilSeconds(remaining))
	}
	evicted := cb.takeEvictions()
	cb.mu.Unlock()
	cb.emitEvictions(evicted)

	if staleFailures > 0 {
		cb.log.Circuit(cb.name, endpoint, model.StateClosed.String(), model.StateClosed.String(),
			fmt.Sprintf("%d stale failures cleared after %s without failure", staleFailures, cb.cfg.ResetTimeout))
	}
	cb.emitTransitions(events)

	return decision
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess(endpoint string) {
	var events []model.TransitionEvent

	cb.mu.Lock()
	now := cb.now()
	stats := cb.getOrCreate(endpoint)
	stats.Successes++
	stats.LastSuccess = &now

	switch stats.State {
	case model.StateHalfOpen:
		stats.HalfOpenAttempts++
		if stats.HalfOpenAttempts >= cb.cfg.HalfOpenRequests {
			events = append(events, cb.transition(endpoint, stats, model.StateClosed,
				fmt.Sprintf("%d consecutive probes succeeded", stats.HalfOpenAttempts), now))
		}
	case model.StateClosed:
		stats.Failures = 0
	}
	evicted := cb.takeEvictions()
	cb.mu.Unlock()
	cb.emitEvictions(evicted)

	cb.emitTransitions(events)
}

// RecordFailure records a failed call. err may be nil.
func (cb *CircuitBreaker) RecordFailure(endpoint string, err error) {
	var events []model.TransitionEvent

	cb.mu.Lock()
	now := cb.now()
	stats := cb.getOrCreate(endpoint)
	stats.Failures++
	stats.LastFailure = &now

	switch stats.State {
	case model.StateHalfOpen:
		events = append(events, cb.transition(endpoint, stats, model.StateOpen,
			"probe failed while HALF_OPEN", now))
	case model.StateClosed:
		if stats.Failures >= cb.cfg.FailureThreshold {
			events = append(events, cb.transition(endpoint, stats, model.StateOpen,
				fmt.Sprintf("%d failures reached threshold %d", stats.Failures, cb.cfg.FailureThreshold), now))
		}
	}

	failure := model.FailureEvent{
		Breaker:   cb.name,
		Endpoint:  endpoint,
		Failures:  stats.Failures,
		Threshold: cb.cfg.FailureThreshold,
		State:     stats.State,
		Err:       err,
		Kind:      string(perrors.Classify(err)),
		At:        now,
	}
	evicted := cb.takeEvictions()
	cb.mu.Unlock()
	cb.emitEvictions(evicted)

	cb.emitFailure(failure)
	cb.emitTransitions(events)
}

// GetState returns a snapshot of one endpoint. Unknown endpoints report a fresh CLOSED circuit.
func (cb *CircuitBreaker) GetState(endpoint string) CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if stats, ok := cb.circuits.Peek(endpoint); ok {
		return stats.snapshot()
	}
	return CircuitStats{State: model.StateClosed}
}

// GetAllStates returns snapshots of every tracked endpoint.
func (cb *CircuitBreaker) GetAllStates() map[string]CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	states := make(map[string]CircuitStats, cb.circuits.Len())
	for _, endpoint := range cb.circuits.Keys() {
		if stats, ok := cb.circuits.Peek(endpoint); ok {
			states[endpoint] = stats.snapshot()
		}
	}
	return states
}

// Reset forgets an endpoint. It reports whether the endpoint was tracked.
func (cb *CircuitBreaker) Reset(endpoint string) bool {
	var events []model.TransitionEvent

	cb.mu.Lock()
	stats, ok := cb.circuits.Peek(endpoint)
	if ok {
		if stats.State != model.StateClosed {
			ev := model.TransitionEvent{
				Breaker:  cb.name,
				Endpoint: endpoint,
				From:     stats.State,
				To:       model.StateClosed,
				Reason:   model.ReasonAdministrativeReset,
				At:       cb.now(),
			}
			events = append(events, ev)
		}
		cb.circuits.Remove(endpoint)
	}
	cb.mu.Unlock()

	if ok {
		cb.log.Audit("circuit reset", "breaker", cb.name, "endpoint", endpoint)
	}
	cb.emitTransitions(events)
	return ok
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

// emitTransitions logs and fans out events. Must be called without cb.mu held.
func (cb *CircuitBreaker) emitTransitions(events []model.TransitionEvent) {
	for _, ev := range events {
		kvs := []interface{}{"failures", ev.Failures}
		if ev.RetryAt != nil {
			kvs = append(kvs, "retry_at", ev.RetryAt.UTC().Format(time.RFC3339))
		}
		cb.log.Circuit(ev.Breaker, ev.Endpoint, ev.From.String(), ev.To.String(), ev.Reason, kvs...)

		for _, l := range cb.listeners {
			l := l
			cb.notify("OnStateChange", func() { l.OnStateChange(ev) })
		}
	}
}

func (cb *CircuitBreaker) emitFailure(ev model.FailureEvent) {
	cb.log.Warnw(
		"msg", "upstream failure recorded",
		"type", "circuit",
		"breaker", ev.Breaker,
		"endpoint", ev.Endpoint,
		"failures", ev.Failures,
		"threshold", ev.Threshold,
		"state", ev.State.String(),
		"kind", ev.Kind,
		"error", ev.Err,
	)

	for _, l := range cb.listeners {
		l := l
		cb.notify("OnFailure", func() { l.OnFailure(ev) })
	}
}

func (cb *CircuitBreaker) emitEvictions(events []model.EvictionEvent) {
	for _, ev := range events {
		cb.log.Warnw(
			"msg", "endpoint circuit evicted, endpoint names may be unbounded",
			"type", "circuit",
			"breaker", ev.Breaker,
			"endpoint", ev.Endpoint,
			"state", ev.State.String(),
			"max_endpoints", cb.cfg.MaxEndpoints,
		)

		for _, l := range cb.listeners {
			if obs, ok := l.(EvictionObserver); ok {
				cb.notify("OnEvict", func() { obs.OnEvict(ev) })
			}
		}
	}
}

func (cb *CircuitBreaker) emitExecution(ev model.ExecutionEvent) {
	for _, l := range cb.listeners {
		if obs, ok := l.(ExecutionObserver); ok {
			cb.notify("OnExecution", func() { obs.OnExecution(ev) })
		}
	}
}

// notify keeps a misbehaving listener from breaking the breaker.
func (cb *CircuitBreaker) notify(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			cb.log.Errorw(
				"msg", "circuit listener panicked",
				"breaker", cb.name,
				"hook", hook,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}

// ResultSource tags where ExecutionResult.Data came from.
type ResultSource string

const (
	SourceLive     ResultSource = "LIVE"
	SourceFallback ResultSource = "FALLBACK"
)

// Operation is a primary or fallback call. A fallback returning (nil, nil) means "no data".
type Operation func(ctx context.Context) (interface{}, error)

// ExecutionResult is the outcome of Execute.
type ExecutionResult struct {
	Data               interface{}        `json:"data"`
	Source             ResultSource       `json:"source"`
	CircuitState       model.CircuitState `json:"circuitState"`
	FromCircuitBreaker bool               `json:"fromCircuitBreaker"`
	LatencyMs          int64              `json:"latencyMs"`
	// Err describes why Data did not come from the primary operation.
	// It is informational; Execute never fails.
	Err error `json:"-"`
}

// Execute runs primary under the breaker and falls back when the call is denied or fails.
// It never panics or returns an error; all outcome information is in the result.
// No timeout is applied to primary or fallback.
func (cb *CircuitBreaker) Execute(ctx context.Context, endpoint string, primary, fallback Operation) *ExecutionResult {
	start := cb.now()
	result := &ExecutionResult{}

	decision := cb.ShouldAllowRequest(endpoint)
	if !decision.Allowed {
		result.FromCircuitBreaker = true
		cb.log.CircuitDenied(cb.name, endpoint, decision.Reason)
		result.Err = fmt.Errorf("%w: %s", ErrCircuitOpen, decision.Reason)
		cb.useFallback(ctx, endpoint, fallback, result)
	} else {
		data, err := safeCall(ctx, primary)
		if err == nil {
			cb.RecordSuccess(endpoint)
			result.Data = data
			result.Source = SourceLive
		} else {
			cb.RecordFailure(endpoint, err)
			result.Err = &perrors.UpstreamFailure{Breaker: cb.name, Endpoint: endpoint, Err: err}
			cb.useFallback(ctx, endpoint, fallback, result)
		}
	}

	result.CircuitState = cb.GetState(endpoint).State
	latency := cb.now().Sub(start)
	result.LatencyMs = latency.Milliseconds()

	cb.emitExecution(model.ExecutionEvent{
		Breaker:            cb.name,
		Endpoint:           endpoint,
		Source:             string(result.Source),
		State:              result.CircuitState,
		FromCircuitBreaker: result.FromCircuitBreaker,
		Latency:            latency,
	})

	return result
}

func (cb *CircuitBreaker) useFallback(ctx context.Context, endpoint string, fallback Operation, result *ExecutionResult) {
	result.Source = SourceFallback
	if fallback == nil {
		return
	}

	data, err := safeCall(ctx, fallback)
	if err != nil {
		fbErr := &perrors.FallbackFailure{Breaker: cb.name, Endpoint: endpoint, Err: err}
		cb.log.Fallback("fallback failed, returning no data",
			"breaker", cb.name,
			"endpoint", endpoint,
			"kind", string(perrors.Classify(err)),
			"error", err,
		)
		result.Err = errors.Join(result.Err, fbErr)
		return
	}
	result.Data = data
}

func safeCall(ctx context.Context, op Operation) (data interface{}, err error) {
	if op == nil {
		return nil, errors.New("operation is nil")
	}
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = &perrors.PanicError{Value: r}
		}
	}()
	return op(ctx)
}
