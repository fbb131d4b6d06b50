package model

import "time"

// CircuitState is the admission state of one endpoint circuit.
type CircuitState string

const (
	// StateClosed admits every request.
	StateClosed CircuitState = "CLOSED"
	// StateOpen short-circuits every request until the recovery timeout elapses.
	StateOpen CircuitState = "OPEN"
	// StateHalfOpen admits probe requests after an OPEN cooldown.
	StateHalfOpen CircuitState = "HALF_OPEN"
)

// String returns the state name.
func (s CircuitState) String() string {
	return string(s)
}

// TransitionEvent is emitted on every circuit state change.
type TransitionEvent struct {
	Breaker  string
	Endpoint string
	From     CircuitState
	To       CircuitState
	Reason   string
	Failures int
	OpenedAt *time.Time
	// RetryAt is when an OPEN circuit will next admit a probe.
	RetryAt *time.Time
	At      time.Time
}

// FailureEvent is emitted for every recorded failure.
type FailureEvent struct {
	Breaker   string
	Endpoint  string
	Failures  int
	Threshold int
	State     CircuitState
	Err       error
	Kind      string
	At        time.Time
}

// ExecutionEvent summarizes one protected call.
type ExecutionEvent struct {
	Breaker            string
	Endpoint           string
	Source             string
	State              CircuitState
	FromCircuitBreaker bool
	Latency            time.Duration
}

// EvictionEvent is emitted when a breaker drops an endpoint to stay within
// its endpoint bound.
type EvictionEvent struct {
	Breaker  string
	Endpoint string
	// State is the state the endpoint had when it was dropped.
	State CircuitState
	At    time.Time
}
