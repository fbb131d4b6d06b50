package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PlayLine/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *CircuitMetrics {
	t.Helper()
	m, err := NewCircuitMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestCircuitMetrics_StateChange(t *testing.T) {
	m := newTestMetrics(t)

	m.OnStateChange(model.TransitionEvent{Breaker: "odds", Endpoint: "/lines", From: model.StateClosed, To: model.StateOpen})
	assert.Equal(t, float64(StateValueOpen), testutil.ToFloat64(m.State.WithLabelValues("odds", "/lines")))

	m.OnStateChange(model.TransitionEvent{Breaker: "odds", Endpoint: "/lines", From: model.StateOpen, To: model.StateHalfOpen})
	assert.Equal(t, float64(StateValueHalfOpen), testutil.ToFloat64(m.State.WithLabelValues("odds", "/lines")))

	m.OnStateChange(model.TransitionEvent{Breaker: "odds", Endpoint: "/lines", From: model.StateHalfOpen, To: model.StateClosed})
	assert.Equal(t, float64(StateValueClosed), testutil.ToFloat64(m.State.WithLabelValues("odds", "/lines")))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Transitions.WithLabelValues("odds", "CLOSED", "OPEN")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Transitions.WithLabelValues("odds", "HALF_OPEN", "CLOSED")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.Transitions))
}

func TestCircuitMetrics_Evict(t *testing.T) {
	m := newTestMetrics(t)

	m.OnStateChange(model.TransitionEvent{Breaker: "odds", Endpoint: "/lines", From: model.StateClosed, To: model.StateOpen})
	m.OnStateChange(model.TransitionEvent{Breaker: "odds", Endpoint: "/props", From: model.StateClosed, To: model.StateOpen})
	require.Equal(t, 2, testutil.CollectAndCount(m.State))

	m.OnEvict(model.EvictionEvent{Breaker: "odds", Endpoint: "/lines", State: model.StateOpen})
	assert.Equal(t, 1, testutil.CollectAndCount(m.State))

	// unknown series is a no-op
	m.OnEvict(model.EvictionEvent{Breaker: "odds", Endpoint: "/never"})
	assert.Equal(t, 1, testutil.CollectAndCount(m.State))
}

func TestCircuitMetrics_Failures(t *testing.T) {
	m := newTestMetrics(t)

	m.OnFailure(model.FailureEvent{Breaker: "llm", Kind: "timeout"})
	m.OnFailure(model.FailureEvent{Breaker: "llm", Kind: "timeout"})
	m.OnFailure(model.FailureEvent{Breaker: "llm", Err: context.Canceled})
	m.OnFailure(model.FailureEvent{Breaker: "llm", Err: errors.New("boom")})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Failures.WithLabelValues("llm", "timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Failures.WithLabelValues("llm", "canceled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Failures.WithLabelValues("llm", "unknown")))
}

func TestCircuitMetrics_Executions(t *testing.T) {
	m := newTestMetrics(t)

	m.OnExecution(model.ExecutionEvent{Breaker: "stats", Source: "LIVE", Latency: 20 * time.Millisecond})
	m.OnExecution(model.ExecutionEvent{Breaker: "stats", Source: "FALLBACK", FromCircuitBreaker: true})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Executions.WithLabelValues("stats", "LIVE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Executions.WithLabelValues("stats", "FALLBACK")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExecutionLatency))
}

func TestNewCircuitMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCircuitMetrics(reg)
	require.NoError(t, err)

	_, err = NewCircuitMetrics(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register circuit metrics")
}

func TestCircuitMetrics_Handler(t *testing.T) {
	m, err := NewCircuitMetrics(NewRegistry())
	require.NoError(t, err)

	m.OnStateChange(model.TransitionEvent{Breaker: "search", Endpoint: "/q", From: model.StateClosed, To: model.StateOpen})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.True(t, strings.Contains(text, `playline_circuit_state{breaker="search",endpoint="/q"} 2`))
	assert.Contains(t, text, "go_goroutines")
}
