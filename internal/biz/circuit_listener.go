package biz

import "PlayLine/internal/model"

// CircuitListener receives breaker events. Calls are synchronous and happen
// outside the breaker lock, so implementations must not block for long.
type CircuitListener interface {
	OnStateChange(event model.TransitionEvent)
	OnFailure(event model.FailureEvent)
}

// ExecutionObserver is an optional extension of CircuitListener that is told
// about every Execute call.
type ExecutionObserver interface {
	OnExecution(event model.ExecutionEvent)
}

// EvictionObserver is an optional extension of CircuitListener that is told
// when an endpoint is dropped from a full breaker. A dropped endpoint reads
// as a fresh CLOSED circuit afterwards.
type EvictionObserver interface {
	OnEvict(event model.EvictionEvent)
}

// CircuitListenerFuncs adapts plain functions to CircuitListener and the optional observers.
// Nil fields are skipped.
type CircuitListenerFuncs struct {
	StateChange func(model.TransitionEvent)
	Failure     func(model.FailureEvent)
	Execution   func(model.ExecutionEvent)
	Eviction    func(model.EvictionEvent)
}

// OnStateChange implements CircuitListener.
func (f CircuitListenerFuncs) OnStateChange(event model.TransitionEvent) {
	if f.StateChange != nil {
		f.StateChange(event)
	}
}

// OnFailure implements CircuitListener.
func (f CircuitListenerFuncs) OnFailure(event model.FailureEvent) {
	if f.Failure != nil {
		f.Failure(event)
	}
}

// OnExecution implements ExecutionObserver.
func (f CircuitListenerFuncs) OnExecution(event model.ExecutionEvent) {
	if f.Execution != nil {
		f.Execution(event)
	}
}

// OnEvict implements EvictionObserver.
func (f CircuitListenerFuncs) OnEvict(event model.EvictionEvent) {
	if f.Eviction != nil {
		f.Eviction(event)
	}
}
