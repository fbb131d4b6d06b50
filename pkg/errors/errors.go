// Package errors provides the failure taxonomy of the resilience layer and
// classification helpers used for log and metric labels.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind is a coarse classification of an upstream or fallback error.
type ErrorKind string

const (
	// KindUnknown is any error that matches no other kind.
	KindUnknown ErrorKind = "unknown"
	// KindTimeout is a deadline exceeded or a network timeout.
	KindTimeout ErrorKind = "timeout"
	// KindCanceled is a canceled context.
	KindCanceled ErrorKind = "canceled"
	// KindConnection is a refused, reset or unreachable connection.
	KindConnection ErrorKind = "connection"
	// KindPanic is a recovered panic inside a wrapped operation.
	KindPanic ErrorKind = "panic"
)

// ConfigurationError reports invalid construction parameters.
// It is returned before any call is made.
type ConfigurationError struct {
	Component string
	Field     string
	Reason    string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s %s", e.Component, e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(component, field, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Field: field, Reason: reason}
}

// UpstreamFailure wraps an error raised by a primary operation.
type UpstreamFailure struct {
	Breaker  string
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *UpstreamFailure) Error() string {
	return fmt.Sprintf("upstream %s:%s failed: %v", e.Breaker, e.Endpoint, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *UpstreamFailure) Unwrap() error {
	return e.Err
}

// FallbackFailure wraps an error raised by a fallback operation.
type FallbackFailure struct {
	Breaker  string
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *FallbackFailure) Error() string {
	return fmt.Sprintf("fallback %s:%s failed: %v", e.Breaker, e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *FallbackFailure) Unwrap() error {
	return e.Err
}

// PanicError is produced when a wrapped operation panics.
type PanicError struct {
	Value interface{}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// AsUpstream extracts an UpstreamFailure from err.
func AsUpstream(err error) (*UpstreamFailure, bool) {
	var up *UpstreamFailure
	if errors.As(err, &up) {
		return up, true
	}
	return nil, false
}

// AsFallback extracts a FallbackFailure from err.
func AsFallback(err error) (*FallbackFailure, bool) {
	var fb *FallbackFailure
	if errors.As(err, &fb) {
		return fb, true
	}
	return nil, false
}

// Classify maps an error to an ErrorKind.
//
//   - context.Canceled → KindCanceled
//   - context.DeadlineExceeded, net.Error timeouts → KindTimeout
//   - *net.OpError, refused/reset/unreachable messages → KindConnection
//   - *PanicError → KindPanic
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return KindPanic
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	if isConnectionError(err.Error()) {
		return KindConnection
	}

	return KindUnknown
}

// isConnectionError checks if the error message indicates a connection problem.
func isConnectionError(errMsg string) bool {
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"connection lost",
		"network is unreachable",
		"dial tcp",
	}

	lower := strings.ToLower(errMsg)
	for _, keyword := range connectionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
