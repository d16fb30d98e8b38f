// Package errors defines the closed failure taxonomy for routing operations.
// Every provider failure is mapped to exactly one Kind; nothing outside this
// set reaches the fallback executor.
package errors

import (
	stderrors "errors"
	"context"
	"fmt"
	"net/http"
)

// Kind identifies one failure class from the fixed taxonomy.
type Kind string

const (
	// KindPolicyViolation marks a content/safety rejection. The problem is
	// the request itself, so the chain aborts without fallback.
	KindPolicyViolation Kind = "policy_violation"
	// KindRateLimited marks provider-reported throttling (HTTP 429).
	KindRateLimited Kind = "rate_limited"
	// KindTimeout marks a deadline expiring before the provider responded.
	KindTimeout Kind = "timeout"
	// KindTransientNetwork marks connection resets, DNS failures, and 5xx.
	KindTransientNetwork Kind = "transient_network_error"
	// KindProviderNotFound marks a chain entry absent from the registry.
	KindProviderNotFound Kind = "provider_not_found"
	// KindContractViolation marks a provider returning malformed or
	// structurally ambiguous output instead of a classified failure.
	KindContractViolation Kind = "contract_violation"
)

// RouteError is the standardized failure carried through the chain walk.
type RouteError struct {
	Kind       Kind   `json:"kind"`
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s, code=%d)",
		e.Kind, e.Message, e.Provider, e.Model, e.StatusCode)
}

// HTTPStatusCode returns the HTTP status to surface for this error.
func (e *RouteError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// NewPolicyViolationError creates a non-retryable content policy rejection.
func NewPolicyViolationError(provider, model, message string) *RouteError {
	return &RouteError{
		Kind:       KindPolicyViolation,
		Provider:   provider,
		Model:      model,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
	}
}

// NewRateLimitedError creates a retryable throttling error (429).
func NewRateLimitedError(provider, model, message string) *RouteError {
	return &RouteError{
		Kind:       KindRateLimited,
		Provider:   provider,
		Model:      model,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
	}
}

// NewTimeoutError creates a retryable deadline error (408).
func NewTimeoutError(provider, model, message string) *RouteError {
	return &RouteError{
		Kind:       KindTimeout,
		Provider:   provider,
		Model:      model,
		Message:    message,
		StatusCode: http.StatusRequestTimeout,
		Retryable:  true,
	}
}

// NewTransientNetworkError creates a retryable connectivity error (503).
func NewTransientNetworkError(provider, model, message string) *RouteError {
	return &RouteError{
		Kind:       KindTransientNetwork,
		Provider:   provider,
		Model:      model,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// NewProviderNotFoundError creates the record for a chain entry that has no
// registered provider. The chain continues past it.
func NewProviderNotFoundError(provider string) *RouteError {
	return &RouteError{
		Kind:       KindProviderNotFound,
		Provider:   provider,
		Message:    "provider not registered",
		StatusCode: http.StatusNotFound,
		Retryable:  true,
	}
}

// NewContractViolationError creates a retryable defect error for providers
// that break the structured-outcome contract (502).
func NewContractViolationError(provider, model, message string) *RouteError {
	return &RouteError{
		Kind:       KindContractViolation,
		Provider:   provider,
		Model:      model,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
	}
}

// Coerce guarantees the closed taxonomy at the executor boundary. A
// *RouteError passes through unchanged; context expiry maps to Timeout;
// anything else an adapter leaks, including a nil response with a nil error,
// becomes a ContractViolation.
func Coerce(provider, model string, err error) *RouteError {
	if err == nil {
		return NewContractViolationError(provider, model, "adapter returned neither response nor error")
	}
	var re *RouteError
	if stderrors.As(err, &re) {
		return re
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return NewTimeoutError(provider, model, err.Error())
	}
	return NewContractViolationError(provider, model, err.Error())
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var re *RouteError
	if stderrors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// IsRetryable reports whether the chain walk may continue past this error.
// Errors outside the taxonomy are not retryable.
func IsRetryable(err error) bool {
	var re *RouteError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}
