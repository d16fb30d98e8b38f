package errors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestRouteError(t *testing.T) {
	t.Run("error message format", func(t *testing.T) {
		err := NewRateLimitedError("openai", "gpt-4", "rate limit exceeded")
		msg := err.Error()

		if msg == "" {
			t.Error("error message should not be empty")
		}

		// Should contain key information
		contains := []string{"rate_limited", "openai", "gpt-4", "429"}
		for _, s := range contains {
			if !strings.Contains(msg, s) {
				t.Errorf("error message should contain %q, got %q", s, msg)
			}
		}
	})

	t.Run("HTTP status codes", func(t *testing.T) {
		tests := []struct {
			name     string
			err      *RouteError
			wantCode int
		}{
			{"policy violation", NewPolicyViolationError("p", "m", "msg"), 400},
			{"rate limited", NewRateLimitedError("p", "m", "msg"), 429},
			{"timeout", NewTimeoutError("p", "m", "msg"), 408},
			{"transient network", NewTransientNetworkError("p", "m", "msg"), 503},
			{"not found", NewProviderNotFoundError("p"), 404},
			{"contract violation", NewContractViolationError("p", "m", "msg"), 502},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.err.HTTPStatusCode(); got != tt.wantCode {
					t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.wantCode)
				}
			})
		}
	})

	t.Run("zero status falls back to 500", func(t *testing.T) {
		err := &RouteError{Kind: KindTimeout, Message: "no code"}
		if got := err.HTTPStatusCode(); got != http.StatusInternalServerError {
			t.Errorf("HTTPStatusCode() = %d, want 500", got)
		}
	})

	t.Run("retryable flags", func(t *testing.T) {
		retryable := []*RouteError{
			NewRateLimitedError("p", "m", "msg"),
			NewTimeoutError("p", "m", "msg"),
			NewTransientNetworkError("p", "m", "msg"),
			NewProviderNotFoundError("p"),
			NewContractViolationError("p", "m", "msg"),
		}
		for _, err := range retryable {
			if !err.Retryable {
				t.Errorf("%s should be retryable", err.Kind)
			}
		}

		if err := NewPolicyViolationError("p", "m", "msg"); err.Retryable {
			t.Errorf("%s should not be retryable", err.Kind)
		}
	})
}

func TestCoerce(t *testing.T) {
	t.Run("passes a RouteError through unchanged", func(t *testing.T) {
		orig := NewTimeoutError("anthropic", "claude-3", "deadline hit")
		got := Coerce("anthropic", "claude-3", orig)
		if got != orig {
			t.Errorf("Coerce should return the original *RouteError, got %v", got)
		}
	})

	t.Run("unwraps a wrapped RouteError", func(t *testing.T) {
		orig := NewRateLimitedError("openai", "gpt-4", "throttled")
		wrapped := fmt.Errorf("invoke failed: %w", orig)
		got := Coerce("openai", "gpt-4", wrapped)
		if got.Kind != KindRateLimited {
			t.Errorf("Kind = %s, want %s", got.Kind, KindRateLimited)
		}
	})

	t.Run("maps context expiry to timeout", func(t *testing.T) {
		for _, cause := range []error{context.DeadlineExceeded, context.Canceled} {
			got := Coerce("openai", "gpt-4", fmt.Errorf("call aborted: %w", cause))
			if got.Kind != KindTimeout {
				t.Errorf("Coerce(%v) kind = %s, want %s", cause, got.Kind, KindTimeout)
			}
			if !got.Retryable {
				t.Error("coerced timeout should be retryable")
			}
		}
	})

	t.Run("wraps unclassified errors as contract violations", func(t *testing.T) {
		got := Coerce("mistral", "mistral-large", fmt.Errorf("json: cannot unmarshal"))
		if got.Kind != KindContractViolation {
			t.Errorf("Kind = %s, want %s", got.Kind, KindContractViolation)
		}
		if got.Provider != "mistral" {
			t.Errorf("Provider = %s, want mistral", got.Provider)
		}
		if !strings.Contains(got.Message, "cannot unmarshal") {
			t.Errorf("Message should carry the original text, got %q", got.Message)
		}
	})

	t.Run("nil error becomes a contract violation", func(t *testing.T) {
		got := Coerce("openai", "gpt-4", nil)
		if got.Kind != KindContractViolation {
			t.Errorf("Kind = %s, want %s", got.Kind, KindContractViolation)
		}
	})
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(NewPolicyViolationError("p", "m", "blocked"))
	if !ok || kind != KindPolicyViolation {
		t.Errorf("KindOf() = %s, %v; want %s, true", kind, ok, KindPolicyViolation)
	}

	if _, ok := KindOf(fmt.Errorf("plain")); ok {
		t.Error("KindOf should not match a plain error")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(NewPolicyViolationError("p", "m", "blocked")) {
		t.Error("policy violation must not be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrap: %w", NewTimeoutError("p", "m", "slow"))) {
		t.Error("wrapped timeout should be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("errors outside the taxonomy are not retryable")
	}
}
