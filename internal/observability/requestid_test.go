package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRequestID(t *testing.T) {
	id1 := NewRequestID()
	id2 := NewRequestID()

	if id1 == "" {
		t.Error("expected non-empty request ID")
	}
	if id1 == id2 {
		t.Error("expected unique request IDs")
	}
	if len(id1) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("expected 32 char request ID, got %d", len(id1))
	}
}

func TestContextWithRequestID(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "test-request-123")

	if got := RequestIDFromContext(ctx); got != "test-request-123" {
		t.Errorf("expected test-request-123, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestEnsureRequestID(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		ctx := ContextWithRequestID(context.Background(), "existing-id")
		newCtx, id := EnsureRequestID(ctx)

		if id != "existing-id" {
			t.Errorf("expected existing-id, got %q", id)
		}
		if RequestIDFromContext(newCtx) != "existing-id" {
			t.Error("context should keep existing ID")
		}
	})

	t.Run("generated", func(t *testing.T) {
		newCtx, id := EnsureRequestID(context.Background())

		if id == "" {
			t.Error("expected generated ID")
		}
		if RequestIDFromContext(newCtx) != id {
			t.Error("context should carry generated ID")
		}
	})
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var capturedID string

	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if capturedID == "" {
		t.Error("expected request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != capturedID {
		t.Errorf("response header %q should match context ID %q", got, capturedID)
	}
}

func TestRequestIDMiddleware_PreservesExisting(t *testing.T) {
	var capturedID string

	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedID != "existing-request-id-123" {
		t.Errorf("expected preserved ID, got %q", capturedID)
	}
}

func TestRequestIDMiddleware_RejectsMalformed(t *testing.T) {
	var capturedID string

	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedID == "bad id\nwith newline" {
		t.Error("malformed ID should be replaced")
	}
	if capturedID == "" {
		t.Error("expected a generated replacement ID")
	}
}

func TestSanitizeRequestID(t *testing.T) {
	if _, ok := sanitizeRequestID(strings.Repeat("a", 200)); ok {
		t.Error("overlong ID should be rejected")
	}
	if got, ok := sanitizeRequestID("  trim-me.123_ok  "); !ok || got != "trim-me.123_ok" {
		t.Errorf("expected trimmed valid ID, got %q ok=%v", got, ok)
	}
}
