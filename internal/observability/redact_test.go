package observability

import (
	"strings"
	"testing"
)

func TestRedactor_APIKeys(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		input    string
		contains string
	}{
		{"sk-1234567890abcdefghijklmnop", "[REDACTED_OPENAI_KEY]"},
		{"key: sk-proj-abcdefghijklmnopqrstuvwxyz123456", "[REDACTED_OPENAI_PROJECT_KEY]"},
		{"key: sk-ant-REDACTED", "[REDACTED_ANTHROPIC_KEY]"},
		{"Bearer eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0", "Bearer [REDACTED]"},
		{"user email is test@example.com", "[REDACTED_EMAIL]"},
	}

	for _, tt := range tests {
		result := r.Redact(tt.input)
		if !strings.Contains(result, tt.contains) {
			t.Errorf("expected result to contain %q, got %q", tt.contains, result)
		}
	}
}

func TestRedactor_RedactMap(t *testing.T) {
	r := NewRedactor()

	input := map[string]any{
		"api_key":  "sk-1234567890abcdefghijklmnop",
		"username": "testuser",
		"password": "secret123",
		"data": map[string]any{
			"token": "abc123",
		},
	}

	result := r.RedactMap(input)

	if result["api_key"] != "[REDACTED]" {
		t.Errorf("expected api_key to be redacted, got %v", result["api_key"])
	}
	if result["password"] != "[REDACTED]" {
		t.Errorf("expected password to be redacted, got %v", result["password"])
	}
	if result["username"] != "testuser" {
		t.Errorf("expected username to be unchanged, got %v", result["username"])
	}

	nested := result["data"].(map[string]any)
	if nested["token"] != "[REDACTED]" {
		t.Errorf("expected nested token to be redacted, got %v", nested["token"])
	}
}

func TestRedactor_RedactArray(t *testing.T) {
	r := NewRedactor()

	input := map[string]any{
		"items": []any{
			"normal text",
			"email: test@example.com",
			map[string]any{"api_key": "secret"},
		},
	}

	result := r.RedactMap(input)
	items := result["items"].([]any)

	if items[0] != "normal text" {
		t.Errorf("expected first item unchanged")
	}
	if !strings.Contains(items[1].(string), "[REDACTED_EMAIL]") {
		t.Errorf("expected email in array to be redacted")
	}
	nested := items[2].(map[string]any)
	if nested["api_key"] != "[REDACTED]" {
		t.Errorf("expected nested api_key to be redacted")
	}
}

func TestRedactor_RedactHeaders(t *testing.T) {
	r := NewRedactor()

	headers := map[string][]string{
		"Authorization": {"Bearer token123"},
		"X-Api-Key":     {"sk-secret"},
		"Content-Type":  {"application/json"},
		"Cookie":        {"session=abc123"},
	}

	result := r.RedactHeaders(headers)

	if result["Authorization"][0] != "[REDACTED]" {
		t.Errorf("expected Authorization to be redacted")
	}
	if result["X-Api-Key"][0] != "[REDACTED]" {
		t.Errorf("expected X-Api-Key to be redacted")
	}
	if result["Content-Type"][0] != "application/json" {
		t.Errorf("expected Content-Type to be unchanged")
	}
	if result["Cookie"][0] != "[REDACTED]" {
		t.Errorf("expected Cookie to be redacted")
	}
}

func TestRedactor_AddPattern(t *testing.T) {
	r := NewRedactor()
	r.AddPattern(`SECRET_[A-Z0-9]+`, "[CUSTOM_REDACTED]")

	result := r.Redact("my secret is SECRET_ABC123")
	if !strings.Contains(result, "[CUSTOM_REDACTED]") {
		t.Errorf("expected custom pattern to be redacted, got %q", result)
	}
}

func TestRedactor_InvalidPattern(t *testing.T) {
	r := NewRedactor()

	// Invalid regex should not panic.
	r.AddPattern(`[invalid`, "replacement")

	if result := r.Redact("test"); result != "test" {
		t.Errorf("expected unchanged result, got %q", result)
	}
}
