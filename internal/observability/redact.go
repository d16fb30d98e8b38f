package observability

import (
	"regexp"
	"strings"
)

// Redactor masks sensitive data in log output. Routing diagnostics carry
// provider error bodies verbatim, so anything resembling a credential has
// to be scrubbed before it reaches a sink.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

var defaultPatterns = []struct {
	pattern     string
	replacement string
}{
	{`sk-proj-[a-zA-Z0-9\-_]{20,}`, "[REDACTED_OPENAI_PROJECT_KEY]"},
	{`sk-ant-[a-zA-Z0-9\-_]{20,}`, "[REDACTED_ANTHROPIC_KEY]"},
	{`sk-[a-zA-Z0-9]{20,}`, "[REDACTED_OPENAI_KEY]"},
	{`AIza[a-zA-Z0-9\-_]{35}`, "[REDACTED_GOOGLE_KEY]"},
	{`Bearer\s+[a-zA-Z0-9\-_\.]+`, "Bearer [REDACTED]"},
	{`Authorization:\s*[^\s]+`, "Authorization: [REDACTED]"},
	{`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[REDACTED_EMAIL]"},
}

// NewRedactor creates a redactor with the default pattern set.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.AddPattern(p.pattern, p.replacement)
	}
	return r
}

// AddPattern adds a custom redaction pattern. Invalid patterns are ignored.
func (r *Redactor) AddPattern(pattern, replacement string) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return
	}
	r.patterns = append(r.patterns, redactPattern{regex: regex, replacement: replacement})
}

// Redact applies all patterns to the input string.
func (r *Redactor) Redact(input string) string {
	result := input
	for _, p := range r.patterns {
		result = p.regex.ReplaceAllString(result, p.replacement)
	}
	return result
}

var sensitiveKeyHints = []string{"key", "token", "secret", "password", "auth", "credential"}

// RedactMap redacts sensitive values in a map. Keys that look like
// credentials are masked wholesale regardless of their value.
func (r *Redactor) RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = r.redactValue(k, v)
	}
	return result
}

func (r *Redactor) redactValue(key string, value any) any {
	lowerKey := strings.ToLower(key)
	for _, hint := range sensitiveKeyHints {
		if strings.Contains(lowerKey, hint) {
			return "[REDACTED]"
		}
	}

	switch v := value.(type) {
	case string:
		return r.Redact(v)
	case map[string]any:
		return r.RedactMap(v)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = r.redactValue("", item)
		}
		return result
	default:
		return value
	}
}

var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"x-api-key":     {},
	"api-key":       {},
	"x-auth-token":  {},
	"cookie":        {},
	"set-cookie":    {},
}

// RedactHeaders masks sensitive HTTP headers before they are logged.
func (r *Redactor) RedactHeaders(headers map[string][]string) map[string][]string {
	result := make(map[string][]string, len(headers))
	for k, v := range headers {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			result[k] = []string{"[REDACTED]"}
		} else {
			result[k] = v
		}
	}
	return result
}
