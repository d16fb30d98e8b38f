// Package types defines the core data structures for routing requests and
// results. The engine treats request payloads as opaque: fields it does not
// route on are carried through to the provider unchanged.
package types //nolint:revive // package name is intentional

import "github.com/goccy/go-json"

// Request is the unified input for a routing operation. Intent selects the
// provider chain; Model optionally overrides the provider's default model.
type Request struct {
	Intent      string            `json:"intent"`
	Model       string            `json:"model,omitempty"`
	Messages    []Message         `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	// Extra holds provider-specific parameters that are passed through
	// unchanged. This enables zero-copy forwarding of unknown fields.
	Extra map[string]json.RawMessage `json:"-"`
}

var requestKnownFields = map[string]struct{}{
	"intent":      {},
	"model":       {},
	"messages":    {},
	"max_tokens":  {},
	"temperature": {},
	"metadata":    {},
}

// MarshalJSON merges Extra fields without overriding explicitly set fields.
func (r Request) MarshalJSON() ([]byte, error) {
	type Alias Request

	base, err := json.Marshal(Alias(r))
	if err != nil || len(r.Extra) == 0 {
		return base, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(base, &payload); err != nil {
		return nil, err
	}

	for key, value := range r.Extra {
		if _, exists := payload[key]; !exists {
			payload[key] = value
		}
	}

	return json.Marshal(payload)
}

// UnmarshalJSON captures unknown fields into Extra for passthrough.
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	var parsed Alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}

	*r = Request(parsed)
	for key := range requestKnownFields {
		delete(payload, key)
	}

	if len(payload) == 0 {
		r.Extra = nil
	} else {
		r.Extra = payload
	}

	return nil
}

// Message is a single conversation turn. Content is kept raw so multimodal
// payloads survive the round trip.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}
