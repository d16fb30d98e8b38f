package types //nolint:revive // package name is intentional

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestUnmarshal_ExtraFieldsCaptured(t *testing.T) {
	data := []byte(`{
		"intent": "chat.general",
		"messages": [{"role": "user", "content": "hi"}],
		"temperature": 0.5,
		"foo": "bar",
		"nested": {"enabled": true}
	}`)

	var req Request
	err := json.Unmarshal(data, &req)
	require.NoError(t, err)

	require.NotNil(t, req.Extra)
	assert.JSONEq(t, `"bar"`, string(req.Extra["foo"]))
	assert.JSONEq(t, `{"enabled": true}`, string(req.Extra["nested"]))
	assert.NotContains(t, req.Extra, "intent")
	assert.NotContains(t, req.Extra, "messages")
	assert.NotContains(t, req.Extra, "temperature")
}

func TestRequestUnmarshal_NoExtraFields(t *testing.T) {
	data := []byte(`{
		"intent": "chat.general",
		"messages": [{"role": "user", "content": "hi"}],
		"max_tokens": 64
	}`)

	var req Request
	err := json.Unmarshal(data, &req)
	require.NoError(t, err)

	assert.Equal(t, "chat.general", req.Intent)
	assert.Equal(t, 64, req.MaxTokens)
	assert.Nil(t, req.Extra)
}

func TestRequestMarshal_ExtraDoesNotOverrideKnownFields(t *testing.T) {
	req := Request{
		Intent:   "summarize.document",
		Messages: []Message{{Role: "user", Content: json.RawMessage(`"hi"`)}},
		Extra: map[string]json.RawMessage{
			"intent": json.RawMessage(`"spoofed"`),
			"seed":   json.RawMessage(`42`),
		},
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.JSONEq(t, `"summarize.document"`, string(payload["intent"]))
	assert.JSONEq(t, `42`, string(payload["seed"]))
}

func TestRequestMarshal_RoundTripPreservesExtra(t *testing.T) {
	data := []byte(`{
		"intent": "chat.general",
		"messages": [{"role": "user", "content": "hi"}],
		"logit_bias": {"50256": -100}
	}`)

	var req Request
	require.NoError(t, json.Unmarshal(data, &req))

	out, err := json.Marshal(req)
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &payload))
	assert.JSONEq(t, `{"50256": -100}`, string(payload["logit_bias"]))
}
