package switchboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/switchboard-ai/switchboard/caches/memory"
	"github.com/switchboard-ai/switchboard/internal/attemptlog"
	"github.com/switchboard-ai/switchboard/internal/chain"
	sberrors "github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/policy"
	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

func okAdapter(name string, confidence float64) provider.Adapter {
	return provider.AdapterFunc(func(_ context.Context, req *types.Request) (*types.Response, error) {
		return &types.Response{
			ID:         "resp-" + name,
			Provider:   name,
			Model:      req.Model,
			Content:    "answer from " + name,
			Confidence: confidence,
			Usage:      &types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	})
}

func failAdapter(name string, err error) provider.Adapter {
	return provider.AdapterFunc(func(_ context.Context, _ *types.Request) (*types.Response, error) {
		return nil, err
	})
}

func descriptor(name string, adapter provider.Adapter) *provider.Descriptor {
	return &provider.Descriptor{
		Name:         name,
		Capabilities: provider.Capabilities{Models: []string{"m1"}},
		Adapter:      adapter,
	}
}

func chatPolicy() *policy.Document {
	return &policy.Document{
		Version: "test-1",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "alpha", Fallbacks: []string{"beta"}},
		},
	}
}

func chatRequest() *types.Request {
	return &types.Request{
		Intent:   "chat",
		Messages: []types.Message{{Role: "user", Content: json.RawMessage(`"hi"`)}},
	}
}

func TestRoute_PrimarySucceeds(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionSucceededCompliant, res.Disposition)
	require.NotNil(t, res.Response)
	assert.Equal(t, "alpha", res.Response.Provider)
	assert.False(t, res.FallbackUsed)
	assert.Len(t, res.Attempts, 1)
	assert.Empty(t, res.Notes)
	assert.NotEmpty(t, res.RequestID)
}

func TestRoute_FallbackOnTransientFailure(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", failAdapter("alpha",
			sberrors.NewTransientNetworkError("alpha", "m1", "connection reset")))),
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionSucceededCompliant, res.Disposition)
	assert.Equal(t, "beta", res.Response.Provider)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, KindTransientNetwork, res.FallbackReason)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, types.AttemptFailure, res.Attempts[0].Outcome)
	assert.Equal(t, types.AttemptSuccess, res.Attempts[1].Outcome)
}

func TestRoute_PolicyViolationNeverFallsBack(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", failAdapter("alpha",
			sberrors.NewPolicyViolationError("alpha", "m1", "flagged content")))),
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionExhaustedFatal, res.Disposition)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindPolicyViolation, res.Error.Kind)
	assert.Len(t, res.Attempts, 1, "the chain must stop at the policy violation")
	assert.False(t, res.FallbackUsed)
}

func TestRoute_ExhaustedChainKeepsLastError(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", failAdapter("alpha",
			sberrors.NewRateLimitedError("alpha", "m1", "throttled")))),
		WithDescriptor(descriptor("beta", failAdapter("beta",
			sberrors.NewTransientNetworkError("beta", "m1", "dns failure")))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionExhaustedFatal, res.Disposition)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindTransientNetwork, res.Error.Kind, "terminal error is the last attempt's")
	assert.Equal(t, "beta", res.Error.Provider)
	assert.Len(t, res.Attempts, 2)
	assert.True(t, res.FallbackUsed)
}

func TestRoute_UnregisteredEntryBecomesNote(t *testing.T) {
	doc := &policy.Document{
		Version: "test-1",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "ghost", Fallbacks: []string{"beta"}},
		},
	}
	r, err := New(
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(doc),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "beta", res.Response.Provider)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "ghost", res.Notes[0].Provider)
	assert.Equal(t, KindProviderNotFound, res.Notes[0].Reason)

	// The omission is not an attempt: only beta was invoked, so no
	// fallback took place.
	assert.Len(t, res.Attempts, 1)
	assert.False(t, res.FallbackUsed)
}

func TestRoute_UnknownIntentIsConfigError(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	req := chatRequest()
	req.Intent = "summarize"
	res, err := r.Route(context.Background(), req)
	require.ErrorIs(t, err, policy.ErrUnknownIntent)
	assert.Nil(t, res)
}

func TestRoute_AllProvidersMissingIsConfigError(t *testing.T) {
	doc := &policy.Document{
		Version: "test-1",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "ghost", Fallbacks: []string{"phantom"}},
		},
	}
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithPolicy(doc),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.ErrorIs(t, err, chain.ErrAllProvidersMissing)
	assert.Nil(t, res)
}

func TestRoute_FallbackDisabledTruncatesChain(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", failAdapter("alpha",
			sberrors.NewTransientNetworkError("alpha", "m1", "down")))),
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(chatPolicy()),
		WithFallbackEnabled(false),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionExhaustedFatal, res.Disposition)
	assert.Len(t, res.Attempts, 1, "disabled fallback must not promote the fallback entry")
	assert.Equal(t, "alpha", res.Attempts[0].Provider)
}

func escalationPolicy() *policy.Document {
	return &policy.Document{
		Version: "esc-1",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "cheap", ConfidenceThreshold: 0.8},
		},
		Rules: []policy.EscalationRule{
			{
				Condition:     types.ViolationConfidenceBelow,
				Chain:         []string{"strong"},
				MaxRetries:    1,
				FinalProvider: "strong",
			},
		},
	}
}

func TestRoute_EscalatesOnLowConfidence(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("cheap", okAdapter("cheap", 0.4))),
		WithDescriptor(descriptor("strong", okAdapter("strong", 0.95))),
		WithPolicy(escalationPolicy()),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionSucceededCompliant, res.Disposition)
	assert.Equal(t, "strong", res.Response.Provider)
	assert.Equal(t, 1, res.Escalations)
	assert.Empty(t, res.Violations)
	require.Len(t, res.Attempts, 2)
}

func TestRoute_EscalationExhaustedIsNonCompliant(t *testing.T) {
	// Both stages keep reporting low confidence, so violations survive
	// the rule budget.
	r, err := New(
		WithDescriptor(descriptor("cheap", okAdapter("cheap", 0.4))),
		WithDescriptor(descriptor("strong", okAdapter("strong", 0.5))),
		WithPolicy(escalationPolicy()),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionSucceededNonCompliant, res.Disposition)
	require.NotNil(t, res.Response)
	require.NotEmpty(t, res.Violations)
	assert.Equal(t, types.ViolationConfidenceBelow, res.Violations[0].Kind)
	assert.GreaterOrEqual(t, res.Escalations, 1)
}

func TestRoute_MaxEscalationsCap(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("cheap", okAdapter("cheap", 0.4))),
		WithDescriptor(descriptor("strong", okAdapter("strong", 0.5))),
		WithPolicy(escalationPolicy()),
		WithMaxEscalations(1),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Escalations)
	assert.Equal(t, DispositionSucceededNonCompliant, res.Disposition)
}

func TestRoute_CacheServesRepeatRequests(t *testing.T) {
	var invocations atomic.Int64
	counting := provider.AdapterFunc(func(_ context.Context, req *types.Request) (*types.Response, error) {
		invocations.Add(1)
		return &types.Response{ID: "r1", Provider: "alpha", Model: req.Model, Content: "cached answer"}, nil
	})

	backend := cachememory.New(cachememory.Config{DefaultTTL: time.Minute})

	r, err := New(
		WithDescriptor(descriptor("alpha", counting)),
		WithPolicy(chatPolicy()),
		WithCache(backend, time.Minute),
	)
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)
	second, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.EqualValues(t, 1, invocations.Load(), "second request must be served from cache")
	assert.Equal(t, first.Response.Content, second.Response.Content)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestRoute_AppendsAttemptLogEntry(t *testing.T) {
	store := attemptlog.NewMemoryStore(16)
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithPolicy(chatPolicy()),
		WithAttemptStore(store),
	)
	require.NoError(t, err)

	_, err = r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	entries, err := store.List(context.Background(), attemptlog.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "chat", entries[0].Intent)
	assert.Equal(t, types.DispositionSucceededCompliant, entries[0].Disposition)
	assert.Equal(t, "alpha", entries[0].Provider)
}

func TestRouter_Status(t *testing.T) {
	doc := &policy.Document{
		Version: "status-1",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "alpha", Fallbacks: []string{"ghost", "beta"}},
		},
	}
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(doc),
	)
	require.NoError(t, err)

	st := r.Status()
	assert.Equal(t, "status-1", st.PolicyVersion)
	assert.True(t, st.FallbackEnabled)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, st.Providers)

	chatStatus, ok := st.Intents["chat"]
	require.True(t, ok)
	assert.Equal(t, []string{"alpha", "beta"}, chatStatus.Chain)
	require.Len(t, chatStatus.Notes, 1)
	assert.Equal(t, "ghost", chatStatus.Notes[0].Provider)
}

func TestRouter_SwapPolicy(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithDescriptor(descriptor("beta", okAdapter("beta", 0))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	next := &policy.Document{
		Version: "test-2",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "beta"},
		},
	}
	require.NoError(t, r.SwapPolicy(next))

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "beta", res.Response.Provider)
	assert.Equal(t, "test-2", r.Status().PolicyVersion)
}

func TestRouter_SwapPolicyRejectsInvalidDocument(t *testing.T) {
	r, err := New(
		WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))),
		WithPolicy(chatPolicy()),
	)
	require.NoError(t, err)

	bad := &policy.Document{Version: "bad"}
	require.Error(t, r.SwapPolicy(bad))
	assert.Equal(t, "test-1", r.Status().PolicyVersion, "failed swap must keep the old policy")
}

func TestNew_RequiresPolicyAndProviders(t *testing.T) {
	_, err := New(WithDescriptor(descriptor("alpha", okAdapter("alpha", 0))))
	require.Error(t, err)

	_, err = New(WithPolicy(chatPolicy()))
	require.Error(t, err)
}

func TestRoute_RouteTimeoutClassifiesAsTimeout(t *testing.T) {
	slow := provider.AdapterFunc(func(ctx context.Context, _ *types.Request) (*types.Response, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return &types.Response{Provider: "slow", Content: "too late"}, nil
		}
	})

	doc := &policy.Document{
		Version: "t-1",
		Intents: map[string]policy.IntentRoute{
			"chat": {Primary: "slow"},
		},
	}
	r, err := New(
		WithDescriptor(descriptor("slow", slow)),
		WithPolicy(doc),
		WithRouteTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)

	res, err := r.Route(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, DispositionExhaustedFatal, res.Disposition)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindTimeout, res.Error.Kind)
}
