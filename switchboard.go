// Package switchboard routes LLM requests across provider chains with
// policy-driven fallback. A request names an intent; the policy maps the
// intent to an ordered provider chain and a budget, the router walks the
// chain until a provider answers, and the answer is validated against the
// budget, escalating to stronger chains when it falls short.
//
// Basic usage:
//
//	router, err := switchboard.New(
//	    switchboard.WithProviders(switchboard.ProviderConfig{
//	        Name:   "openai",
//	        Type:   "openai",
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	        Models: []string{"gpt-4o", "gpt-4o-mini"},
//	    }),
//	    switchboard.WithPolicy(doc),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer router.Close()
//
//	result, err := router.Route(ctx, &switchboard.Request{
//	    Intent: "chat",
//	    Messages: []switchboard.Message{
//	        {Role: "user", Content: json.RawMessage(`"Hello!"`)},
//	    },
//	})
package switchboard

import (
	"github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/policy"
	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

// Version is the current version of Switchboard.
const Version = "1.0.0"

// Re-export core request/result types for convenience.
type (
	// Request is the unified input for a routing operation.
	Request = types.Request

	// Response is the unified provider output.
	Response = types.Response

	// Message is a single conversation turn.
	Message = types.Message

	// Usage contains token usage statistics.
	Usage = types.Usage

	// RoutingResult is the terminal outcome with the full audit trail.
	RoutingResult = types.RoutingResult

	// AttemptRecord is the audit entry for one provider invocation.
	AttemptRecord = types.AttemptRecord

	// ChainNote records a chain entry dropped before execution.
	ChainNote = types.ChainNote

	// Violation flags one policy constraint a response failed.
	Violation = types.Violation

	// Disposition is the terminal state of a routing operation.
	Disposition = types.Disposition
)

// Terminal dispositions.
const (
	DispositionSucceededCompliant    = types.DispositionSucceededCompliant
	DispositionSucceededNonCompliant = types.DispositionSucceededNonCompliant
	DispositionExhaustedFatal        = types.DispositionExhaustedFatal
)

// Re-export provider types.
type (
	// Adapter is the provider backend contract.
	Adapter = provider.Adapter

	// AdapterFunc adapts a plain function to the Adapter interface.
	AdapterFunc = provider.AdapterFunc

	// Descriptor binds a provider name to its adapter and capabilities.
	Descriptor = provider.Descriptor

	// Capabilities describes what a registered provider supports.
	Capabilities = provider.Capabilities

	// ProviderConfig contains provider-specific configuration.
	ProviderConfig = provider.Config
)

// Re-export policy types.
type (
	// PolicyDocument is the declarative routing policy.
	PolicyDocument = policy.Document

	// IntentRoute declares the chain and budget for one intent.
	IntentRoute = policy.IntentRoute

	// ProviderProfile carries operator-declared provider characteristics.
	ProviderProfile = policy.ProviderProfile

	// EscalationRule reroutes requests whose responses violated policy.
	EscalationRule = policy.EscalationRule
)

// Re-export the routing error taxonomy.
type (
	// RouteError is the classified routing failure.
	RouteError = errors.RouteError

	// ErrorKind identifies one failure class from the fixed taxonomy.
	ErrorKind = errors.Kind
)

// Failure kinds.
const (
	KindPolicyViolation   = errors.KindPolicyViolation
	KindRateLimited       = errors.KindRateLimited
	KindTimeout           = errors.KindTimeout
	KindTransientNetwork  = errors.KindTransientNetwork
	KindProviderNotFound  = errors.KindProviderNotFound
	KindContractViolation = errors.KindContractViolation
)
