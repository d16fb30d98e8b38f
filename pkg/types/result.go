package types //nolint:revive // package name is intentional

import (
	"time"

	"github.com/switchboard-ai/switchboard/pkg/errors"
)

// Outcome records how a single provider attempt ended.
type Outcome string

const (
	AttemptSuccess Outcome = "success"
	AttemptFailure Outcome = "failure"
)

// AttemptRecord is the audit entry for one provider invocation. Only
// providers that were actually invoked produce a record; chain entries
// dropped during sanitization land in Notes instead.
type AttemptRecord struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	FailureKind errors.Kind   `json:"failure_kind,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Detail      string        `json:"detail,omitempty"`
}

// ChainNote records a chain entry removed before execution.
type ChainNote struct {
	Provider string      `json:"provider"`
	Reason   errors.Kind `json:"reason"`
}

// Disposition is the terminal state of a routing operation.
type Disposition string

const (
	// DispositionSucceededCompliant: a provider answered and the response
	// passed every policy constraint.
	DispositionSucceededCompliant Disposition = "succeeded_compliant"
	// DispositionSucceededNonCompliant: a provider answered but violations
	// remain after escalation was exhausted or unavailable.
	DispositionSucceededNonCompliant Disposition = "succeeded_noncompliant"
	// DispositionExhaustedFatal: no provider produced a response.
	DispositionExhaustedFatal Disposition = "exhausted_fatal"
)

// Violation flags one policy constraint a response failed.
// Limit and Actual are USD for cost, milliseconds for latency, and a
// 0..1 score for confidence.
type Violation struct {
	Kind     string  `json:"kind"`
	Limit    float64 `json:"limit"`
	Actual   float64 `json:"actual"`
	Provider string  `json:"provider"`
}

const (
	ViolationCostExceeded    = "cost_exceeded"
	ViolationLatencyExceeded = "latency_exceeded"
	ViolationConfidenceBelow = "confidence_below"
)

// RoutingResult is the final outcome delivered to the caller: either a
// successful provider response or the terminal classified failure, plus the
// full audit trail of the walk.
type RoutingResult struct {
	RequestID      string             `json:"request_id"`
	Response       *Response          `json:"response,omitempty"`
	Error          *errors.RouteError `json:"error,omitempty"`
	Disposition    Disposition        `json:"disposition"`
	FallbackUsed   bool               `json:"fallback_used"`
	FallbackReason errors.Kind        `json:"fallback_reason,omitempty"`
	Attempts       []AttemptRecord    `json:"attempts"`
	Notes          []ChainNote        `json:"notes,omitempty"`
	Violations     []Violation        `json:"violations,omitempty"`
	Escalations    int                `json:"escalations"`
	Elapsed        time.Duration      `json:"elapsed"`
}

// Succeeded reports whether any provider produced a response.
func (r *RoutingResult) Succeeded() bool {
	return r != nil && r.Response != nil
}
