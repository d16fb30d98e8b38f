package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/switchboard-ai/switchboard/internal/pricing"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

// ErrUnknownIntent is returned when a request names an intent the policy
// document does not declare.
var ErrUnknownIntent = errors.New("unknown intent")

// Resolution is the outcome of mapping an intent onto the policy: the
// ordered provider chain and the budget the response must satisfy.
type Resolution struct {
	Intent string   `json:"intent"`
	Chain  []string `json:"chain"`
	Budget Budget   `json:"budget"`
}

// Escalation is a rerouting directive produced after a policy violation.
// Final marks the unconditional last stage.
type Escalation struct {
	Chain []string `json:"chain"`
	Final bool     `json:"final"`
}

// Engine evaluates routing policy. It is immutable after construction;
// concurrent use requires no locking.
type Engine struct {
	doc  *Document
	calc *pricing.Calculator
}

// Option customizes engine construction.
type Option func(*Engine)

// WithCalculator overrides the fallback pricing table.
func WithCalculator(calc *pricing.Calculator) Option {
	return func(e *Engine) {
		e.calc = calc
	}
}

// NewEngine validates doc and builds an engine over it.
func NewEngine(doc *Document, opts ...Option) (*Engine, error) {
	if doc == nil {
		return nil, fmt.Errorf("policy: document is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{doc: doc, calc: pricing.NewCalculator(nil)}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Version returns the loaded policy revision.
func (e *Engine) Version() string {
	return e.doc.Version
}

// Document returns the underlying policy document.
func (e *Engine) Document() *Document {
	return e.doc
}

// ResolveChain maps an intent to its provider chain and budget.
func (e *Engine) ResolveChain(intent string) (*Resolution, error) {
	route, ok := e.doc.Intents[intent]
	if !ok {
		return nil, fmt.Errorf("intent %q: %w", intent, ErrUnknownIntent)
	}

	return &Resolution{
		Intent: intent,
		Chain:  route.Chain(),
		Budget: Budget{
			MaxCostUSD:          route.MaxCostUSD,
			MaxLatency:          time.Duration(route.MaxLatencyMS) * time.Millisecond,
			ConfidenceThreshold: route.ConfidenceThreshold,
		},
	}, nil
}

// Validate checks a successful response against the resolved budget. A nil
// return means compliant. Validation is post-hoc and advisory: it never
// rejects the response, it only reports.
//
// Cost is skipped when the provider reported no usage, and confidence is
// skipped when the provider reported no score. An absent measurement is
// not a violation.
func (e *Engine) Validate(res *Resolution, providerName string, resp *types.Response, latency time.Duration) []types.Violation {
	if res == nil || resp == nil {
		return nil
	}

	var out []types.Violation
	budget := res.Budget

	if budget.MaxCostUSD > 0 && resp.Usage != nil {
		cost := e.costOf(providerName, resp.Model, resp.Usage)
		if cost > budget.MaxCostUSD {
			out = append(out, types.Violation{
				Kind:     types.ViolationCostExceeded,
				Limit:    budget.MaxCostUSD,
				Actual:   cost,
				Provider: providerName,
			})
		}
	}

	if budget.MaxLatency > 0 && latency > budget.MaxLatency {
		out = append(out, types.Violation{
			Kind:     types.ViolationLatencyExceeded,
			Limit:    float64(budget.MaxLatency.Milliseconds()),
			Actual:   float64(latency.Milliseconds()),
			Provider: providerName,
		})
	}

	if budget.ConfidenceThreshold > 0 && resp.Reported() && resp.Confidence < budget.ConfidenceThreshold {
		out = append(out, types.Violation{
			Kind:     types.ViolationConfidenceBelow,
			Limit:    budget.ConfidenceThreshold,
			Actual:   resp.Confidence,
			Provider: providerName,
		})
	}

	return out
}

// Escalate selects the next rerouting stage for a violating response.
// done is the number of escalations already executed for this request.
// The first matching rule's Chain applies while done < MaxRetries; the
// stage after that is the rule's FinalProvider, unconditionally. A false
// return means escalation is exhausted or no rule matches.
func (e *Engine) Escalate(violations []types.Violation, done int) (*Escalation, bool) {
	rule := e.matchRule(violations)
	if rule == nil {
		return nil, false
	}

	if done < rule.MaxRetries && len(rule.Chain) > 0 {
		return &Escalation{Chain: rule.Chain}, true
	}
	if done <= rule.MaxRetries && rule.FinalProvider != "" {
		return &Escalation{Chain: []string{rule.FinalProvider}, Final: true}, true
	}
	return nil, false
}

// matchRule returns the first rule whose condition matches any violation,
// in document order.
func (e *Engine) matchRule(violations []types.Violation) *EscalationRule {
	for i := range e.doc.Rules {
		rule := &e.doc.Rules[i]
		for _, v := range violations {
			if v.Kind == rule.Condition {
				return rule
			}
		}
	}
	return nil
}

// costOf prefers the operator-declared profile rates for the provider and
// falls back to the built-in model pricing table.
func (e *Engine) costOf(providerName, model string, usage *types.Usage) float64 {
	if profile, ok := e.doc.Profiles[providerName]; ok && (profile.CostPer1KInput > 0 || profile.CostPer1KOutput > 0) {
		return float64(usage.PromptTokens)/1000.0*profile.CostPer1KInput +
			float64(usage.CompletionTokens)/1000.0*profile.CostPer1KOutput
	}
	return e.calc.CostOf(model, usage)
}
