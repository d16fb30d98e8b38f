// Package policy implements declarative routing policy: intent-to-chain
// resolution, post-hoc budget validation, and escalation. An Engine is
// immutable; reloads build a new Engine and swap it in whole.
package policy

import (
	"fmt"
	"time"
)

// Document is the full policy structure as loaded from configuration.
type Document struct {
	// Version identifies the loaded revision. The loader derives it from
	// the file content; hand-built documents may set it directly.
	Version  string                     `yaml:"version" json:"version"`
	Intents  map[string]IntentRoute     `yaml:"intents" json:"intents"`
	Profiles map[string]ProviderProfile `yaml:"profiles" json:"profiles"`
	Rules    []EscalationRule           `yaml:"escalation_rules" json:"escalation_rules"`
}

// IntentRoute declares the provider chain and budget for one intent.
type IntentRoute struct {
	Primary             string   `yaml:"primary" json:"primary"`
	Fallbacks           []string `yaml:"fallbacks" json:"fallbacks,omitempty"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold" json:"confidence_threshold,omitempty"`
	MaxCostUSD          float64  `yaml:"max_cost_usd" json:"max_cost_usd,omitempty"`
	MaxLatencyMS        int      `yaml:"max_latency_ms" json:"max_latency_ms,omitempty"`
}

// Chain returns the full ordered provider list: primary first, then
// fallbacks.
func (r IntentRoute) Chain() []string {
	chain := make([]string, 0, 1+len(r.Fallbacks))
	chain = append(chain, r.Primary)
	return append(chain, r.Fallbacks...)
}

// ProviderProfile carries operator-declared provider characteristics.
// Cost rates here take precedence over the built-in pricing table.
type ProviderProfile struct {
	CostPer1KInput    float64 `yaml:"cost_per_1k_input" json:"cost_per_1k_input"`
	CostPer1KOutput   float64 `yaml:"cost_per_1k_output" json:"cost_per_1k_output"`
	TypicalLatencyMS  int     `yaml:"typical_latency_ms" json:"typical_latency_ms"`
	MaxConcurrent     int     `yaml:"max_concurrent" json:"max_concurrent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// EscalationRule reroutes requests whose responses violated policy.
// A matched rule's Chain is retried up to MaxRetries times; after that the
// request goes to FinalProvider unconditionally.
type EscalationRule struct {
	Condition     string   `yaml:"condition" json:"condition"`
	Chain         []string `yaml:"chain" json:"chain,omitempty"`
	MaxRetries    int      `yaml:"max_retries" json:"max_retries"`
	FinalProvider string   `yaml:"final_provider" json:"final_provider,omitempty"`
}

// Budget is the per-request constraint set resolved from an intent.
// Zero values mean unconstrained.
type Budget struct {
	MaxCostUSD          float64       `json:"max_cost_usd,omitempty"`
	MaxLatency          time.Duration `json:"max_latency,omitempty"`
	ConfidenceThreshold float64       `json:"confidence_threshold,omitempty"`
}

var validConditions = map[string]struct{}{
	"cost_exceeded":    {},
	"latency_exceeded": {},
	"confidence_below": {},
}

// Validate checks structural integrity of the document. It does not check
// that named providers exist; the registry owns that at resolution time.
func (d *Document) Validate() error {
	if len(d.Intents) == 0 {
		return fmt.Errorf("policy: at least one intent is required")
	}

	for name, route := range d.Intents {
		if route.Primary == "" {
			return fmt.Errorf("intent %q: primary provider is required", name)
		}
		if route.ConfidenceThreshold < 0 || route.ConfidenceThreshold > 1 {
			return fmt.Errorf("intent %q: confidence_threshold must be in [0, 1]", name)
		}
		if route.MaxCostUSD < 0 {
			return fmt.Errorf("intent %q: max_cost_usd must not be negative", name)
		}
		if route.MaxLatencyMS < 0 {
			return fmt.Errorf("intent %q: max_latency_ms must not be negative", name)
		}
	}

	for name, profile := range d.Profiles {
		if profile.CostPer1KInput < 0 || profile.CostPer1KOutput < 0 {
			return fmt.Errorf("profile %q: cost rates must not be negative", name)
		}
		if profile.TypicalLatencyMS < 0 {
			return fmt.Errorf("profile %q: typical_latency_ms must not be negative", name)
		}
		if profile.RequestsPerSecond < 0 {
			return fmt.Errorf("profile %q: requests_per_second must not be negative", name)
		}
	}

	for i, rule := range d.Rules {
		if _, ok := validConditions[rule.Condition]; !ok {
			return fmt.Errorf("escalation_rules[%d]: unknown condition %q", i, rule.Condition)
		}
		if len(rule.Chain) == 0 && rule.FinalProvider == "" {
			return fmt.Errorf("escalation_rules[%d]: chain or final_provider is required", i)
		}
		if rule.MaxRetries < 0 {
			return fmt.Errorf("escalation_rules[%d]: max_retries must not be negative", i)
		}
	}

	return nil
}
