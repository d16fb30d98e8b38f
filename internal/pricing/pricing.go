// Package pricing estimates per-request USD cost from token usage. Policy
// profiles override these rates; the table here is the fallback for models
// the policy document does not price explicitly.
package pricing

import (
	"strings"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// Rate defines the pricing for a model. A trailing "*" in Model makes the
// entry a prefix pattern.
type Rate struct {
	Model           string  `yaml:"model" json:"model"`
	InputCostPer1K  float64 `yaml:"input_cost_per_1k" json:"input_cost_per_1k"`
	OutputCostPer1K float64 `yaml:"output_cost_per_1k" json:"output_cost_per_1k"`
}

// DefaultRates contains fallback pricing for common models, in USD per
// 1000 tokens.
var DefaultRates = []Rate{
	// OpenAI
	{Model: "gpt-4o", InputCostPer1K: 0.005, OutputCostPer1K: 0.015},
	{Model: "gpt-4o-mini", InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
	{Model: "gpt-4-turbo*", InputCostPer1K: 0.01, OutputCostPer1K: 0.03},
	{Model: "gpt-4*", InputCostPer1K: 0.03, OutputCostPer1K: 0.06},
	{Model: "gpt-3.5-turbo", InputCostPer1K: 0.0005, OutputCostPer1K: 0.0015},

	// Anthropic
	{Model: "claude-3-5-sonnet*", InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
	{Model: "claude-3-opus*", InputCostPer1K: 0.015, OutputCostPer1K: 0.075},
	{Model: "claude-3-haiku*", InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125},

	// Google
	{Model: "gemini-1.5-pro*", InputCostPer1K: 0.00125, OutputCostPer1K: 0.005},
	{Model: "gemini-1.5-flash*", InputCostPer1K: 0.000075, OutputCostPer1K: 0.0003},

	// DeepSeek
	{Model: "deepseek-chat", InputCostPer1K: 0.00014, OutputCostPer1K: 0.00028},
	{Model: "deepseek-coder", InputCostPer1K: 0.00014, OutputCostPer1K: 0.00028},

	// Mistral
	{Model: "mistral-large*", InputCostPer1K: 0.004, OutputCostPer1K: 0.012},
	{Model: "mistral-small*", InputCostPer1K: 0.001, OutputCostPer1K: 0.003},

	// Meta
	{Model: "llama-3*", InputCostPer1K: 0.0002, OutputCostPer1K: 0.0002},
}

// Calculator resolves model names to rates.
type Calculator struct {
	exact    map[string]Rate
	prefixes []Rate
}

// NewCalculator builds a calculator from the given rates, or DefaultRates
// when nil is passed.
func NewCalculator(rates []Rate) *Calculator {
	if rates == nil {
		rates = DefaultRates
	}

	c := &Calculator{exact: make(map[string]Rate)}
	for _, r := range rates {
		if strings.HasSuffix(r.Model, "*") {
			c.prefixes = append(c.prefixes, r)
		} else {
			c.exact[strings.ToLower(r.Model)] = r
		}
	}
	return c
}

// Calculate returns the USD cost for the given model and token counts.
// Unknown models cost 0: without a rate there is nothing to enforce.
func (c *Calculator) Calculate(model string, inputTokens, outputTokens int) float64 {
	rate, ok := c.Lookup(model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000.0*rate.InputCostPer1K +
		float64(outputTokens)/1000.0*rate.OutputCostPer1K
}

// CostOf computes the cost of a response's reported usage.
func (c *Calculator) CostOf(model string, usage *types.Usage) float64 {
	if usage == nil {
		return 0
	}
	return c.Calculate(model, usage.PromptTokens, usage.CompletionTokens)
}

// Lookup finds the rate for a model. Exact matches win; otherwise the
// longest matching prefix pattern applies.
func (c *Calculator) Lookup(model string) (Rate, bool) {
	lower := strings.ToLower(model)
	if r, ok := c.exact[lower]; ok {
		return r, true
	}

	var best Rate
	bestLen := -1
	for _, r := range c.prefixes {
		prefix := strings.ToLower(strings.TrimSuffix(r.Model, "*"))
		if strings.HasPrefix(lower, prefix) && len(prefix) > bestLen {
			best = r
			bestLen = len(prefix)
		}
	}
	return best, bestLen >= 0
}

// Add registers or replaces the rate for a model.
func (c *Calculator) Add(r Rate) {
	if strings.HasSuffix(r.Model, "*") {
		for i := range c.prefixes {
			if c.prefixes[i].Model == r.Model {
				c.prefixes[i] = r
				return
			}
		}
		c.prefixes = append(c.prefixes, r)
		return
	}
	c.exact[strings.ToLower(r.Model)] = r
}
