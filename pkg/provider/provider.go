// Package provider defines the contract every LLM backend adapter fulfils.
// An adapter owns everything provider-specific: payload transformation,
// transport, and mapping raw failures onto the routing error taxonomy.
package provider

import (
	"context"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// Adapter is the single entry point into a provider backend. Invoke returns
// either a normalized response or an error classified under the routing
// taxonomy, and must respect ctx's deadline and cancellation. Adapters are
// stateless with respect to routing: the engine never stores health or
// cooldown state for them.
type Adapter interface {
	Invoke(ctx context.Context, req *types.Request) (*types.Response, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, req *types.Request) (*types.Response, error)

// Invoke implements Adapter.
func (f AdapterFunc) Invoke(ctx context.Context, req *types.Request) (*types.Response, error) {
	return f(ctx, req)
}

// Capabilities describes what a registered provider supports. Lookups are
// informational; the chain walk never consults them.
type Capabilities struct {
	Models            []string `json:"models"`
	MaxContextTokens  int      `json:"max_context_tokens"`
	SupportsStreaming bool     `json:"supports_streaming"`
	SupportsTools     bool     `json:"supports_tools"`
}

// SupportsModel checks whether the capability set lists the given model.
func (c Capabilities) SupportsModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Descriptor binds a provider name to its adapter and capability set.
// Registry lookups hand descriptors to the executor.
type Descriptor struct {
	Name         string
	Capabilities Capabilities
	Adapter      Adapter
}

// Config contains provider-specific configuration.
type Config struct {
	Name                string            `yaml:"name" json:"name"`
	Type                string            `yaml:"type" json:"type"`
	APIKey              string            `yaml:"api_key" json:"-"`
	BaseURL             string            `yaml:"base_url" json:"base_url"`
	AllowPrivateBaseURL bool              `yaml:"allow_private_base_url" json:"allow_private_base_url"`
	DefaultModel        string            `yaml:"default_model" json:"default_model"`
	Models              []string          `yaml:"models" json:"models"`
	MaxContextTokens    int               `yaml:"max_context_tokens" json:"max_context_tokens"`
	TimeoutSec          int               `yaml:"timeout_seconds" json:"timeout_seconds"`
	Headers             map[string]string `yaml:"headers" json:"headers,omitempty"`
}

// Factory creates a provider descriptor from configuration.
type Factory func(cfg Config) (*Descriptor, error)
