// Package providers maps adapter type names to factories so descriptors
// can be built straight from configuration.
package providers

import (
	"fmt"
	"sync"

	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/providers/anthropic"
	"github.com/switchboard-ai/switchboard/providers/openaicompat"
)

var (
	registry     = make(map[string]provider.Factory)
	registryOnce sync.Once
	registryMu   sync.RWMutex
)

// Register registers a factory under an adapter type name.
func Register(adapterType string, factory provider.Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[adapterType] = factory
}

// Get returns the factory for the given adapter type.
func Get(adapterType string) (provider.Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[adapterType]
	return f, ok
}

// Build creates a provider descriptor from configuration.
func Build(cfg provider.Config) (*provider.Descriptor, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type %q (available: %v)", cfg.Type, List())
	}
	return factory(cfg)
}

// List returns all registered adapter type names.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// RegisterBuiltins registers the built-in adapter factories. OpenAI-shaped
// backends share the openaicompat client under their own type names.
func RegisterBuiltins() {
	registryOnce.Do(func() {
		Register(openaicompat.AdapterType, openaicompat.NewFromConfig)
		Register("deepseek", openaicompat.NewFromConfig)
		Register("ollama", openaicompat.NewFromConfig)
		Register("openai_compatible", openaicompat.NewFromConfig)
		Register(anthropic.AdapterType, anthropic.NewFromConfig)
	})
}

func init() {
	RegisterBuiltins()
}
