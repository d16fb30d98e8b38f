// Package registry holds the set of live provider adapters. Registration is
// a startup-time activity: once Freeze is called the set is immutable and
// lookups proceed without locking concerns for the life of the process.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/switchboard-ai/switchboard/pkg/provider"
)

var (
	// ErrProviderExists is returned when a name is registered twice.
	ErrProviderExists = errors.New("provider already registered")
	// ErrFrozen is returned for registrations after Freeze.
	ErrFrozen = errors.New("registry is frozen")
)

// Registry maps provider names to descriptors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*provider.Descriptor
	frozen  bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*provider.Descriptor),
	}
}

// Register adds a descriptor under its name. Registering a duplicate name
// fails rather than silently replacing the adapter.
func (r *Registry) Register(desc *provider.Descriptor) error {
	if desc == nil || desc.Name == "" {
		return fmt.Errorf("descriptor requires a name")
	}
	if desc.Adapter == nil {
		return fmt.Errorf("provider %q: adapter is required", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %q: %w", desc.Name, ErrFrozen)
	}
	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("register %q: %w", desc.Name, ErrProviderExists)
	}
	r.entries[desc.Name] = desc
	return nil
}

// Freeze ends the registration phase. Subsequent Register calls fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Resolve returns the descriptor for a name.
func (r *Registry) Resolve(name string) (*provider.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	return d, ok
}

// CapabilitiesOf returns the capability set for a registered name.
func (r *Registry) CapabilitiesOf(name string) (provider.Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	if !ok {
		return provider.Capabilities{}, false
	}
	return d.Capabilities, true
}

// Names returns all registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
