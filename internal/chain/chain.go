// Package chain turns a configured provider name list into an executable
// fallback chain. Sanitization is the only transformation applied: order is
// preserved, duplicates are kept, and unknown names are dropped with a note.
package chain

import (
	"errors"
	"fmt"

	"github.com/switchboard-ai/switchboard/internal/registry"
	sberrors "github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

// ErrAllProvidersMissing is returned when sanitization leaves nothing to
// execute. It is a configuration error, not a provider failure.
var ErrAllProvidersMissing = errors.New("no requested provider is registered")

// Sanitized is a chain ready for execution. Notes records every configured
// entry that was dropped; dropped entries never become attempt records.
type Sanitized struct {
	Descriptors []*provider.Descriptor
	Notes       []types.ChainNote
}

// Names returns the provider names in execution order.
func (s *Sanitized) Names() []string {
	names := make([]string, len(s.Descriptors))
	for i, d := range s.Descriptors {
		names[i] = d.Name
	}
	return names
}

// Resolver sanitizes chains against a provider registry.
type Resolver struct {
	registry *registry.Registry
}

// NewResolver creates a resolver backed by reg.
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// Sanitize maps names onto registered descriptors. It never reorders or
// deduplicates; an operator listing a provider twice gets two attempts.
// Sanitizing an already-sanitized chain is a no-op. An empty result is an
// error: a chain with nothing executable means the configuration is broken.
func (r *Resolver) Sanitize(names []string) (*Sanitized, error) {
	out := &Sanitized{}
	for _, name := range names {
		desc, ok := r.registry.Resolve(name)
		if !ok {
			out.Notes = append(out.Notes, types.ChainNote{
				Provider: name,
				Reason:   sberrors.KindProviderNotFound,
			})
			continue
		}
		out.Descriptors = append(out.Descriptors, desc)
	}

	if len(out.Descriptors) == 0 {
		return nil, fmt.Errorf("chain %v: %w", names, ErrAllProvidersMissing)
	}
	return out, nil
}
