// Package secret resolves credential indirections in provider
// configuration. A credential value may be a plain literal, an
// "env://VAR" reference, or a "vault://path#key" reference; the
// Resolver routes each to the source registered for its scheme.
package secret

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Source retrieves secret values for a single scheme.
type Source interface {
	// Get retrieves the secret value for the given path. The path is
	// the portion after "scheme://".
	Get(ctx context.Context, path string) (string, error)

	// Close releases any resources held by the source.
	Close() error
}

// Resolver routes secret references to registered sources by scheme.
// A value with no scheme is returned verbatim, so plain literals in
// config keep working.
type Resolver struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{sources: make(map[string]Source)}
}

// Register installs a source for a scheme such as "env" or "vault".
func (r *Resolver) Register(scheme string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[scheme] = src
}

// Resolve returns the secret value for ref. Refs without a "://"
// separator are treated as literals and returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	scheme, path, ok := strings.Cut(ref, "://")
	if !ok {
		return ref, nil
	}

	r.mu.RLock()
	src, found := r.sources[scheme]
	r.mu.RUnlock()

	if !found {
		return "", fmt.Errorf("no secret source registered for scheme %q", scheme)
	}
	return src.Get(ctx, path)
}

// Close closes all registered sources.
func (r *Resolver) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []string
	for scheme, src := range r.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", scheme, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close secret sources: %s", strings.Join(errs, "; "))
	}
	return nil
}
