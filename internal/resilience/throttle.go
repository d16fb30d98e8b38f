// Package resilience provides client-side throttling for provider calls.
// Limits are static configuration from the policy's provider profiles, not
// health state: the router never tracks provider failures across requests.
package resilience

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/switchboard-ai/switchboard/pkg/policy"
)

// defaultBurst is the bucket size for providers whose profile declares a
// rate but no concurrency ceiling to derive one from.
const defaultBurst = 1

// Throttle enforces per-provider request rates and concurrency ceilings.
// Providers without a profile, or with zero limits, pass through untouched.
type Throttle struct {
	limiters   map[string]*rate.Limiter
	semaphores map[string]*Semaphore
}

// NewThrottle builds a throttle from the policy's provider profiles.
func NewThrottle(profiles map[string]policy.ProviderProfile) *Throttle {
	t := &Throttle{
		limiters:   make(map[string]*rate.Limiter),
		semaphores: make(map[string]*Semaphore),
	}

	for name, profile := range profiles {
		if profile.RequestsPerSecond > 0 {
			burst := profile.MaxConcurrent
			if burst <= 0 {
				burst = defaultBurst
			}
			t.limiters[name] = rate.NewLimiter(rate.Limit(profile.RequestsPerSecond), burst)
		}
		if profile.MaxConcurrent > 0 {
			t.semaphores[name] = NewSemaphore(profile.MaxConcurrent)
		}
	}

	return t
}

// Acquire blocks until the provider's rate and concurrency limits admit one
// more call, or ctx is done. Callers must Release after the call finishes
// when Acquire returned nil.
func (t *Throttle) Acquire(ctx context.Context, providerName string) error {
	if t == nil {
		return nil
	}

	if limiter, ok := t.limiters[providerName]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle %s: %w", providerName, err)
		}
	}

	if sem, ok := t.semaphores[providerName]; ok {
		if err := sem.Acquire(ctx); err != nil {
			return fmt.Errorf("throttle %s: %w", providerName, err)
		}
	}

	return nil
}

// Release returns the provider's concurrency permit.
func (t *Throttle) Release(providerName string) {
	if t == nil {
		return
	}
	if sem, ok := t.semaphores[providerName]; ok {
		sem.Release()
	}
}

// Limited reports whether any limit applies to the provider.
func (t *Throttle) Limited(providerName string) bool {
	if t == nil {
		return false
	}
	_, hasRate := t.limiters[providerName]
	_, hasSem := t.semaphores[providerName]
	return hasRate || hasSem
}
