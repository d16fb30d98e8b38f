package resilience

import "context"

// Semaphore caps concurrent provider calls. Permits live in a buffered
// channel, so acquisition order under contention follows the runtime's
// channel scheduling rather than strict FIFO.
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore returns a semaphore admitting at most capacity holders.
// A capacity below one is treated as one.
func NewSemaphore(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{permits: make(chan struct{}, capacity)}
}

// Acquire takes a permit, blocking until one frees up or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a permit only if one is immediately available.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.permits <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a permit. Releasing more than was acquired is a no-op.
func (s *Semaphore) Release() {
	select {
	case <-s.permits:
	default:
	}
}

// InUse returns the number of permits currently held.
func (s *Semaphore) InUse() int {
	return len(s.permits)
}

// Capacity returns the maximum number of concurrent holders.
func (s *Semaphore) Capacity() int {
	return cap(s.permits)
}
