package pipeline

import "context"

// Limiter is a counting admission gate for the expensive transform+render
// section. Capacity is fixed at construction; callers beyond capacity queue
// on the semaphore channel until a slot frees. There is no queue bound of
// its own; the transport layer's connection limits are the only cap.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter creates a gate with the given capacity.
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	l := &Limiter{sem: make(chan struct{}, capacity)}
	for i := 0; i < capacity; i++ {
		l.sem <- struct{}{}
	}
	return l
}

// Acquire blocks until a slot is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-l.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. It must be called exactly once per successful
// Acquire, regardless of how the guarded work ended.
func (l *Limiter) Release() {
	l.sem <- struct{}{}
}

// Capacity returns the configured slot count.
func (l *Limiter) Capacity() int { return cap(l.sem) }

// Idle returns the number of currently free slots.
func (l *Limiter) Idle() int { return len(l.sem) }

// InUse returns the number of currently held slots.
func (l *Limiter) InUse() int { return cap(l.sem) - len(l.sem) }
