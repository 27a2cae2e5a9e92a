package remote

// limiter.go caps the number of catalog requests in flight across all
// console sessions.
//
// The limiter uses a semaphore. When all slots are occupied, new requests
// wait up to maxWait before failing with ErrSaturated. WaitForDrain lets
// shutdown wait for in-flight saves to finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSaturated is returned when every request slot stays occupied for the
// whole wait timeout.
var ErrSaturated = errors.New("too many concurrent catalog requests")

// DefaultMaxConcurrent is the default limit for parallel catalog requests.
const DefaultMaxConcurrent = 16

// DefaultMaxWait is how long to wait for a slot before rejecting.
const DefaultMaxWait = 5 * time.Second

// Limiter bounds concurrent catalog requests.
type Limiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter creates a limiter that allows at most maxConcurrent requests.
// Requests that cannot acquire a slot within maxWait get ErrSaturated.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &Limiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a request slot.
// The caller must call Release when the request completes.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		inflight.Inc()
		return nil

	case <-timer.C:
		return ErrSaturated

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	inflight.Dec()

	<-l.semaphore
}

// ActiveCount returns the number of requests in flight.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent requests.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no request is in flight or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
