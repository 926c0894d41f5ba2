package core

// limiter.go bounds the number of checks running at once.
//
// The limiter uses a semaphore channel. When all slots are occupied, new
// requests wait up to maxWait before failing with ErrTooManyChecks. Thorough
// checks of large tree censuses hold a slot for seconds, so the HTTP server
// and the batch runner share one limiter per Service.
//
// WaitForDrain blocks until all active checks complete and is used on
// shutdown.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyChecks is returned when all check slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyChecks = errors.New("too many concurrent checks, please try again later")

// DefaultMaxConcurrentChecks is the default limit for parallel checks.
const DefaultMaxConcurrentChecks = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// CheckLimiter controls concurrent check runs using a semaphore.
type CheckLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewCheckLimiter creates a limiter that allows at most maxConcurrent
// simultaneous checks. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyChecks.
func NewCheckLimiter(maxConcurrent int, maxWait time.Duration) *CheckLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentChecks
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &CheckLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a check slot.
// The caller MUST call Release() when the check completes (use defer).
func (l *CheckLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyChecks
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *CheckLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *CheckLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of checks currently running.
func (l *CheckLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent checks.
func (l *CheckLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *CheckLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active checks complete or ctx is cancelled.
func (l *CheckLimiter) WaitForDrain(ctx context.Context) error {
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

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for /healthz.
func (l *CheckLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
