// Package ratelimit implements the per-client fixed-window counter used by
// the ingress layer.
//
// DESIGN: The limiter is an explicitly owned component injected into the
// server rather than package-level state, with an injectable clock so tests
// control time deterministically. State is in-memory and process-scoped; no
// cross-process sharing is guaranteed.
package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

type bucket struct {
	windowStart time.Time
	count       int
}

// Limiter counts requests per client identity in a fixed window.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	window     time.Duration
	max        int
	maxBuckets int
	now        Clock
}

// Option configures the Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.now = c }
}

// WithMaxBuckets caps the number of tracked client identities.
func WithMaxBuckets(n int) Option {
	return func(l *Limiter) { l.maxBuckets = n }
}

// New creates a limiter allowing max requests per window per client.
func New(window time.Duration, max int, opts ...Option) *Limiter {
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		window:     window,
		max:        max,
		maxBuckets: 10000,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decision reports the outcome of one Allow call, including the header
// values the ingress exposes to clients.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Allow records one request for the client identity and reports whether it
// is within quota. The counter update is atomic per identity, so concurrent
// requests from the same client never undercount.
func (l *Limiter) Allow(clientID string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientID]
	if !ok || now.Sub(b.windowStart) >= l.window {
		// New identity or elapsed window: the counter resets.
		if !ok && len(l.buckets) >= l.maxBuckets {
			l.evictExpired(now)
		}
		b = &bucket{windowStart: now}
		l.buckets[clientID] = b
	}

	b.count++
	remaining := l.max - b.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   b.count <= l.max,
		Limit:     l.max,
		Remaining: remaining,
		Reset:     b.windowStart.Add(l.window),
	}
}

// evictExpired drops buckets whose window has elapsed. Called with the lock
// held, only when the bucket cap is reached.
func (l *Limiter) evictExpired(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, id)
		}
	}
}

// Len returns the number of tracked client identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
