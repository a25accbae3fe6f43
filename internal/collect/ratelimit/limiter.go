// Package ratelimit paces outbound requests against the FEC hourly quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter grants permits no closer together than a fixed interval. It is the
// single serialization point against the external quota: every outbound call,
// from any worker, must acquire one permit. The quota is global, not
// per-connection, so all callers share one Limiter.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// New creates a limiter with the given minimum spacing between permits.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Acquire blocks until a permit is available or ctx is done. Permits are
// handed out in reservation order, so concurrent callers cannot compress
// the spacing below the configured interval.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	grant := l.next
	if grant.Before(now) {
		grant = now
	}
	l.next = grant.Add(l.interval)
	l.mu.Unlock()

	wait := time.Until(grant)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
