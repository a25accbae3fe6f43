// Package retry owns the two recovery policies of the pipeline: same-pass
// exponential backoff for rate-limited responses, and the bounded pass-level
// retry for transient failures.
package retry

import (
	"context"
	"time"
)

// DefaultMaxPasses is the number of retry passes after the main pass.
const DefaultMaxPasses = 3

// DefaultInitialBackoff is the first wait after a rate-limited response.
const DefaultInitialBackoff = 60 * time.Second

// DefaultMaxBackoffSteps bounds consecutive same-pass backoffs per entity.
const DefaultMaxBackoffSteps = 3

// Backoff tracks consecutive rate-limit waits for one entity within one
// pass: 60s, then 120s, then 240s. State resets per entity per pass.
type Backoff struct {
	initial  time.Duration
	maxSteps int
	step     int
}

// NewBackoff creates a backoff with the given first step and step bound.
func NewBackoff(initial time.Duration, maxSteps int) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxBackoffSteps
	}
	return &Backoff{initial: initial, maxSteps: maxSteps}
}

// Next returns the wait before the next same-pass re-attempt, doubling each
// consecutive call. The second return is false once the step budget is
// exhausted and the entity should be handed to the pass-level queue instead.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.step >= b.maxSteps {
		return 0, false
	}
	delay := b.initial << b.step
	b.step++
	return delay, true
}

// Reset clears consecutive-backoff state, called on any non-rate-limited
// disposition and at pass boundaries.
func (b *Backoff) Reset() {
	b.step = 0
}

// Steps returns how many backoffs have been consumed.
func (b *Backoff) Steps() int {
	return b.step
}

// Wait sleeps for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
