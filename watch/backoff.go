// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import "time"

// Reconnect backoff bounds. The delay starts at DefaultInitialDelay,
// doubles per consecutive failed attempt, and never exceeds
// DefaultMaxDelay.
const (
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 60 * time.Second
)

// Delay computes the reconnect delay for the given zero-based attempt
// number: initial << attempt, capped at max. Pure, so the growth
// policy is testable without sleeps or clocks.
func Delay(initial, max time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	// Shifting past 62 bits overflows time.Duration long before any
	// realistic attempt count; clamp the exponent instead.
	if attempt > 30 {
		return max
	}
	delay := initial << uint(attempt)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// Backoff tracks consecutive reconnect attempts and produces the next
// delay. Owned by the Supervisor; not safe for concurrent use.
type Backoff struct {
	// Initial is the first-attempt delay. Zero means
	// DefaultInitialDelay.
	Initial time.Duration

	// Max is the delay ceiling. Zero means DefaultMaxDelay.
	Max time.Duration

	attempt int
}

// Next returns the delay for the current attempt and advances the
// attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := Delay(b.Initial, b.Max, b.attempt)
	b.attempt++
	return delay
}

// Reset clears the attempt counter. Called after a connection proves
// sustained, so a one-off transient drop retries promptly instead of
// inheriting the escalated delay from an earlier flap.
func (b *Backoff) Reset() { b.attempt = 0 }

// Attempt returns the number of Next calls since the last Reset.
func (b *Backoff) Attempt() int { return b.attempt }
