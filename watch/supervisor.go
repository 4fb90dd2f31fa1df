// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/oliverwilkes/namewatch/lib/clock"
)

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Connect runs one push connection to completion. It returns when
	// the connection is lost (with the reason as its error) or when
	// ctx is cancelled. Connect calls established exactly once when
	// the handshake completes; attempts that fail before then never
	// count toward the sustained-connection reset. The supervisor
	// owns all retry state; Connect must not retry internally.
	Connect func(ctx context.Context, established func()) error

	// SustainedAfter is the established-connection lifetime that
	// counts as sustained. A connection living at least this long
	// past its handshake resets the backoff before the next failure
	// is counted, distinguishing persistent flapping from a one-off
	// transient drop. Callers pass one heartbeat interval.
	SustainedAfter time.Duration

	// Backoff supplies the delay policy. The zero value uses the
	// package defaults.
	Backoff Backoff

	// Clock abstracts time for tests. If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Supervisor wraps the push connection with exponential backoff and
// unlimited retry, isolating connection churn from the rest of the
// system. Connection loss is never fatal; only ctx cancellation ends
// the supervision loop.
type Supervisor struct {
	connect        func(ctx context.Context, established func()) error
	sustainedAfter time.Duration
	backoff        Backoff
	clock          clock.Clock
	logger         *slog.Logger
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		connect:        cfg.Connect,
		sustainedAfter: cfg.SustainedAfter,
		backoff:        cfg.Backoff,
		clock:          clk,
		logger:         logger,
	}
}

// Run reconnects until ctx is cancelled. Lifetime is measured from
// the moment Connect reports the handshake complete, not from the
// start of the attempt — a dial or handshake that hangs for longer
// than SustainedAfter and then fails is still a failed attempt and
// must escalate the backoff. An established connection that lived at
// least SustainedAfter resets the backoff, so the next delay is the
// initial one rather than an escalated one.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		var readyAt time.Time
		err := s.connect(ctx, func() {
			readyAt = s.clock.Now()
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var lifetime time.Duration
		if !readyAt.IsZero() {
			lifetime = s.clock.Now().Sub(readyAt)
			if s.sustainedAfter > 0 && lifetime >= s.sustainedAfter {
				s.backoff.Reset()
			}
		}
		delay := s.backoff.Next()

		s.logger.Warn("connection lost",
			"reason", err,
			"lifetime", lifetime,
			"attempt", s.backoff.Attempt(),
			"retry_in", delay,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(delay):
		}
	}
}
