// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oliverwilkes/namewatch/lib/clock"
)

// heartbeatState is the explicit keepalive state machine:
// idle → awaitingAck on send, awaitingAck → idle on acknowledgement,
// awaitingAck → timedOut when a second interval elapses unanswered.
type heartbeatState int

const (
	heartbeatIdle heartbeatState = iota
	heartbeatAwaitingAck
	heartbeatTimedOut
)

// sequence tracks the last-seen dispatch sequence number. The receive
// loop writes it; the heartbeat scheduler reads it for the keepalive
// payload. These run on different goroutines, hence the lock.
type sequence struct {
	mu    sync.Mutex
	value int64
	seen  bool
}

func (s *sequence) Store(v int64) {
	s.mu.Lock()
	s.value = v
	s.seen = true
	s.mu.Unlock()
}

// Load returns the last-seen sequence, or nil before the first
// dispatch (the keepalive then carries null).
func (s *sequence) Load() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seen {
		return nil
	}
	v := s.value
	return &v
}

// heartbeatScheduler drives periodic keepalive sends on one
// connection. Created on successful handshake, discarded on
// disconnect.
type heartbeatScheduler struct {
	interval   time.Duration
	firstDelay time.Duration
	clock      clock.Clock
	logger     *slog.Logger
	seq        *sequence

	// send writes one keepalive to the shared connection.
	send func(seq *int64) error

	mu    sync.Mutex
	state heartbeatState
}

func newHeartbeatScheduler(interval, firstDelay time.Duration, clk clock.Clock, logger *slog.Logger, seq *sequence, send func(*int64) error) *heartbeatScheduler {
	return &heartbeatScheduler{
		interval:   interval,
		firstDelay: firstDelay,
		clock:      clk,
		logger:     logger,
		seq:        seq,
		send:       send,
	}
}

// Run sends keepalives until ctx is cancelled or the connection goes
// dead. The first send is jittered by firstDelay (protocol convention
// to avoid synchronized reconnect storms); subsequent sends use the
// fixed interval. If an acknowledgement is still outstanding when the
// interval fires again, the connection is considered dead and Run
// returns a ConnectionLostError rather than sending a second
// keepalive — concurrent keepalives risk the remote treating the
// session as zombied.
func (h *heartbeatScheduler) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.clock.After(h.firstDelay):
	}
	if err := h.beat(); err != nil {
		return err
	}

	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := h.beat(); err != nil {
				return err
			}
		}
	}
}

// beat sends one keepalive, or reports the connection dead when the
// previous one was never acknowledged.
func (h *heartbeatScheduler) beat() error {
	h.mu.Lock()
	if h.state == heartbeatAwaitingAck {
		h.state = heartbeatTimedOut
		h.mu.Unlock()
		h.logger.Warn("heartbeat ack missed")
		return connectionLost("heartbeat ack timeout", nil)
	}
	h.state = heartbeatAwaitingAck
	h.mu.Unlock()

	seq := h.seq.Load()
	if err := h.send(seq); err != nil {
		return connectionLost("heartbeat send failed", err)
	}
	if seq != nil {
		h.logger.Debug("heartbeat sent", "seq", *seq)
	} else {
		h.logger.Debug("heartbeat sent", "seq", nil)
	}
	return nil
}

// Ack records an acknowledgement from the remote. Called by the
// receive loop on op 11.
func (h *heartbeatScheduler) Ack() {
	h.mu.Lock()
	h.state = heartbeatIdle
	h.mu.Unlock()
	h.logger.Debug("heartbeat acknowledged")
}
