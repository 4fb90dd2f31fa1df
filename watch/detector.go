// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oliverwilkes/namewatch/notify"
)

// defaultQueueSize bounds the Detector's event queue. Two producers
// at human-scale event rates never approach this; the bound exists so
// a stalled consumer surfaces as backpressure instead of unbounded
// memory growth.
const defaultQueueSize = 16

// DetectorConfig configures a Detector.
type DetectorConfig struct {
	// Sink receives an alert on every genuine name change.
	Sink notify.Sink

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// QueueSize bounds the event queue. Zero means the default.
	QueueSize int
}

// Detector owns the channel state. Both observation channels call
// Observe; a single consumer goroutine (Run) applies events in
// arrival order, so two near-simultaneous observations are evaluated
// one after the other against the state as it stood when each
// arrived — never interleaved, never reordered by source.
type Detector struct {
	sink   notify.Sink
	logger *slog.Logger
	events chan ObservedName

	mu    sync.Mutex
	state ChannelState
}

// NewDetector creates a Detector. Call Run to start the consumer.
func NewDetector(cfg DetectorConfig) *Detector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Detector{
		sink:   cfg.Sink,
		logger: logger,
		events: make(chan ObservedName, queueSize),
	}
}

// Observe submits an observation for evaluation. Blocks only when the
// queue is full or ctx is cancelled; blocking (rather than dropping)
// preserves causal order per source.
func (d *Detector) Observe(ctx context.Context, event ObservedName) {
	select {
	case d.events <- event:
	case <-ctx.Done():
	}
}

// Run consumes observations until ctx is cancelled. Cancellation is
// checked before each event so no notification fires once shutdown
// has been observed, even when events remain queued.
func (d *Detector) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.events:
			d.Apply(ctx, event)
		}
	}
}

// Apply evaluates one observation against the channel state and
// returns whether a notification was raised. The first observation
// ever seen seeds the state silently. An unchanged name is a no-op.
// A changed name updates the state and notifies; a notification
// failure is logged and does not affect the state or the return
// value — monitoring must keep running. A change to an empty name
// (an update payload without a name) moves the state but raises no
// alert; the name the channel changes to next alerts as usual.
//
// Run is the only caller in production. Apply is exported so the
// decision logic is testable without the queue.
func (d *Detector) Apply(ctx context.Context, event ObservedName) bool {
	d.mu.Lock()
	if !d.state.Seeded {
		d.state = ChannelState{Name: event.Name, LastUpdated: event.ObservedAt, Seeded: true}
		d.mu.Unlock()
		d.logger.Info("seeded channel state",
			"name", event.Name,
			"source", event.Source.String(),
		)
		return false
	}
	if event.Name == d.state.Name {
		d.mu.Unlock()
		return false
	}
	previous := d.state.Name
	d.state = ChannelState{Name: event.Name, LastUpdated: event.ObservedAt, Seeded: true}
	d.mu.Unlock()

	if event.Name == "" {
		d.logger.Info("name cleared",
			"old", previous,
			"source", event.Source.String(),
		)
		return false
	}

	d.logger.Info("name change detected",
		"old", previous,
		"new", event.Name,
		"source", event.Source.String(),
	)
	if err := d.sink.Notify(ctx, event.Name); err != nil {
		d.logger.Error("notification failed",
			"name", event.Name,
			"error", err,
		)
	}
	return true
}

// State returns a snapshot of the channel state.
func (d *Detector) State() ChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
