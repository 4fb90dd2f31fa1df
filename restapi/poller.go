// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package restapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/oliverwilkes/namewatch/lib/clock"
	"github.com/oliverwilkes/namewatch/watch"
)

// defaultRequestTimeout bounds each individual poll request. A hung
// request must not stall the polling schedule indefinitely.
const defaultRequestTimeout = 5 * time.Second

// NameFetcher is the read operation the poller drives. *Client
// implements it; tests substitute a fake.
type NameFetcher interface {
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Fetcher performs each poll.
	Fetcher NameFetcher

	// ChannelID is the watched channel.
	ChannelID string

	// Interval is the polling period.
	Interval time.Duration

	// RequestTimeout bounds each poll request. Zero means the
	// default.
	RequestTimeout time.Duration

	// OnObserved receives every successful poll result, changed or
	// not. Deduplication is the watcher's job, not the poller's.
	OnObserved func(watch.ObservedName)

	// Clock abstracts time for tests. If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Poller fetches the channel name at a fixed interval. Poll failures
// are logged and skipped; the schedule continues, because the next
// attempt is the recovery. Run returns only when ctx is cancelled.
type Poller struct {
	cfg    PollerConfig
	clock  clock.Clock
	logger *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(cfg PollerConfig) *Poller {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Poller{cfg: cfg, clock: clk, logger: logger}
}

// Run polls until ctx is cancelled, then returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	name, err := p.cfg.Fetcher.ChannelName(reqCtx, p.cfg.ChannelID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("poll failed", "channel_id", p.cfg.ChannelID, "error", err)
		return
	}
	// Debug, not Info: at a subsecond poll cadence the success line
	// would drown the log. Failures and detected changes log at
	// Warn/Info; run --verbose to trace individual poll cycles.
	p.logger.Debug("poll succeeded", "channel_id", p.cfg.ChannelID, "name", name)
	p.cfg.OnObserved(watch.ObservedName{
		Name:       name,
		Source:     watch.SourcePoll,
		ObservedAt: p.clock.Now(),
	})
}
