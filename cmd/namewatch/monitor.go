// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/oliverwilkes/namewatch/gateway"
	"github.com/oliverwilkes/namewatch/lib/clock"
	"github.com/oliverwilkes/namewatch/lib/config"
	"github.com/oliverwilkes/namewatch/notify"
	"github.com/oliverwilkes/namewatch/restapi"
	"github.com/oliverwilkes/namewatch/watch"
)

// seedTimeout bounds the one-shot REST fetch that initializes the
// channel state before the observation paths start.
const seedTimeout = 10 * time.Second

func cmdRun(args []string) error {
	flags := newFlagSet("run")
	configPath := flags.String("config", "", "path to the YAML config file")
	daemon := flags.Bool("daemon", false, "detach and run in the background")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *daemon {
		return daemonize(*configPath, *verbose)
	}

	logger := newLogger(*verbose)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	// The PID file makes this instance visible to stop/status whether
	// it was started in the foreground or detached.
	if err := writePIDFile(os.Getpid()); err != nil {
		logger.Warn("pid file not written", "error", err)
	} else {
		defer removePIDFile()
	}

	return runMonitor(ctx, cfg, logger, monitorOptions{})
}

func cmdTest(args []string) error {
	flags := newFlagSet("test")
	configPath := flags.String("config", "", "path to the YAML config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logger := newLogger(false)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	sink := notify.NewDesktop(notify.ResolveSoundPath(cfg.SoundPath), logger)
	if err := sink.Notify(context.Background(), "namewatch test"); err != nil {
		return err
	}
	fmt.Println("notification sent")
	return nil
}

// newLogger creates the structured logger. A terminal gets
// human-readable text; a pipe or log file gets JSON.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// monitorOptions are the injection points tests use to substitute the
// network and the desktop. The zero value is production wiring.
type monitorOptions struct {
	dial       gateway.Dialer
	httpClient *http.Client
	sink       notify.Sink
	clock      clock.Clock
	firstBeat  func(interval time.Duration) time.Duration
}

// runMonitor wires the watcher together and runs it until ctx is
// cancelled: one detector fed by a supervised gateway connection and
// a REST poller, seeded by a one-shot REST fetch.
func runMonitor(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts monitorOptions) error {
	clk := opts.clock
	if clk == nil {
		clk = clock.Real()
	}
	sink := opts.sink
	if sink == nil {
		sink = notify.NewDesktop(notify.ResolveSoundPath(cfg.SoundPath), logger)
	}

	detector := watch.NewDetector(watch.DetectorConfig{
		Sink:   sink,
		Logger: logger,
	})
	rest := restapi.NewClient(restapi.Config{
		BaseURL:    cfg.APIBaseURL,
		Token:      cfg.Token,
		HTTPClient: opts.httpClient,
		Logger:     logger,
	})

	// Seed the state before either observation path starts, so the
	// name in effect at startup never counts as a change. A failed
	// seed is not fatal: the first observation seeds instead.
	seedCtx, cancelSeed := context.WithTimeout(ctx, seedTimeout)
	if name, err := rest.ChannelName(seedCtx, cfg.ChannelID); err != nil {
		logger.Warn("initial state fetch failed", "error", err)
	} else {
		detector.Observe(ctx, watch.ObservedName{
			Name:       name,
			Source:     watch.SourcePoll,
			ObservedAt: clk.Now(),
		})
	}
	cancelSeed()

	observe := func(o watch.ObservedName) {
		detector.Observe(ctx, o)
	}
	// One client per attempt: the supervisor's established callback
	// is bound to the attempt it supervises.
	connect := func(ctx context.Context, established func()) error {
		client := gateway.NewClient(gateway.Config{
			URL:               cfg.GatewayURL,
			Token:             cfg.Token,
			ChannelID:         cfg.ChannelID,
			OnObserved:        observe,
			OnReady:           established,
			Dial:              opts.dial,
			Clock:             clk,
			Logger:            logger,
			HeartbeatFallback: cfg.HeartbeatInterval.Std(),
			FirstBeatDelay:    opts.firstBeat,
			Compress:          cfg.Compress,
		})
		return client.Run(ctx)
	}
	supervisor := watch.NewSupervisor(watch.SupervisorConfig{
		Connect:        connect,
		SustainedAfter: cfg.HeartbeatInterval.Std(),
		Clock:          clk,
		Logger:         logger,
	})
	poller := restapi.NewPoller(restapi.PollerConfig{
		Fetcher:    rest,
		ChannelID:  cfg.ChannelID,
		Interval:   cfg.PollInterval.Std(),
		OnObserved: observe,
		Clock:      clk,
		Logger:     logger,
	})

	logger.Info("watcher started",
		"channel_id", cfg.ChannelID,
		"poll_interval", cfg.PollInterval.Std(),
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		detector.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		supervisor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}
