// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oliverwilkes/namewatch/lib/clock"
	"github.com/oliverwilkes/namewatch/watch"
)

// defaultHandshakeTimeout bounds each handshake stage: hello must
// arrive, then ready must follow the identify, each within this
// window.
const defaultHandshakeTimeout = 10 * time.Second

// Config configures a Client.
type Config struct {
	// URL is the gateway websocket endpoint.
	URL string

	// Token is the credential presented in the identify.
	Token string

	// ChannelID is the watched channel.
	ChannelID string

	// OnObserved receives every name observation from this
	// connection. Called from the client's goroutine.
	OnObserved func(watch.ObservedName)

	// OnReady is called once per Run, when the handshake is accepted.
	// The reconnect supervisor measures connection lifetime from this
	// callback.
	OnReady func()

	// Dial opens the transport. If nil, DialWebsocket is used.
	Dial Dialer

	// Clock abstracts time for tests. If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// HandshakeTimeout bounds each handshake stage. Zero means the
	// default.
	HandshakeTimeout time.Duration

	// HeartbeatFallback is the keepalive interval used when the hello
	// does not specify a usable one.
	HeartbeatFallback time.Duration

	// FirstBeatDelay computes the jittered delay before the first
	// keepalive. If nil, interval * random(0,1) per protocol
	// convention. Tests inject a fixed value.
	FirstBeatDelay func(interval time.Duration) time.Duration

	// Compress asks the remote to zlib-compress large payloads.
	Compress bool
}

// Client owns one push connection's lifecycle: connect, identify,
// receive-dispatch, sequence tracking. Run never returns normally
// while the connection is healthy; it returns a *ConnectionLostError
// when the remote closes, the handshake is rejected, or the keepalive
// acknowledgement times out. Retrying is the supervisor's job.
type Client struct {
	cfg    Config
	dial   Dialer
	clock  clock.Clock
	logger *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	dial := cfg.Dial
	if dial == nil {
		dial = DialWebsocket
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.FirstBeatDelay == nil {
		cfg.FirstBeatDelay = func(interval time.Duration) time.Duration {
			return time.Duration(rand.Float64() * float64(interval))
		}
	}
	return &Client{cfg: cfg, dial: dial, clock: clk, logger: logger}
}

// inbound is one parsed payload or the read error that ended the
// receive loop.
type inbound struct {
	payload Payload
	err     error
}

// Run executes one connection to completion.
func (c *Client) Run(ctx context.Context) error {
	transport, err := c.dial(ctx, c.cfg.URL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return connectionLost("dial failed", err)
	}
	c.logger.Info("connection established", "url", c.cfg.URL)

	// Closing the transport is the only way to unblock a pending
	// read; tie it to connection scope so both cancellation and
	// normal return tear the socket down.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		transport.Close()
	}()

	incoming := make(chan inbound)
	go c.receive(connCtx, transport, incoming)

	// Hello: the remote speaks first.
	hello, err := c.awaitHello(connCtx, incoming)
	if err != nil {
		return err
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = c.cfg.HeartbeatFallback
	}
	c.logger.Info("hello received", "heartbeat_interval", interval)

	// Identify.
	identify, err := marshalIdentify(c.cfg.Token, c.cfg.Compress)
	if err != nil {
		return connectionLost("protocol error", err)
	}
	if err := transport.WriteMessage(identify); err != nil {
		return connectionLost("transport closed", err)
	}
	c.logger.Info("identify sent")

	// Ready.
	seq := &sequence{}
	ready, err := c.awaitReady(connCtx, incoming, seq)
	if err != nil {
		return err
	}
	c.logger.Info("handshake accepted")
	if c.cfg.OnReady != nil {
		c.cfg.OnReady()
	}
	if name, ok := readyChannelName(ready.Data, c.cfg.ChannelID); ok {
		c.emit(name)
	}

	// Keepalive runs beside the dispatch loop, sharing only the
	// transport handle and the sequence tracker.
	heartbeat := newHeartbeatScheduler(
		interval,
		c.cfg.FirstBeatDelay(interval),
		c.clock,
		c.logger,
		seq,
		func(seq *int64) error {
			data, err := marshalHeartbeat(seq)
			if err != nil {
				return err
			}
			return transport.WriteMessage(data)
		},
	)
	heartbeatDone := make(chan error, 1)
	go func() {
		heartbeatDone <- heartbeat.Run(connCtx)
	}()

	// Dispatch loop: steady state until the connection dies.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-heartbeatDone:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		case in := <-incoming:
			if in.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return connectionLost("transport closed", in.err)
			}
			c.dispatch(in.payload, seq, heartbeat)
		}
	}
}

// receive reads and parses payloads until the transport fails.
// Unparseable messages are logged and skipped — the remote ships new
// message shapes without notice, and none of them may kill the
// connection.
func (c *Client) receive(ctx context.Context, transport Transport, incoming chan<- inbound) {
	for {
		data, err := transport.ReadMessage()
		if err != nil {
			select {
			case incoming <- inbound{err: err}:
			case <-ctx.Done():
			}
			return
		}
		var payload Payload
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logger.Warn("unparseable gateway payload", "error", err)
			continue
		}
		select {
		case incoming <- inbound{payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

// awaitHello waits for the op 10 hello that opens every connection.
func (c *Client) awaitHello(ctx context.Context, incoming <-chan inbound) (Hello, error) {
	select {
	case <-ctx.Done():
		return Hello{}, ctx.Err()
	case <-c.clock.After(c.cfg.HandshakeTimeout):
		return Hello{}, connectionLost("handshake timeout", nil)
	case in := <-incoming:
		if in.err != nil {
			return Hello{}, connectionLost("transport closed", in.err)
		}
		if in.payload.Op != OpHello {
			return Hello{}, connectionLost("handshake rejected", nil)
		}
		var hello Hello
		if err := json.Unmarshal(in.payload.Data, &hello); err != nil {
			return Hello{}, connectionLost("protocol error", err)
		}
		return hello, nil
	}
}

// awaitReady waits for the READY dispatch that confirms the identify.
// Payloads arriving in between (acks, stray dispatches) update the
// sequence tracker and are otherwise skipped. An invalid-session op
// is a rejection.
func (c *Client) awaitReady(ctx context.Context, incoming <-chan inbound, seq *sequence) (Payload, error) {
	deadline := c.clock.After(c.cfg.HandshakeTimeout)
	for {
		select {
		case <-ctx.Done():
			return Payload{}, ctx.Err()
		case <-deadline:
			return Payload{}, connectionLost("handshake timeout", nil)
		case in := <-incoming:
			if in.err != nil {
				return Payload{}, connectionLost("transport closed", in.err)
			}
			if in.payload.Seq != nil {
				seq.Store(*in.payload.Seq)
			}
			switch {
			case in.payload.Op == OpInvalidSession:
				return Payload{}, connectionLost("handshake rejected", nil)
			case in.payload.Op == OpDispatch && in.payload.Type == EventReady:
				return in.payload, nil
			}
		}
	}
}

// dispatch handles one steady-state payload: track the sequence,
// clear outstanding keepalives on acks, emit observations for updates
// to the watched channel, ignore everything else.
func (c *Client) dispatch(payload Payload, seq *sequence, heartbeat *heartbeatScheduler) {
	if payload.Seq != nil {
		seq.Store(*payload.Seq)
	}
	switch payload.Op {
	case OpHeartbeatAck:
		heartbeat.Ack()
	case OpDispatch:
		if payload.Type != EventChannelUpdate {
			return
		}
		var channel Channel
		if err := json.Unmarshal(payload.Data, &channel); err != nil {
			c.logger.Warn("unparseable channel update", "error", err)
			return
		}
		if channel.ID != c.cfg.ChannelID {
			return
		}
		c.logger.Debug("dispatch received",
			"event", payload.Type,
			"channel_id", channel.ID,
		)
		c.emit(channel.Name)
	}
}

func (c *Client) emit(name string) {
	if c.cfg.OnObserved == nil {
		return
	}
	c.cfg.OnObserved(watch.ObservedName{
		Name:       name,
		Source:     watch.SourcePush,
		ObservedAt: c.clock.Now(),
	})
}
