// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/oliverwilkes/namewatch/gateway"
	"github.com/oliverwilkes/namewatch/lib/clock"
	"github.com/oliverwilkes/namewatch/lib/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSink captures notifications as they fire.
type recordingSink struct {
	notifications chan string
}

func (s *recordingSink) Notify(ctx context.Context, newName string) error {
	s.notifications <- newName
	return nil
}

// scriptedGateway is an in-process gateway connection the test feeds.
type scriptedGateway struct {
	inbound chan []byte
	writes  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		inbound: make(chan []byte, 16),
		writes:  make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (g *scriptedGateway) ReadMessage() ([]byte, error) {
	select {
	case data := <-g.inbound:
		return data, nil
	case <-g.closed:
		return nil, fmt.Errorf("connection closed")
	}
}

func (g *scriptedGateway) WriteMessage(data []byte) error {
	select {
	case <-g.closed:
		return fmt.Errorf("connection closed")
	default:
	}
	g.writes <- data
	return nil
}

func (g *scriptedGateway) Close() error {
	g.closeOnce.Do(func() { close(g.closed) })
	return nil
}

func (g *scriptedGateway) dialer() gateway.Dialer {
	return func(ctx context.Context, url string) (gateway.Transport, error) {
		return g, nil
	}
}

func (g *scriptedGateway) feed(t *testing.T, op int, typ string, seq int64, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(gateway.Payload{Op: op, Type: typ, Seq: &seq, Data: raw})
	if err != nil {
		t.Fatal(err)
	}
	g.inbound <- payload
}

// channelServer is a REST endpoint serving a mutable channel name.
type channelServer struct {
	mu      sync.Mutex
	name    string
	served  chan string
	httptst *httptest.Server
}

func newChannelServer(name string) *channelServer {
	s := &channelServer{name: name, served: make(chan string, 16)}
	s.httptst = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		current := s.name
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id": "123", "name": %q}`, current)
		s.served <- current
	}))
	return s
}

func (s *channelServer) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// TestMonitorEndToEnd drives the full wiring through one rename: the
// startup fetch seeds silently, a pushed rename alerts exactly once,
// and a poll confirming the same name adds nothing.
func TestMonitorEndToEnd(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	server := newChannelServer("general")
	defer server.httptst.Close()
	gw := newScriptedGateway()
	sink := &recordingSink{notifications: make(chan string, 16)}

	cfg := config.Default()
	cfg.Token = "secret-token"
	cfg.ChannelID = "123"
	cfg.APIBaseURL = server.httptst.URL
	cfg.GatewayURL = "wss://example.invalid/?v=9"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runMonitor(ctx, cfg, discardLogger(), monitorOptions{
			dial:      gw.dialer(),
			sink:      sink,
			clock:     fake,
			firstBeat: func(interval time.Duration) time.Duration { return interval },
		})
	}()

	// Startup fetch seeds the state.
	<-server.served

	// Gateway handshake; READY repeating the seeded name changes
	// nothing.
	gw.feed(t, gateway.OpHello, "", 0, gateway.Hello{HeartbeatInterval: 41250})
	<-gw.writes // identify
	gw.feed(t, gateway.OpDispatch, gateway.EventReady, 1, map[string]any{
		"guilds": []map[string]any{
			{"channels": []map[string]string{{"id": "123", "name": "general"}}},
		},
	})

	// The pushed rename alerts once.
	gw.feed(t, gateway.OpDispatch, gateway.EventChannelUpdate, 2,
		gateway.Channel{ID: "123", Name: "general-renamed"})
	if got := <-sink.notifications; got != "general-renamed" {
		t.Fatalf("notification = %q, want %q", got, "general-renamed")
	}

	// A poll observing the already-applied rename is a no-op. Four
	// waiters are pending once the handshake settles: the poll
	// ticker, the parked first keepalive, and two abandoned handshake
	// deadlines. Advancing one poll interval fires only the ticker.
	server.setName("general-renamed")
	fake.WaitForTimers(4)
	fake.Advance(cfg.PollInterval.Std())
	<-server.served

	// A further rename must be the next notification: if the poll had
	// duplicated the alert, it would arrive here instead.
	gw.feed(t, gateway.OpDispatch, gateway.EventChannelUpdate, 3,
		gateway.Channel{ID: "123", Name: "general-final"})
	if got := <-sink.notifications; got != "general-final" {
		t.Fatalf("notification = %q, want %q (no duplicate in between)", got, "general-final")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runMonitor did not shut down")
	}
	select {
	case extra := <-sink.notifications:
		t.Errorf("notification %q after shutdown", extra)
	default:
	}
}

// TestMonitorSeedFailureFallsBackToFirstObservation covers startup
// against an unreachable API: the watcher still comes up, and the
// first gateway observation seeds silently.
func TestMonitorSeedFailureFallsBackToFirstObservation(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	server := newChannelServer("ignored")
	server.httptst.Close() // refuse all requests
	gw := newScriptedGateway()
	sink := &recordingSink{notifications: make(chan string, 16)}

	cfg := config.Default()
	cfg.Token = "secret-token"
	cfg.ChannelID = "123"
	cfg.APIBaseURL = server.httptst.URL
	cfg.GatewayURL = "wss://example.invalid/?v=9"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runMonitor(ctx, cfg, discardLogger(), monitorOptions{
			dial:  gw.dialer(),
			sink:  sink,
			clock: fake,
		})
	}()

	gw.feed(t, gateway.OpHello, "", 0, gateway.Hello{HeartbeatInterval: 41250})
	<-gw.writes // identify
	gw.feed(t, gateway.OpDispatch, gateway.EventReady, 1, map[string]any{
		"guilds": []map[string]any{
			{"channels": []map[string]string{{"id": "123", "name": "general"}}},
		},
	})

	// The READY name became the seed, so only the rename alerts.
	gw.feed(t, gateway.OpDispatch, gateway.EventChannelUpdate, 2,
		gateway.Channel{ID: "123", Name: "general-renamed"})
	if got := <-sink.notifications; got != "general-renamed" {
		t.Fatalf("notification = %q, want %q", got, "general-renamed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runMonitor did not shut down")
	}
}
