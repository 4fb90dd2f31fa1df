// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zlib"
)

// deflate compresses a payload the way the gateway does when the
// identify requested compression.
func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zlib.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWebsocketTransportInflatesBinaryPayloads(t *testing.T) {
	payload := []byte(`{"op":10,"d":{"heartbeat_interval":41250}}`)
	ack := []byte(`{"op":11}`)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading: %v", err)
			return
		}
		defer conn.Close()
		// One compressed binary frame, one plain text frame.
		if err := conn.WriteMessage(websocket.BinaryMessage, deflate(t, payload)); err != nil {
			t.Errorf("writing binary frame: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			t.Errorf("writing text frame: %v", err)
			return
		}
		// Hold the connection open until the client hangs up.
		conn.ReadMessage()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	transport, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatalf("DialWebsocket: %v", err)
	}
	defer transport.Close()

	got, err := transport.ReadMessage()
	if err != nil {
		t.Fatalf("reading compressed payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("inflated payload = %s, want %s", got, payload)
	}

	got, err = transport.ReadMessage()
	if err != nil {
		t.Fatalf("reading text payload: %v", err)
	}
	if !bytes.Equal(got, ack) {
		t.Errorf("text payload = %s, want %s", got, ack)
	}
}

func TestWebsocketTransportRejectsCorruptBinaryPayload(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading: %v", err)
			return
		}
		defer conn.Close()
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte("not zlib data")); err != nil {
			t.Errorf("writing binary frame: %v", err)
			return
		}
		conn.ReadMessage()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	transport, err := DialWebsocket(context.Background(), url)
	if err != nil {
		t.Fatalf("DialWebsocket: %v", err)
	}
	defer transport.Close()

	if _, err := transport.ReadMessage(); err == nil {
		t.Error("corrupt binary frame read without error")
	}
}
