// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zlib"

	"github.com/oliverwilkes/namewatch/lib/hostio"
)

// Transport is one established push connection. ReadMessage returns
// complete JSON payloads, transparently inflating compressed ones.
// WriteMessage is safe for concurrent use (the receive loop and the
// heartbeat scheduler both write). Close unblocks a pending
// ReadMessage, which is how the client cancels a blocked read.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Transport. The production dialer is DialWebsocket;
// tests inject an in-process fake.
type Dialer func(ctx context.Context, url string) (Transport, error)

// DialWebsocket opens a websocket connection to the gateway.
func DialWebsocket(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn

	// writeMu serializes writes; the websocket allows only one
	// concurrent writer.
	writeMu sync.Mutex
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		switch messageType {
		case websocket.TextMessage:
			return data, nil
		case websocket.BinaryMessage:
			// The remote compresses large payloads when the identify
			// requested it; they arrive as binary zlib blobs.
			inflated, err := inflate(data)
			if err != nil {
				return nil, fmt.Errorf("inflating compressed payload: %w", err)
			}
			return inflated, nil
		default:
			// Control frames are handled inside the websocket layer.
			continue
		}
	}
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error { return t.conn.Close() }

func inflate(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(io.LimitReader(reader, hostio.MaxResponseSize))
}
