// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway implements the push observation channel: the
// websocket connection to the remote gateway, the identify handshake,
// the receive-dispatch loop, and the keepalive heartbeat
// sub-protocol.
//
// A Client runs exactly one connection to completion and reports loss
// as a *ConnectionLostError; it holds no retry state. Supervision and
// reconnect backoff live in package watch.
//
// The wire protocol (opcodes, hello/identify/heartbeat/dispatch
// shapes) is the remote's existing contract and is implemented
// as-is, not redesigned.
package gateway
