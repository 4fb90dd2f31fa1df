// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"
)

// ConnectionLostError reports that the push connection ended and why.
// Every exit path of Client.Run other than context cancellation
// produces one. The supervisor recovers from all of them; none is
// surfaced to the user as fatal.
//
//	var lost *gateway.ConnectionLostError
//	if errors.As(err, &lost) { ... lost.Reason ... }
type ConnectionLostError struct {
	// Reason is a short, stable description: "dial failed",
	// "handshake timeout", "handshake rejected", "transport closed",
	// "heartbeat ack timeout", "heartbeat send failed".
	Reason string

	// Err is the underlying cause, when there is one.
	Err error
}

func (e *ConnectionLostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway: connection lost (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("gateway: connection lost (%s)", e.Reason)
}

func (e *ConnectionLostError) Unwrap() error { return e.Err }

// IsConnectionLost reports whether err is a connection loss.
func IsConnectionLost(err error) bool {
	var lost *ConnectionLostError
	return errors.As(err, &lost)
}

func connectionLost(reason string, err error) error {
	return &ConnectionLostError{Reason: reason, Err: err}
}
