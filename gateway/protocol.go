// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import "encoding/json"

// Gateway opcodes (fixed remote contract).
const (
	// OpDispatch carries an event; the t field names the event type
	// and s carries the sequence number.
	OpDispatch = 0
	// OpHeartbeat is the client keepalive, carrying the last-seen
	// sequence number (or null before the first dispatch).
	OpHeartbeat = 1
	// OpIdentify is the client handshake carrying the credential.
	OpIdentify = 2
	// OpInvalidSession is the remote rejecting the session.
	OpInvalidSession = 9
	// OpHello is the first server message, carrying the heartbeat
	// interval.
	OpHello = 10
	// OpHeartbeatAck acknowledges a client heartbeat.
	OpHeartbeatAck = 11
)

// Dispatch event types the watcher cares about. Every other event
// type is ignored.
const (
	EventReady         = "READY"
	EventChannelUpdate = "CHANNEL_UPDATE"
)

// Payload is the envelope for every gateway message in either
// direction.
type Payload struct {
	Op   int             `json:"op"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

// Hello is the op 10 payload. The interval is in milliseconds.
type Hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// Identify is the op 2 payload.
type Identify struct {
	Token      string             `json:"token"`
	Properties IdentifyProperties `json:"properties"`
	Compress   bool               `json:"compress,omitempty"`
}

// IdentifyProperties describes the connecting client. The values are
// part of the fixed contract the remote expects from a browser-like
// client.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// defaultIdentifyProperties matches what the remote expects from a
// desktop browser session.
func defaultIdentifyProperties() IdentifyProperties {
	return IdentifyProperties{OS: "linux", Browser: "Chrome", Device: "Chrome"}
}

// Channel is the channel object carried by CHANNEL_UPDATE dispatches
// and the ready payload. Only the fields the watcher reads.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// readyPayload is the slice of the READY dispatch the watcher reads:
// the channel lists from which the watched channel's current name can
// be resolved.
type readyPayload struct {
	PrivateChannels []Channel    `json:"private_channels"`
	Guilds          []readyGuild `json:"guilds"`
}

type readyGuild struct {
	Channels []Channel `json:"channels"`
}

// readyChannelName resolves the watched channel's name from a READY
// payload. Returns false when the payload does not mention the
// channel; seeding then waits for the first dispatch or poll result.
func readyChannelName(data json.RawMessage, channelID string) (string, bool) {
	var ready readyPayload
	if err := json.Unmarshal(data, &ready); err != nil {
		return "", false
	}
	for _, channel := range ready.PrivateChannels {
		if channel.ID == channelID {
			return channel.Name, true
		}
	}
	for _, guild := range ready.Guilds {
		for _, channel := range guild.Channels {
			if channel.ID == channelID {
				return channel.Name, true
			}
		}
	}
	return "", false
}

// marshalIdentify builds the op 2 message.
func marshalIdentify(token string, compress bool) ([]byte, error) {
	envelope := struct {
		Op   int      `json:"op"`
		Data Identify `json:"d"`
	}{
		Op: OpIdentify,
		Data: Identify{
			Token:      token,
			Properties: defaultIdentifyProperties(),
			Compress:   compress,
		},
	}
	return json.Marshal(envelope)
}

// marshalHeartbeat builds the op 1 message. A nil seq serializes as
// d: null, which the remote requires before the first dispatch.
func marshalHeartbeat(seq *int64) ([]byte, error) {
	envelope := struct {
		Op   int    `json:"op"`
		Data *int64 `json:"d"`
	}{Op: OpHeartbeat, Data: seq}
	return json.Marshal(envelope)
}
