// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import "time"

// Source identifies which observation channel produced an event.
type Source int

const (
	// SourcePush marks events from the persistent gateway connection.
	SourcePush Source = iota
	// SourcePoll marks events from the periodic REST poll.
	SourcePoll
)

func (s Source) String() string {
	switch s {
	case SourcePush:
		return "push"
	case SourcePoll:
		return "poll"
	default:
		return "unknown"
	}
}

// ObservedName is a transient observation of the channel's current
// name. Produced by either client, consumed once by the Detector,
// never stored.
type ObservedName struct {
	Name       string
	Source     Source
	ObservedAt time.Time
}

// ChannelState is the last known name of the watched channel. The
// Detector is its single writer; State() returns copies, so readers
// always see a fully-written value.
type ChannelState struct {
	// Name is the last observed channel name. Meaningless until
	// Seeded is true.
	Name string

	// LastUpdated is when the current name was first observed.
	LastUpdated time.Time

	// Seeded reports whether any observation has arrived yet. The
	// first observation on either channel seeds the state without
	// notifying — an empty string is a legitimate channel name for
	// unnamed channels, so a separate flag is needed.
	Seeded bool
}
