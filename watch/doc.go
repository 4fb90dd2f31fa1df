// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch is the core of the dual-mode monitor: the shared
// channel state, the change detector that deduplicates observations
// from both channels, the reconnect backoff policy, and the supervisor
// that keeps the push connection alive indefinitely.
//
// The push and poll clients (packages gateway and restapi) run
// concurrently and independently. Each funnels ObservedName events
// into a single Detector, whose one consumer goroutine is the only
// writer of the channel state. That single queue replaces ad-hoc
// locking: there is exactly one serialization point in the whole core,
// and arrival order at the queue is the tie-break when the two
// channels disagree within the same instant.
package watch
