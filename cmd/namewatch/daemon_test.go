// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"testing"
	"time"
)

func TestParseStartTicks(t *testing.T) {
	// Field 22 (starttime) is 1826 here; the comm field contains both
	// spaces and a ')' to exercise the last-paren scan.
	stat := []byte("4242 (weird name)) S 1 4242 4242 0 -1 4194560 1000 0 0 0 10 20 0 0 20 0 1 0 1826 1234567 100 18446744073709551615")
	ticks, err := parseStartTicks(stat)
	if err != nil {
		t.Fatal(err)
	}
	if ticks != 1826 {
		t.Errorf("start ticks = %d, want 1826", ticks)
	}
}

func TestParseStartTicksRejectsMalformed(t *testing.T) {
	if _, err := parseStartTicks([]byte("no parens here")); err == nil {
		t.Error("stat line without comm accepted")
	}
	if _, err := parseStartTicks([]byte("1 (x) S 2 3")); err == nil {
		t.Error("truncated stat line accepted")
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("own process reported dead")
	}
	// PIDs above the kernel's pid_max cannot exist.
	if processAlive(1 << 26) {
		t.Error("impossible pid reported alive")
	}
}

func TestProcessUptimeForSelf(t *testing.T) {
	uptime, err := processUptime(os.Getpid())
	if err != nil {
		t.Fatal(err)
	}
	if uptime < 0 || uptime > 24*time.Hour {
		t.Errorf("uptime = %v, want a plausible test-process lifetime", uptime)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	// The PID file lives next to the executable, which for a test
	// binary is a scratch directory.
	if err := writePIDFile(4242); err != nil {
		t.Fatal(err)
	}
	defer removePIDFile()

	pid, err := readPIDFile()
	if err != nil {
		t.Fatal(err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}
}

func TestRunningPIDCleansStaleFile(t *testing.T) {
	if err := writePIDFile(1 << 26); err != nil {
		t.Fatal(err)
	}
	defer removePIDFile()

	if pid, ok := runningPID(); ok {
		t.Fatalf("stale pid %d reported running", pid)
	}
	path, err := pidFilePath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale pid file not removed")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run([]string{"frobnicate"})
	if err == nil {
		t.Fatal("unknown command accepted")
	}
	want := fmt.Sprintf("unknown command %q", "frobnicate")
	if got := err.Error(); len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("error = %q, want prefix %q", got, want)
	}
}
