// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Namewatch watches a single remote channel for renames and raises a
// desktop alert on every genuine change.
//
// Two independent observation paths feed one change detector: a
// persistent websocket gateway connection pushes rename events as
// they happen, and a fixed-interval REST poll catches anything a
// dropped connection missed. Either path alone keeps the watcher
// working; together they trade latency against robustness.
//
// The gateway connection runs under a reconnect supervisor with
// exponential backoff, so connection churn never surfaces beyond a
// log line. Deduplication lives in the detector: however many times
// the same name arrives, one rename means one alert.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/oliverwilkes/namewatch/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("subcommand required")
	}
	switch args[0] {
	case "run":
		return cmdRun(args[1:])
	case "stop":
		return cmdStop(args[1:])
	case "status":
		return cmdStatus(args[1:])
	case "test":
		return cmdTest(args[1:])
	case "version", "--version":
		fmt.Printf("namewatch %s\n", version.Full())
		return nil
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\nRun 'namewatch --help' for usage.", args[0])
	}
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, `namewatch — remote channel rename watcher

Usage:
  namewatch run [--config FILE] [--daemon] [--verbose]
  namewatch stop
  namewatch status
  namewatch test [--config FILE]
  namewatch version

Commands:
  run      start watching (--daemon detaches into the background)
  stop     terminate the background watcher
  status   report whether the background watcher is running
  test     fire one notification to verify the desktop setup
  version  print version information
`)
}

// newFlagSet returns a flag set that reports errors instead of
// exiting, so run() owns the process exit path.
func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SortFlags = false
	return flags
}
