// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes build-time version information, populated
// via -ldflags at release build time.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at build time. Defaults identify a from-source
// development build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info returns a one-line version string.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Full returns detailed version information including the Go runtime.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
