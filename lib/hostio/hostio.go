// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostio holds the narrow host I/O helpers shared across the
// watcher: bounded HTTP body reads and atomic state-file writes.
package hostio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxResponseSize caps how many bytes ReadResponse will consume from a
// remote response body. The channel object and gateway error bodies
// are small; anything larger indicates a misbehaving remote.
const MaxResponseSize = 1 << 20 // 1 MiB

// ReadResponse reads an HTTP response body up to MaxResponseSize bytes.
// Replaces the bare io.ReadAll pattern so a hostile or broken remote
// cannot balloon memory.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// WriteFileAtomic writes data to path atomically: write to a temporary
// file in the same directory, fsync, rename into place, then sync the
// parent directory. Readers never see a partial write, and the rename
// survives power loss once the directory sync returns.
//
// The file is created with the given mode. The parent directory must
// already exist.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	// Write, sync, close — in that order. If any step fails, remove
	// the temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming file into place: %w", err)
	}

	if parentDirectory, err := os.Open(filepath.Dir(path)); err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}
