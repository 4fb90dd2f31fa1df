// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify raises local alerts when the watched channel is
// renamed. The watcher core only sees the Sink interface; the desktop
// implementation shells out to the host's notification and audio
// tools. Alert failures are reported to the caller for logging but
// must never stop monitoring.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Sink receives a name-change alert. Implementations must be safe for
// sequential reuse; the detector calls Notify from a single goroutine.
type Sink interface {
	// Notify raises a visual and/or audio alert for the new name.
	// Returns an error when the underlying mechanism is unavailable.
	Notify(ctx context.Context, newName string) error
}

// defaultSoundFile is the audio file searched next to the executable
// when no sound path is configured.
const defaultSoundFile = "boom.mp3"

// Desktop is a Sink that shows a notify-send popup and plays a sound
// through paplay. Audio is skipped silently when the sound file does
// not exist; the popup alone still counts as a delivered alert.
type Desktop struct {
	soundPath string
	logger    *slog.Logger

	// run executes a host command. Swapped out in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewDesktop creates a desktop notifier. soundPath may be empty, in
// which case the default sound file is searched next to the
// executable. logger may be nil, in which case slog.Default() is used.
func NewDesktop(soundPath string, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Desktop{
		soundPath: ResolveSoundPath(soundPath),
		logger:    logger,
		run:       runCommand,
	}
}

// Notify shows the popup, then plays the alert sound if one is
// available. A popup failure is returned as an error; an audio
// failure is only logged, since the visual alert already fired.
func (d *Desktop) Notify(ctx context.Context, newName string) error {
	body := fmt.Sprintf("Channel is now: %s", newName)
	if err := d.run(ctx, "notify-send", "Channel renamed", body); err != nil {
		return fmt.Errorf("notify: showing popup: %w", err)
	}

	if d.soundPath == "" {
		return nil
	}
	if _, err := os.Stat(d.soundPath); err != nil {
		d.logger.Debug("alert sound file missing, skipping audio", "path", d.soundPath)
		return nil
	}
	if err := d.run(ctx, "paplay", d.soundPath); err != nil {
		d.logger.Warn("alert sound playback failed", "path", d.soundPath, "error", err)
	}
	return nil
}

// ResolveSoundPath returns the configured path when set, otherwise
// searches for the default sound file next to the executable and one
// directory above it (covering both installed and build-tree layouts).
// Returns "" when nothing is found; audio is then disabled.
func ResolveSoundPath(configured string) string {
	if configured != "" {
		return configured
	}

	executable, err := os.Executable()
	if err != nil {
		return defaultSoundFile
	}
	directory := filepath.Dir(executable)
	for _, candidate := range []string{
		filepath.Join(directory, defaultSoundFile),
		filepath.Join(filepath.Dir(directory), defaultSoundFile),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return defaultSoundFile
}

func runCommand(ctx context.Context, name string, args ...string) error {
	command := exec.CommandContext(ctx, name, args...)
	if output, err := command.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w (output: %s)", name, err, output)
	}
	return nil
}
