// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// commandRecorder captures host command invocations and returns
// scripted errors per command name.
type commandRecorder struct {
	invocations [][]string
	errors      map[string]error
}

func (r *commandRecorder) run(_ context.Context, name string, args ...string) error {
	r.invocations = append(r.invocations, append([]string{name}, args...))
	return r.errors[name]
}

func TestDesktopNotifyPopupAndSound(t *testing.T) {
	soundPath := filepath.Join(t.TempDir(), "alert.mp3")
	if err := os.WriteFile(soundPath, []byte("mp3"), 0600); err != nil {
		t.Fatalf("writing sound file: %v", err)
	}

	recorder := &commandRecorder{}
	desktop := NewDesktop(soundPath, nil)
	desktop.run = recorder.run

	if err := desktop.Notify(context.Background(), "general-renamed"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(recorder.invocations) != 2 {
		t.Fatalf("got %d command invocations, want 2", len(recorder.invocations))
	}
	if recorder.invocations[0][0] != "notify-send" {
		t.Errorf("first command = %q, want notify-send", recorder.invocations[0][0])
	}
	if !strings.Contains(recorder.invocations[0][2], "general-renamed") {
		t.Errorf("popup body %q does not carry the new name", recorder.invocations[0][2])
	}
	if recorder.invocations[1][0] != "paplay" || recorder.invocations[1][1] != soundPath {
		t.Errorf("second command = %v, want paplay with the sound path", recorder.invocations[1])
	}
}

func TestDesktopNotifySkipsMissingSound(t *testing.T) {
	recorder := &commandRecorder{}
	desktop := NewDesktop(filepath.Join(t.TempDir(), "absent.mp3"), nil)
	desktop.run = recorder.run

	if err := desktop.Notify(context.Background(), "renamed"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(recorder.invocations) != 1 {
		t.Fatalf("got %d command invocations, want popup only", len(recorder.invocations))
	}
}

func TestDesktopNotifyPopupFailure(t *testing.T) {
	recorder := &commandRecorder{errors: map[string]error{
		"notify-send": fmt.Errorf("no display"),
	}}
	desktop := NewDesktop("", nil)
	desktop.run = recorder.run

	if err := desktop.Notify(context.Background(), "renamed"); err == nil {
		t.Fatal("Notify succeeded with a failing popup command")
	}
}

func TestDesktopNotifyToleratesAudioFailure(t *testing.T) {
	soundPath := filepath.Join(t.TempDir(), "alert.mp3")
	if err := os.WriteFile(soundPath, []byte("mp3"), 0600); err != nil {
		t.Fatalf("writing sound file: %v", err)
	}

	recorder := &commandRecorder{errors: map[string]error{
		"paplay": fmt.Errorf("no audio server"),
	}}
	desktop := NewDesktop(soundPath, nil)
	desktop.run = recorder.run

	// Audio failure is logged, not returned — the popup fired.
	if err := desktop.Notify(context.Background(), "renamed"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

func TestResolveSoundPathConfiguredWins(t *testing.T) {
	if got := ResolveSoundPath("/tmp/custom.mp3"); got != "/tmp/custom.mp3" {
		t.Errorf("ResolveSoundPath = %q, want the configured path", got)
	}
}
