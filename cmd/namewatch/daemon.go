// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/oliverwilkes/namewatch/lib/hostio"
)

const (
	pidFileName = "namewatch.pid"
	logFileName = "namewatch.log"
)

// stateDir is where the PID file and daemon log live: next to the
// executable, so multiple installs never fight over one path.
func stateDir() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	return filepath.Dir(executable), nil
}

func pidFilePath() (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pidFileName), nil
}

func writePIDFile(pid int) error {
	path, err := pidFilePath()
	if err != nil {
		return err
	}
	data := []byte(strconv.Itoa(pid) + "\n")
	return hostio.WriteFileAtomic(path, data, 0o644)
}

func readPIDFile() (int, error) {
	path, err := pidFilePath()
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

func removePIDFile() {
	if path, err := pidFilePath(); err == nil {
		os.Remove(path)
	}
}

// processAlive reports whether pid refers to a live process we could
// signal. EPERM means alive but owned by someone else.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// runningPID returns the PID from the PID file if that process is
// still alive. A PID file left behind by a crashed instance is
// cleaned up here.
func runningPID() (int, bool) {
	pid, err := readPIDFile()
	if err != nil {
		return 0, false
	}
	if !processAlive(pid) {
		removePIDFile()
		return 0, false
	}
	return pid, true
}

// daemonize re-executes the current binary detached from the
// terminal, logging to a file next to the executable. The child
// writes its own PID file on startup.
func daemonize(configPath string, verbose bool) error {
	if pid, ok := runningPID(); ok {
		return fmt.Errorf("already running (pid %d)", pid)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if verbose {
		args = append(args, "--verbose")
	}

	logPath := filepath.Join(filepath.Dir(executable), logFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}

	fmt.Printf("started (pid %d), logging to %s\n", cmd.Process.Pid, logPath)
	// The child belongs to its own session now; releasing avoids
	// holding a zombie slot in this short-lived parent.
	return cmd.Process.Release()
}

func cmdStop(args []string) error {
	flags := newFlagSet("stop")
	if err := flags.Parse(args); err != nil {
		return err
	}

	pid, err := readPIDFile()
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("not running")
		return nil
	}
	if err != nil {
		return err
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			removePIDFile()
			fmt.Printf("not running (stale pid file for %d removed)\n", pid)
			return nil
		}
		return fmt.Errorf("signalling pid %d: %w", pid, err)
	}
	fmt.Printf("sent SIGTERM to pid %d\n", pid)
	return nil
}

func cmdStatus(args []string) error {
	flags := newFlagSet("status")
	if err := flags.Parse(args); err != nil {
		return err
	}

	pid, ok := runningPID()
	if !ok {
		fmt.Println("not running")
		return nil
	}
	uptime, err := processUptime(pid)
	if err != nil {
		fmt.Printf("running (pid %d)\n", pid)
		return nil
	}
	fmt.Printf("running (pid %d, up %s)\n", pid, uptime.Round(time.Second))
	return nil
}

// userHz is the kernel's USER_HZ, the unit of the starttime field in
// /proc/<pid>/stat. Fixed at 100 on Linux regardless of the actual
// timer frequency.
const userHz = 100

// processUptime computes how long pid has been running from its
// start time relative to system boot.
func processUptime(pid int) (time.Duration, error) {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	startTicks, err := parseStartTicks(stat)
	if err != nil {
		return 0, err
	}

	uptimeData, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, err
	}
	uptimeFields := strings.Fields(string(uptimeData))
	if len(uptimeFields) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime")
	}
	systemUptime, err := strconv.ParseFloat(uptimeFields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing /proc/uptime: %w", err)
	}

	started := float64(startTicks) / userHz
	return time.Duration((systemUptime - started) * float64(time.Second)), nil
}

// parseStartTicks extracts the starttime field (field 22) from a
// /proc/<pid>/stat line. The comm field may contain spaces and
// parentheses, so fields are counted from the last ')'.
func parseStartTicks(stat []byte) (uint64, error) {
	end := bytes.LastIndexByte(stat, ')')
	if end < 0 {
		return 0, fmt.Errorf("malformed stat line")
	}
	fields := strings.Fields(string(stat[end+1:]))
	// fields[0] is process state (field 3); starttime is field 22.
	const startTimeIndex = 22 - 3
	if len(fields) <= startTimeIndex {
		return 0, fmt.Errorf("short stat line (%d fields after comm)", len(fields))
	}
	return strconv.ParseUint(fields[startTimeIndex], 10, 64)
}
