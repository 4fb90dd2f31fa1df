// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads watcher configuration from an optional YAML
// file plus environment variables. The file supplies defaults for a
// machine; the environment supplies the credential and channel, which
// should never live in a checked-in file.
//
// Precedence, lowest to highest: built-in defaults, config file,
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration
// strings ("1.5s", "250ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds everything the watcher needs at startup. The core
// treats these values as immutable once loaded.
type Config struct {
	// Token is the static credential presented on both channels.
	Token string `yaml:"token"`

	// ChannelID identifies the watched channel.
	ChannelID string `yaml:"channel_id"`

	// GatewayURL is the websocket push gateway endpoint.
	GatewayURL string `yaml:"gateway_url"`

	// APIBaseURL is the REST endpoint base used by the poll channel.
	APIBaseURL string `yaml:"api_base_url"`

	// PollInterval is the fixed period between REST fetches.
	PollInterval Duration `yaml:"poll_interval"`

	// HeartbeatInterval is the keepalive period used when the gateway
	// hello does not specify one.
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	// SoundPath is the audio file played on a name change. Empty means
	// search next to the executable; a missing file disables audio.
	SoundPath string `yaml:"sound_path"`

	// Compress asks the gateway to zlib-compress large push payloads.
	Compress bool `yaml:"compress"`
}

// Default returns the built-in configuration. The poll interval stays
// comfortably under the REST rate limit; the heartbeat fallback
// matches the interval the gateway typically assigns.
func Default() *Config {
	return &Config{
		GatewayURL:        "wss://gateway.discord.gg/?v=9&encoding=json",
		APIBaseURL:        "https://discord.com/api/v9",
		PollInterval:      Duration(1500 * time.Millisecond),
		HeartbeatInterval: Duration(41250 * time.Millisecond),
	}
}

// Load builds the effective configuration. path may be empty, in which
// case only defaults and environment variables apply. A non-empty path
// that does not exist is an error — a requested config file must load.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// applyEnvironment overlays environment variables onto the config.
// The credential variables keep the names the original deployment
// used; the tunables are namespaced.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("NAMEWATCH_TOKEN"); v != "" {
		c.Token = v
	}
	// The original deployment's variable name wins when both are set.
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		c.ChannelID = v
	}
	if v := os.Getenv("SOUND_PATH"); v != "" {
		c.SoundPath = v
	}
	if v := os.Getenv("NAMEWATCH_GATEWAY_URL"); v != "" {
		c.GatewayURL = v
	}
	if v := os.Getenv("NAMEWATCH_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("NAMEWATCH_POLL_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.PollInterval = Duration(parsed)
		}
	}
	if v := os.Getenv("NAMEWATCH_HEARTBEAT_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.HeartbeatInterval = Duration(parsed)
		}
	}
	if v := os.Getenv("NAMEWATCH_COMPRESS"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Compress = parsed
		}
	}
}

// Validate checks the configuration for errors. A failure here is
// fatal at startup: monitoring without a credential or channel is
// meaningless, and no monitoring task starts before this passes.
func (c *Config) Validate() error {
	var errs []error

	if c.Token == "" {
		errs = append(errs, fmt.Errorf("token is required (set DISCORD_TOKEN or token in the config file)"))
	}
	if c.ChannelID == "" {
		errs = append(errs, fmt.Errorf("channel ID is required (set CHANNEL_ID or channel_id in the config file)"))
	}
	if c.GatewayURL == "" {
		errs = append(errs, fmt.Errorf("gateway_url is required"))
	}
	if c.APIBaseURL == "" {
		errs = append(errs, fmt.Errorf("api_base_url is required"))
	}
	if c.PollInterval.Std() <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive"))
	}
	if c.HeartbeatInterval.Std() <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat_interval must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
