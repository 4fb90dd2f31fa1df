// Copyright 2026 The Namewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package restapi reads channel metadata over the HTTP API. It is the
// pull half of the watcher: where the gateway pushes updates, this
// package asks for the current state, both to seed the watcher at
// startup and to catch renames a dropped connection missed.
package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oliverwilkes/namewatch/lib/hostio"
)

// userAgent matches a desktop browser session, consistent with the
// identify the gateway connection presents.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// APIError is a structured error response from the HTTP API.
// Retrieve it with errors.As to branch on the status code.
type APIError struct {
	StatusCode int

	// Code and Message come from the error body when the API sent
	// one. Code is the API's own error code, not the HTTP status.
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsNotFound reports whether err is an APIError for a missing
// resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://discord.com/api/v9".
	BaseURL string

	// Token is the credential sent in the Authorization header.
	Token string

	// HTTPClient is the underlying transport. If nil,
	// http.DefaultClient is used; per-request deadlines come from the
	// caller's context.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client fetches channel state from the HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// channelResponse is the slice of the channel object the watcher
// reads.
type channelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChannelName fetches the channel's current name.
func (c *Client) ChannelName(ctx context.Context, channelID string) (string, error) {
	url := fmt.Sprintf("%s/channels/%s", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building channel request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching channel %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	body, err := hostio.ReadResponse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading channel response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// The error body is best-effort: some failures (proxies,
		// rate limiters) are not JSON at all.
		_ = json.Unmarshal(body, apiErr)
		return "", apiErr
	}

	var channel channelResponse
	if err := json.Unmarshal(body, &channel); err != nil {
		return "", fmt.Errorf("decoding channel %s: %w", channelID, err)
	}
	return channel.Name, nil
}
