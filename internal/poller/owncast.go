// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package poller

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/streamherald/internal/models"
)

// OwncastClient polls one Owncast instance's status endpoint.
type OwncastClient struct {
	baseURL    string
	httpClient *http.Client
}

// owncastStatus is the /api/status payload. The connect/disconnect
// timestamps persist unchanged between sessions; Owncast serializes absent
// values as null or the empty string depending on version.
type owncastStatus struct {
	Online             bool   `json:"online"`
	ViewerCount        int64  `json:"viewerCount"`
	StreamTitle        string `json:"streamTitle"`
	LastConnectTime    string `json:"lastConnectTime"`
	LastDisconnectTime string `json:"lastDisconnectTime"`
}

// NewOwncastClient creates a client for one instance base URL.
func NewOwncastClient(instanceURL string, httpClient *http.Client) *OwncastClient {
	return &OwncastClient{
		baseURL:    strings.TrimSuffix(instanceURL, "/"),
		httpClient: httpClient,
	}
}

// SourceID returns the instance base URL without a trailing slash.
func (c *OwncastClient) SourceID() string { return c.baseURL }

// Platform returns owncast.
func (c *OwncastClient) Platform() models.Platform { return models.PlatformOwncast }

// Poll fetches the instance status and returns exactly one snapshot.
func (c *OwncastClient) Poll(ctx context.Context) ([]models.Snapshot, error) {
	endpoint := c.baseURL + "/api/status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, c.baseURL, resp.StatusCode)
	}

	var status owncastStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: decoding status for %s: %v", ErrUnavailable, c.baseURL, err)
	}

	snap := models.Snapshot{
		SourceID:       c.baseURL,
		Platform:       models.PlatformOwncast,
		ObservedAt:     time.Now().UTC(),
		IsLive:         status.Online,
		ViewCount:      status.ViewerCount,
		Title:          status.StreamTitle,
		WatchURL:       c.baseURL,
		LastConnect:    parseOwncastTime(status.LastConnectTime),
		LastDisconnect: parseOwncastTime(status.LastDisconnectTime),
	}
	return []models.Snapshot{snap}, nil
}

// parseOwncastTime parses Owncast's RFC 3339 timestamps, tolerating the
// empty, "null" and zero-time encodings older instances emit.
func parseOwncastTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.IsZero() || t.Unix() <= 0 {
		return nil
	}
	t = t.UTC()
	return &t
}
