// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/streamherald/internal/models"
)

// PeerTubeClient polls one PeerTube account channel for live videos.
//
// The tracked source is identified by its channel URL in the form
// https://instance/a/account/video-channels; the account's video list is
// fetched from /api/v1/accounts/{account}/videos newest-first.
type PeerTubeClient struct {
	channelURL string
	instance   string
	account    string
	httpClient *http.Client
}

// peertubeVideo is the subset of the PeerTube video object the poller
// reads. Views are cumulative for the lifetime of the video.
type peertubeVideo struct {
	ID          int64     `json:"id"`
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	IsLive      bool      `json:"isLive"`
	Views       int64     `json:"views"`
	PublishedAt time.Time `json:"publishedAt"`
}

type peertubeVideoList struct {
	Total int64           `json:"total"`
	Data  []peertubeVideo `json:"data"`
}

// NewPeerTubeClient creates a client for one channel URL.
func NewPeerTubeClient(channelURL string, httpClient *http.Client) (*PeerTubeClient, error) {
	channelURL = strings.TrimSuffix(channelURL, "/")

	u, err := url.Parse(channelURL)
	if err != nil {
		return nil, fmt.Errorf("parsing channel URL %q: %w", channelURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("channel URL %q must be absolute", channelURL)
	}

	// Expected path: /a/{account} or /a/{account}/video-channels.
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "a" || parts[1] == "" {
		return nil, fmt.Errorf("channel URL %q: path must look like /a/{account}/video-channels", channelURL)
	}

	return &PeerTubeClient{
		channelURL: channelURL,
		instance:   u.Scheme + "://" + u.Host,
		account:    parts[1],
		httpClient: httpClient,
	}, nil
}

// SourceID returns the configured channel URL.
func (c *PeerTubeClient) SourceID() string { return c.channelURL }

// Platform returns peertube.
func (c *PeerTubeClient) Platform() models.Platform { return models.PlatformPeerTube }

// Poll fetches the account's videos and returns one live snapshot per live
// video, or a single offline snapshot when none are live.
func (c *PeerTubeClient) Poll(ctx context.Context) ([]models.Snapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/videos?sort=-publishedAt&count=30", c.instance, url.PathEscape(c.account))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building videos request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.channelURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, c.channelURL, resp.StatusCode)
	}

	var list peertubeVideoList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decoding videos for %s: %v", ErrUnavailable, c.channelURL, err)
	}

	observed := time.Now().UTC()
	var snapshots []models.Snapshot
	for _, video := range list.Data {
		if !video.IsLive {
			continue
		}
		published := video.PublishedAt
		snapshots = append(snapshots, models.Snapshot{
			SourceID:      c.channelURL,
			Platform:      models.PlatformPeerTube,
			ObservedAt:    observed,
			IsLive:        true,
			ReportedStart: &published,
			ViewCount:     video.Views,
			Title:         video.Name,
			WatchURL:      fmt.Sprintf("%s/videos/watch/%s", c.instance, video.UUID),
		})
	}

	if len(snapshots) == 0 {
		snapshots = append(snapshots, models.Snapshot{
			SourceID:   c.channelURL,
			Platform:   models.PlatformPeerTube,
			ObservedAt: observed,
		})
	}
	return snapshots, nil
}
