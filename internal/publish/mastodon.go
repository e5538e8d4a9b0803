// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/metrics"
)

// StatusPoster publishes one status text. Implemented by MastodonClient;
// tests substitute a recorder.
type StatusPoster interface {
	PostStatus(ctx context.Context, text string) error
}

// MastodonClient posts statuses through the Mastodon REST API.
type MastodonClient struct {
	baseURL     string
	accessToken string
	visibility  string
	httpClient  *http.Client
}

// NewMastodonClient creates a client from configuration.
func NewMastodonClient(cfg config.MastodonConfig) *MastodonClient {
	visibility := cfg.Visibility
	if visibility == "" {
		visibility = "public"
	}
	return &MastodonClient{
		baseURL:     strings.TrimSuffix(cfg.InstanceURL, "/"),
		accessToken: cfg.AccessToken,
		visibility:  visibility,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PostStatus publishes text as a new status.
func (c *MastodonClient) PostStatus(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("status", text)
	form.Set("visibility", c.visibility)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/statuses", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PublishesTotal.WithLabelValues("mastodon", "failure").Inc()
		return fmt.Errorf("posting status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PublishesTotal.WithLabelValues("mastodon", "failure").Inc()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
		if readErr != nil {
			return fmt.Errorf("mastodon returned status %d (failed to read body)", resp.StatusCode)
		}
		return fmt.Errorf("mastodon returned status %d: %s", resp.StatusCode, string(body))
	}

	metrics.PublishesTotal.WithLabelValues("mastodon", "success").Inc()
	return nil
}
