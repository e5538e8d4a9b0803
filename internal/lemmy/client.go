// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package lemmy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/metrics"
)

// Client posts to one Lemmy community. Authentication is a JWT obtained
// from username/password login; the token and resolved community ID are
// cached until a request is rejected.
type Client struct {
	baseURL    string
	username   string
	password   string
	community  string
	httpClient *http.Client

	jwt         string
	communityID int64
}

// NewClient creates a client from configuration.
func NewClient(cfg config.LemmyConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.InstanceURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		community:  cfg.Community,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

type communityResponse struct {
	CommunityView struct {
		Community struct {
			ID int64 `json:"id"`
		} `json:"community"`
	} `json:"community_view"`
}

// login obtains a fresh JWT.
func (c *Client) login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username_or_email": c.username,
		"password":          c.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/user/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lemmy login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lemmy login returned status %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if lr.JWT == "" {
		return fmt.Errorf("lemmy login returned no token")
	}
	c.jwt = lr.JWT
	return nil
}

// resolveCommunity looks up the configured community's numeric ID.
func (c *Client) resolveCommunity(ctx context.Context) error {
	endpoint := c.baseURL + "/api/v3/community?name=" + url.QueryEscape(c.community)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building community request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lemmy community lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lemmy community lookup returned status %d", resp.StatusCode)
	}

	var cr communityResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fmt.Errorf("decoding community response: %w", err)
	}
	if cr.CommunityView.Community.ID == 0 {
		return fmt.Errorf("community %q not found", c.community)
	}
	c.communityID = cr.CommunityView.Community.ID
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.jwt == "" {
		if err := c.login(ctx); err != nil {
			return err
		}
	}
	if c.communityID == 0 {
		if err := c.resolveCommunity(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Submit publishes one post. An expired token is refreshed and the post
// retried once.
func (c *Client) Submit(ctx context.Context, title, body string) error {
	if err := c.ensureSession(ctx); err != nil {
		metrics.PublishesTotal.WithLabelValues("lemmy", "failure").Inc()
		return err
	}

	status, err := c.submitOnce(ctx, title, body)
	if err == nil && status == http.StatusUnauthorized {
		c.jwt = ""
		if err = c.login(ctx); err == nil {
			status, err = c.submitOnce(ctx, title, body)
		}
	}
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("lemmy post returned status %d", status)
	}
	if err != nil {
		metrics.PublishesTotal.WithLabelValues("lemmy", "failure").Inc()
		return err
	}

	metrics.PublishesTotal.WithLabelValues("lemmy", "success").Inc()
	return nil
}

func (c *Client) submitOnce(ctx context.Context, title, body string) (int, error) {
	payload, err := json.Marshal(map[string]any{
		"name":         title,
		"community_id": c.communityID,
		"body":         body,
		"nsfw":         false,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/post", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("lemmy post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}
