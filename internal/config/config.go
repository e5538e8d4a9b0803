// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Poller   PollerConfig   `koanf:"poller"`
	Store    StoreConfig    `koanf:"store"`
	Report   ReportConfig   `koanf:"report"`
	Announce AnnounceConfig `koanf:"announce"`
	Mastodon MastodonConfig `koanf:"mastodon"`
	Lemmy    LemmyConfig    `koanf:"lemmy"`
	Handles  HandlesConfig  `koanf:"handles"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// PollerConfig holds polling cadence and source lists.
//
// Environment Variables:
//   - POLL_INTERVAL: time between poll cycles (default: 1h)
//   - POLL_TIMEOUT: per-request timeout (default: 15s)
//   - POLL_GRACE_CYCLES: consecutive unavailable polls tolerated while a
//     source is live before its session is ended (default: 2)
//   - PEERTUBE_CHANNELS / OWNCAST_INSTANCES: comma-separated source URLs
type PollerConfig struct {
	// Interval is the time between poll-and-reconstruct cycles.
	Interval time.Duration `koanf:"interval"`

	// Timeout bounds a single HTTP request to a platform API.
	Timeout time.Duration `koanf:"timeout"`

	// CycleTimeout bounds one full poll cycle. Sources not yet polled when
	// it expires are abandoned for that cycle rather than blocking the next.
	CycleTimeout time.Duration `koanf:"cycle_timeout"`

	// GraceCycles is the number of consecutive Unavailable polls tolerated
	// while a source is LIVE before the session is considered ended.
	// A transient fetch failure is "no information", not "stream ended".
	GraceCycles int `koanf:"grace_cycles"`

	// RatePerSecond and RateBurst feed the shared poll rate limiter.
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`

	// PeerTubeChannels lists account channel URLs in the form
	// https://instance/a/account/video-channels.
	PeerTubeChannels []string `koanf:"peertube_channels"`

	// OwncastInstances lists Owncast instance base URLs.
	OwncastInstances []string `koanf:"owncast_instances"`
}

// StoreConfig holds persistence locations.
type StoreConfig struct {
	// DataDir is the directory for the append-only NDJSON logs.
	DataDir string `koanf:"data_dir"`

	// StateDir is the BadgerDB directory for reconstructor state and the
	// Lemmy outbox. Defaults to <data_dir>/state when empty.
	StateDir string `koanf:"state_dir"`
}

// ReportConfig tunes the ranking and rendering layer.
type ReportConfig struct {
	// MastodonCharBudget bounds a rendered Mastodon post. 475 is a
	// conservative limit under the usual 500-character server cap.
	MastodonCharBudget int `koanf:"mastodon_char_budget"`

	// LemmyCharBudget bounds a rendered Lemmy post body.
	LemmyCharBudget int `koanf:"lemmy_char_budget"`

	// RotationSize is how many recent report choices are excluded from the
	// next random pick.
	RotationSize int `koanf:"rotation_size"`

	// WindowsDays lists the trailing windows reports are computed over.
	WindowsDays []int `koanf:"windows_days"`

	// Cron lists 5-field cron expressions for report publication times.
	Cron []string `koanf:"cron"`

	// ShortestFloor excludes noise sessions from the "shortest" ranking.
	ShortestFloor time.Duration `koanf:"shortest_floor"`

	// TopN caps ranked rows before rendering. 0 means budget-bounded only.
	TopN int `koanf:"top_n"`
}

// AnnounceConfig controls go-live announcement posts.
type AnnounceConfig struct {
	Enabled bool `koanf:"enabled"`

	// Interval is the time between announcement scans.
	Interval time.Duration `koanf:"interval"`
}

// MastodonConfig holds credentials for the status-posting capability.
//
// Environment Variables:
//   - MASTODON_INSTANCE_URL: e.g. https://mastodon.social
//   - MASTODON_ACCESS_TOKEN: an app access token with write:statuses
type MastodonConfig struct {
	Enabled     bool   `koanf:"enabled"`
	InstanceURL string `koanf:"instance_url"`
	AccessToken string `koanf:"access_token"`

	// Visibility for published statuses. Reports are public by design.
	Visibility string `koanf:"visibility"`
}

// LemmyConfig holds credentials for the community-posting capability.
// Posts are enqueued to a durable outbox and drained on DrainInterval,
// tolerating the instance being down at enqueue time.
type LemmyConfig struct {
	Enabled       bool          `koanf:"enabled"`
	InstanceURL   string        `koanf:"instance_url"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	Community     string        `koanf:"community"`
	DrainInterval time.Duration `koanf:"drain_interval"`
}

// HandlesConfig maps source URLs to fediverse display handles.
// Lookups fall back to an explicit unknown value rather than scattering
// absence-tolerant map reads through the renderer.
type HandlesConfig struct {
	Accounts map[string]string `koanf:"accounts"`
	Fallback string            `koanf:"fallback"`
}

// Handle returns the display handle for a source URL, or the fallback.
func (h HandlesConfig) Handle(sourceURL string) string {
	if handle, ok := h.Accounts[sourceURL]; ok && handle != "" {
		return handle
	}
	return h.Fallback
}

// ServerConfig holds the HTTP API server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// validate is shared by Validate calls; validator instances are safe for
// concurrent use and cache struct metadata.
var validate = validator.New()

// Validate checks the configuration for consistency. It is called by Load
// after all layers are merged.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validatePoller,
		c.validateStore,
		c.validateReport,
		c.validatePublishers,
		c.validateServer,
	}

	for _, fn := range validators {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePoller() error {
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive, got %v", c.Poller.Interval)
	}
	if c.Poller.Timeout <= 0 {
		return fmt.Errorf("poller.timeout must be positive, got %v", c.Poller.Timeout)
	}
	if c.Poller.GraceCycles < 0 {
		return fmt.Errorf("poller.grace_cycles must not be negative, got %d", c.Poller.GraceCycles)
	}
	if len(c.Poller.PeerTubeChannels) == 0 && len(c.Poller.OwncastInstances) == 0 {
		return fmt.Errorf("no sources configured: set poller.peertube_channels or poller.owncast_instances")
	}
	for _, u := range c.Poller.PeerTubeChannels {
		if err := validate.Var(u, "required,url"); err != nil {
			return fmt.Errorf("invalid PeerTube channel URL %q: %w", u, err)
		}
	}
	for _, u := range c.Poller.OwncastInstances {
		if err := validate.Var(u, "required,url"); err != nil {
			return fmt.Errorf("invalid Owncast instance URL %q: %w", u, err)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir must not be empty")
	}
	return nil
}

func (c *Config) validateReport() error {
	if c.Report.MastodonCharBudget <= 0 {
		return fmt.Errorf("report.mastodon_char_budget must be positive, got %d", c.Report.MastodonCharBudget)
	}
	if c.Report.LemmyCharBudget <= 0 {
		return fmt.Errorf("report.lemmy_char_budget must be positive, got %d", c.Report.LemmyCharBudget)
	}
	if c.Report.RotationSize < 0 {
		return fmt.Errorf("report.rotation_size must not be negative, got %d", c.Report.RotationSize)
	}
	if len(c.Report.WindowsDays) == 0 {
		return fmt.Errorf("report.windows_days must list at least one window")
	}
	for _, w := range c.Report.WindowsDays {
		if w <= 0 {
			return fmt.Errorf("report.windows_days entries must be positive, got %d", w)
		}
	}
	return nil
}

func (c *Config) validatePublishers() error {
	if c.Mastodon.Enabled {
		if err := validate.Var(c.Mastodon.InstanceURL, "required,url"); err != nil {
			return fmt.Errorf("mastodon.instance_url is invalid: %w", err)
		}
		if c.Mastodon.AccessToken == "" {
			return fmt.Errorf("mastodon.access_token is required when mastodon.enabled is true")
		}
	}
	if c.Lemmy.Enabled {
		if err := validate.Var(c.Lemmy.InstanceURL, "required,url"); err != nil {
			return fmt.Errorf("lemmy.instance_url is invalid: %w", err)
		}
		if c.Lemmy.Username == "" || c.Lemmy.Password == "" {
			return fmt.Errorf("lemmy.username and lemmy.password are required when lemmy.enabled is true")
		}
		if c.Lemmy.Community == "" {
			return fmt.Errorf("lemmy.community is required when lemmy.enabled is true")
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	return nil
}
