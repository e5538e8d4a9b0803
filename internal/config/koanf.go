// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/streamherald/config.yaml",
	"/etc/streamherald/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Poller: PollerConfig{
			Interval:      time.Hour,
			Timeout:       15 * time.Second,
			CycleTimeout:  5 * time.Minute,
			GraceCycles:   2,
			RatePerSecond: 2,
			RateBurst:     4,
		},
		Store: StoreConfig{
			DataDir: "/data/streamherald",
			StateDir: "", // <data_dir>/state
		},
		Report: ReportConfig{
			MastodonCharBudget: 475,
			LemmyCharBudget:    1500,
			RotationSize:       3,
			WindowsDays:        []int{7, 1},
			Cron:               []string{"0 16 * * *", "0 21 * * *"},
			ShortestFloor:      15 * time.Minute,
			TopN:               0,
		},
		Announce: AnnounceConfig{
			Enabled:  false, // Opt-in: needs Mastodon credentials
			Interval: 45 * time.Minute,
		},
		Mastodon: MastodonConfig{
			Enabled:    false,
			Visibility: "public",
		},
		Lemmy: LemmyConfig{
			Enabled:       false,
			Community:     "fedistream",
			DrainInterval: 15 * time.Minute,
		},
		Handles: HandlesConfig{
			Accounts: map[string]string{},
			Fallback: "@unknown",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3858,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// POLL_INTERVAL -> poller.interval, MASTODON_ACCESS_TOKEN -> mastodon.access_token
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Store.StateDir == "" {
		cfg.Store.StateDir = cfg.Store.DataDir + "/state"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"poller.peertube_channels",
	"poller.owncast_instances",
	"report.cron",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - POLL_INTERVAL -> poller.interval
//   - PEERTUBE_CHANNELS -> poller.peertube_channels
//   - MASTODON_ACCESS_TOKEN -> mastodon.access_token
//   - LEMMY_COMMUNITY -> lemmy.community
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Poller
		"poll_interval":      "poller.interval",
		"poll_timeout":       "poller.timeout",
		"poll_cycle_timeout": "poller.cycle_timeout",
		"poll_grace_cycles":  "poller.grace_cycles",
		"peertube_channels":  "poller.peertube_channels",
		"owncast_instances":  "poller.owncast_instances",

		// Store
		"data_dir":  "store.data_dir",
		"state_dir": "store.state_dir",

		// Report
		"report_rotation_size": "report.rotation_size",
		"report_cron":          "report.cron",

		// Announce
		"announce_enabled":  "announce.enabled",
		"announce_interval": "announce.interval",

		// Mastodon
		"mastodon_enabled":      "mastodon.enabled",
		"mastodon_instance_url": "mastodon.instance_url",
		"mastodon_access_token": "mastodon.access_token",

		// Lemmy
		"lemmy_enabled":        "lemmy.enabled",
		"lemmy_instance_url":   "lemmy.instance_url",
		"lemmy_username":       "lemmy.username",
		"lemmy_password":       "lemmy.password",
		"lemmy_community":      "lemmy.community",
		"lemmy_drain_interval": "lemmy.drain_interval",

		// Server
		"http_host": "server.host",
		"http_port": "server.port",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped variables are ignored rather than guessed at; returning the
	// empty string drops the key.
	return ""
}
