// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package config loads and validates application configuration with
// Koanf v2: struct defaults, then an optional YAML file, then environment
// variables. See Load for the precedence rules.
package config
