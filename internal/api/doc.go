// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package api serves the read-only HTTP surface: health, reconstructed
// sessions, current source states, on-demand leaderboard previews, and
// the report rotation history, plus Prometheus metrics on /metrics.
// Everything is derived from the append-only logs at request time; the
// API has no write endpoints.
package api
