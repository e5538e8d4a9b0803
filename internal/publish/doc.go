// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package publish owns the Mastodon surface: the status-posting client,
// and the go-live announcer with its per-session dedup markers. Publishing
// is at-least-once; the marker is recorded only after the instance accepted
// the post.
package publish
