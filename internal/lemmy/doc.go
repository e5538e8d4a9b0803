// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package lemmy publishes leaderboard posts to a Lemmy community through a
// durable outbox. Report rendering enqueues; a scheduled drain logs in,
// resolves the community once, and submits pending entries oldest-first,
// so an unreachable instance delays posts instead of losing them.
package lemmy
