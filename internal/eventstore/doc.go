// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package eventstore persists the pipeline's durable state as append-only
// newline-delimited JSON logs: raw snapshots, reconstructed sessions (one
// log per platform family), published markers, and rotation history.
//
// Appends are atomic per record and logs tolerate malformed or truncated
// trailing rows on scan. Session appends are idempotent, keyed by the
// session's natural dedup key.
package eventstore
