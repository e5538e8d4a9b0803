// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package models defines the shared data model for the polling pipeline:
// snapshots observed by the poller, sessions reconstructed from them,
// canonical events consumed by the ranking engine, and report types.
package models
