// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package statestore persists per-source reconstruction state in BadgerDB
// so in-progress live sessions survive process restarts. The NDJSON event
// logs remain the authoritative record of finished sessions; this store
// only carries the transient machine state between polls.
package statestore
