// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package metrics exposes Prometheus collectors for the pipeline.
// All collectors are registered with the default registry via promauto
// and served on /metrics by the API server.
package metrics
