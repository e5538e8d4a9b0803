// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package report turns ranked leaderboard rows into publishable post text
// and rotates which report kind gets posted next.
//
// The renderer owns the post surface: per-type headers and hashtag
// footers, row formatting, and the hard character budget that truncates
// the row list rather than the footer. The picker owns variety: it draws
// the next report choice at random while excluding the last few choices
// recorded in the rotation history log.
package report
