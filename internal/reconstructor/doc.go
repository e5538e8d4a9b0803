// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package reconstructor folds per-cycle poll snapshots into completed
// stream sessions.
//
// Each source runs an idle/live state machine. PeerTube sources anchor on
// the platform's reported publish time and close when a poll confirms the
// stream gone; Owncast sources additionally close on any movement of the
// instance's lastDisconnectTime, which catches blips shorter than the poll
// interval. Poll failures are distinct from confirmed-offline: a live
// session rides out a configurable number of consecutive failures before
// closing at the last confirmed live time.
package reconstructor
