// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package poller observes configured PeerTube channels and Owncast
// instances, producing one snapshot batch per source per cycle.
//
// Every source is polled through its own circuit breaker so a flapping
// instance stops consuming cycle time, and all requests share one rate
// limiter so a long source list does not hammer small instances. A failed
// poll is reported as ErrUnavailable; the distinction between "unreachable"
// and "confirmed offline" belongs to the reconstructor, not here.
package poller
