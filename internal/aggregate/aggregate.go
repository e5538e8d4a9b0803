// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package aggregate merges heterogeneous per-platform session records into
// the canonical event shape consumed by the ranking engine. Normalization
// is a pure function over the event store's rows.
package aggregate

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/models"
)

// Result carries the normalized events plus a count of rows dropped for
// unusable timestamps. Dropped rows are a diagnostic, never fatal.
type Result struct {
	Events  []models.CanonicalEvent
	Dropped int
}

// Normalize maps stored sessions into canonical events.
//
// PeerTube rows anchor on publishedAt/retrieval time with a cumulative view
// count; Owncast rows anchor on connect/disconnect with a concurrent viewer
// count. Both arrive here as models.Session, so the remaining work is
// validating timestamps and recomputing durations that upstream did not
// supply.
func Normalize(sessions []models.Session, logger zerolog.Logger) Result {
	events := make([]models.CanonicalEvent, 0, len(sessions))
	dropped := 0

	for _, sess := range sessions {
		if sess.StartTime.IsZero() || sess.EndTime.IsZero() {
			dropped++
			continue
		}
		duration := sess.DurationSeconds()
		if duration <= 0 {
			dropped++
			continue
		}
		events = append(events, models.CanonicalEvent{
			AccountURL:      sess.SourceID,
			StartTime:       sess.StartTime.UTC(),
			EndTime:         sess.EndTime.UTC(),
			DurationSeconds: duration,
			ViewCount:       sess.ViewCount,
		})
	}

	if dropped > 0 {
		logger.Warn().
			Int("dropped", dropped).
			Int("kept", len(events)).
			Msg("Dropped session rows with unusable timestamps")
	}
	return Result{Events: events, Dropped: dropped}
}
