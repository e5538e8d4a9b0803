// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package models

import (
	"fmt"
	"time"
)

// Platform identifies the streaming platform family a source belongs to.
//
// The two families differ structurally in how sessions are observed:
//   - PeerTube exposes a list of live videos per account, each carrying a
//     stable publishedAt timestamp and a cumulative view counter.
//   - Owncast exposes a single instance-wide status object with online,
//     lastConnectTime and lastDisconnectTime fields and a concurrent
//     viewer count that resets to zero when offline.
type Platform string

const (
	PlatformPeerTube Platform = "peertube"
	PlatformOwncast  Platform = "owncast"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == PlatformPeerTube || p == PlatformOwncast
}

// Snapshot is a point-in-time observation of one source, produced by the
// poller each cycle. Snapshots are immutable; the raw snapshot log they are
// appended to is advisory, not authoritative.
type Snapshot struct {
	// SourceID is the stable identifier for the source, e.g. the account
	// channel URL for PeerTube or the instance base URL for Owncast.
	SourceID string `json:"source_id"`

	Platform Platform `json:"platform"`

	// ObservedAt is the UTC time the poll happened.
	ObservedAt time.Time `json:"observed_at"`

	IsLive bool `json:"is_live"`

	// ReportedStart is the platform's own claimed session-start timestamp
	// (PeerTube publishedAt). May be absent or stale.
	ReportedStart *time.Time `json:"reported_start,omitempty"`

	// LastConnect and LastDisconnect carry Owncast's own session
	// bookkeeping. Both persist unchanged between polls once a session
	// ends, which is why a *change* in LastDisconnect is the end signal,
	// not the online flag alone.
	LastConnect    *time.Time `json:"last_connect,omitempty"`
	LastDisconnect *time.Time `json:"last_disconnect,omitempty"`

	// ViewCount semantics differ per family: cumulative views for
	// PeerTube, concurrent viewers for Owncast.
	ViewCount int64 `json:"view_count"`

	Title    string `json:"title,omitempty"`
	WatchURL string `json:"watch_url,omitempty"`
}

// Session is a reconstructed live-streaming interval for one source.
// Sessions are immutable once written; the event store's idempotent append
// only supersedes a record when a more complete observation of the same
// underlying session arrives.
type Session struct {
	SourceID  string    `json:"source_id"`
	Platform  Platform  `json:"platform"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// ViewCount is the view or viewer count captured at end time.
	ViewCount int64 `json:"view_count"`

	Title    string `json:"title,omitempty"`
	WatchURL string `json:"watch_url,omitempty"`
}

// Duration returns the session length. Sessions with a non-positive
// duration are dropped by the reconstructor and never stored.
func (s Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// DurationSeconds returns the session length in whole seconds.
func (s Session) DurationSeconds() int64 {
	return int64(s.Duration() / time.Second)
}

// DedupKey returns the natural identity of this session instance.
//
// PeerTube sessions key on the start anchor (publishedAt is stable for the
// lifetime of a live video). Owncast only exposes connect/disconnect
// timestamps that can repeat across platform restarts, so its sessions key
// on the disconnect time instead.
func (s Session) DedupKey() string {
	switch s.Platform {
	case PlatformOwncast:
		return fmt.Sprintf("%s|%d", s.SourceID, s.EndTime.Unix())
	default:
		return fmt.Sprintf("%s|%d", s.SourceID, s.StartTime.Unix())
	}
}

// CanonicalEvent is the aggregator's unified view of a session, independent
// of origin platform. Derived on demand from the event store logs; never
// persisted separately.
type CanonicalEvent struct {
	AccountURL      string    `json:"account_url"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
}

// ReportType enumerates the leaderboard kinds the renderer can produce.
type ReportType string

const (
	ReportLongest      ReportType = "longest"
	ReportShortest     ReportType = "shortest"
	ReportMostViewed   ReportType = "most_viewed"
	ReportMostFrequent ReportType = "most_frequent"
	ReportMostRecent   ReportType = "most_recent"
	ReportTotalTime    ReportType = "total_time"
	ReportShoutout     ReportType = "shoutout"
)

// AllReportTypes lists every report type eligible for rotation.
var AllReportTypes = []ReportType{
	ReportLongest,
	ReportShortest,
	ReportMostViewed,
	ReportMostFrequent,
	ReportMostRecent,
	ReportTotalTime,
	ReportShoutout,
}

// ReportChoice pairs a report type with the trailing window it covers.
// This is the unit the rotation guard tracks: the original bot treated
// "longest this week" and "longest past 24 hours" as distinct picks.
type ReportChoice struct {
	Type       ReportType `json:"type"`
	WindowDays int        `json:"window_days"`
}

// String renders the choice in the form stored in the rotation history log.
func (c ReportChoice) String() string {
	return fmt.Sprintf("%s:%d", c.Type, c.WindowDays)
}

// RankedRow is one leaderboard entry. Value semantics depend on the
// metric: seconds for duration rankings, a view count, a session count,
// or a unix timestamp for recency.
type RankedRow struct {
	AccountURL string `json:"account_url"`
	Value      int64  `json:"value"`
}

// Report is an ephemeral ranking output ready for publication. Only the
// rotation history of choices outlives the publishing cycle.
type Report struct {
	Choice ReportChoice `json:"choice"`
	Rows   []RankedRow  `json:"rows"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text"`
}

// FormatDuration renders seconds as "1h 2m 3s", matching the leaderboard
// post format.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
