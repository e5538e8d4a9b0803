// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package ranking computes time-windowed leaderboards over canonical
// events. Reduction happens per account before cross-account sorting, and
// ties are broken by account URL ascending so results are deterministic
// regardless of store scan order.
package ranking

import (
	"sort"
	"time"

	"github.com/tomtom215/streamherald/internal/models"
)

// Metric selects the leaderboard computation.
type Metric string

const (
	// MaxDuration ranks accounts by their single longest session, descending.
	MaxDuration Metric = "max_duration_desc"

	// MinDuration ranks accounts by their single shortest session at or
	// above the floor, ascending. Sessions below the floor are excluded
	// entirely, not sorted last.
	MinDuration Metric = "min_duration_asc"

	// MaxViews ranks accounts by their highest observed view count, descending.
	MaxViews Metric = "max_viewcount_desc"

	// SessionCount ranks accounts by number of sessions, descending.
	SessionCount Metric = "session_count_desc"

	// MostRecent ranks accounts by their latest session end, newest first.
	// One entry per account; row values are unix timestamps.
	MostRecent Metric = "most_recent_desc"

	// TotalDuration ranks accounts by summed session time, descending.
	TotalDuration Metric = "total_duration_desc"
)

// ForReportType maps a report type to its metric. The shoutout report has
// no metric; it shuffles accounts instead of ranking them.
func ForReportType(t models.ReportType) (Metric, bool) {
	switch t {
	case models.ReportLongest:
		return MaxDuration, true
	case models.ReportShortest:
		return MinDuration, true
	case models.ReportMostViewed:
		return MaxViews, true
	case models.ReportMostFrequent:
		return SessionCount, true
	case models.ReportMostRecent:
		return MostRecent, true
	case models.ReportTotalTime:
		return TotalDuration, true
	default:
		return "", false
	}
}

// Options bound a ranking computation.
type Options struct {
	// Now is the window's end; events are in-window iff
	// Now-Window <= end_time <= Now.
	Now time.Time

	// Window is the trailing range length.
	Window time.Duration

	// TopN caps the result length. 0 means no cap.
	TopN int

	// MinDurationFloor excludes noise sessions from the MinDuration
	// metric. Ignored by other metrics.
	MinDurationFloor time.Duration
}

// Rank computes the leaderboard for metric over events.
func Rank(events []models.CanonicalEvent, metric Metric, opts Options) []models.RankedRow {
	windowStart := opts.Now.Add(-opts.Window)

	// Reduction state per account, tracked in first-appearance order so the
	// pre-sort ordering is itself deterministic.
	type reduction struct {
		value int64
		count int64
		seen  bool
	}
	byAccount := make(map[string]*reduction)
	var order []string

	get := func(account string) *reduction {
		r, ok := byAccount[account]
		if !ok {
			r = &reduction{}
			byAccount[account] = r
			order = append(order, account)
		}
		return r
	}

	for _, e := range events {
		if e.EndTime.Before(windowStart) || e.EndTime.After(opts.Now) {
			continue
		}

		switch metric {
		case MaxDuration:
			r := get(e.AccountURL)
			if !r.seen || e.DurationSeconds > r.value {
				r.value = e.DurationSeconds
			}
			r.seen = true
		case MinDuration:
			if e.DurationSeconds < int64(opts.MinDurationFloor/time.Second) {
				continue
			}
			r := get(e.AccountURL)
			if !r.seen || e.DurationSeconds < r.value {
				r.value = e.DurationSeconds
			}
			r.seen = true
		case MaxViews:
			r := get(e.AccountURL)
			if !r.seen || e.ViewCount > r.value {
				r.value = e.ViewCount
			}
			r.seen = true
		case SessionCount:
			r := get(e.AccountURL)
			r.count++
			r.value = r.count
			r.seen = true
		case MostRecent:
			r := get(e.AccountURL)
			if ts := e.EndTime.Unix(); !r.seen || ts > r.value {
				r.value = ts
			}
			r.seen = true
		case TotalDuration:
			r := get(e.AccountURL)
			r.value += e.DurationSeconds
			r.seen = true
		}
	}

	rows := make([]models.RankedRow, 0, len(order))
	for _, account := range order {
		rows = append(rows, models.RankedRow{AccountURL: account, Value: byAccount[account].value})
	}

	ascending := metric == MinDuration
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			if ascending {
				return rows[i].Value < rows[j].Value
			}
			return rows[i].Value > rows[j].Value
		}
		return rows[i].AccountURL < rows[j].AccountURL
	})

	if opts.TopN > 0 && len(rows) > opts.TopN {
		rows = rows[:opts.TopN]
	}
	return rows
}
