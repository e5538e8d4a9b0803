// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package ranking

import (
	"testing"
	"time"

	"github.com/tomtom215/streamherald/internal/models"
)

var rankNow = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

// event builds a canonical event ending `age` before rankNow.
func event(account string, age, duration time.Duration, views int64) models.CanonicalEvent {
	end := rankNow.Add(-age)
	return models.CanonicalEvent{
		AccountURL:      account,
		StartTime:       end.Add(-duration),
		EndTime:         end,
		DurationSeconds: int64(duration / time.Second),
		ViewCount:       views,
	}
}

func weekOpts() Options {
	return Options{
		Now:              rankNow,
		Window:           7 * 24 * time.Hour,
		MinDurationFloor: 15 * time.Minute,
	}
}

func TestWindowFilter(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, time.Hour, 1),
		event("https://b.example", 8*24*time.Hour, time.Hour, 1), // outside window
		{
			// End in the future stays out of the window too.
			AccountURL:      "https://c.example",
			StartTime:       rankNow,
			EndTime:         rankNow.Add(time.Hour),
			DurationSeconds: 3600,
		},
	}

	rows := Rank(events, MaxDuration, weekOpts())
	if len(rows) != 1 {
		t.Fatalf("Rank() returned %d rows, want 1", len(rows))
	}
	if rows[0].AccountURL != "https://a.example" {
		t.Errorf("rows[0].AccountURL = %q", rows[0].AccountURL)
	}
}

func TestMaxDurationReducesPerAccount(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, 30*time.Minute, 0),
		event("https://a.example", 2*time.Hour, 2*time.Hour, 0),
		event("https://b.example", time.Hour, time.Hour, 0),
	}

	rows := Rank(events, MaxDuration, weekOpts())
	if len(rows) != 2 {
		t.Fatalf("Rank() returned %d rows, want 2", len(rows))
	}
	if rows[0].AccountURL != "https://a.example" || rows[0].Value != 7200 {
		t.Errorf("rows[0] = %+v, want a.example at 7200s", rows[0])
	}
	if rows[1].AccountURL != "https://b.example" || rows[1].Value != 3600 {
		t.Errorf("rows[1] = %+v, want b.example at 3600s", rows[1])
	}
}

// Sessions below the 15-minute floor are excluded from the shortest ranking
// entirely, not just sorted last.
func TestMinDurationFloorExcludes(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, 10*time.Minute, 0), // below floor
		event("https://a.example", 2*time.Hour, 40*time.Minute, 0),
		event("https://b.example", time.Hour, 20*time.Minute, 0),
		event("https://c.example", time.Hour, 5*time.Minute, 0), // only noise sessions
	}

	rows := Rank(events, MinDuration, weekOpts())
	if len(rows) != 2 {
		t.Fatalf("Rank() returned %d rows, want 2", len(rows))
	}
	// Ascending: b (20m) before a (40m); a's 10-minute session must not win.
	if rows[0].AccountURL != "https://b.example" || rows[0].Value != 1200 {
		t.Errorf("rows[0] = %+v, want b.example at 1200s", rows[0])
	}
	if rows[1].AccountURL != "https://a.example" || rows[1].Value != 2400 {
		t.Errorf("rows[1] = %+v, want a.example at 2400s", rows[1])
	}
	for _, row := range rows {
		if row.AccountURL == "https://c.example" {
			t.Error("account with only sub-floor sessions should be excluded")
		}
	}
}

func TestSessionCount(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, time.Hour, 0),
		event("https://a.example", 2*time.Hour, time.Hour, 0),
		event("https://a.example", 3*time.Hour, time.Hour, 0),
		event("https://b.example", time.Hour, time.Hour, 0),
	}

	rows := Rank(events, SessionCount, weekOpts())
	if rows[0].AccountURL != "https://a.example" || rows[0].Value != 3 {
		t.Errorf("rows[0] = %+v, want a.example with 3", rows[0])
	}
}

func TestTotalDuration(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, time.Hour, 0),
		event("https://a.example", 2*time.Hour, 30*time.Minute, 0),
		event("https://b.example", time.Hour, 2*time.Hour, 0),
	}

	rows := Rank(events, TotalDuration, weekOpts())
	if rows[0].AccountURL != "https://b.example" || rows[0].Value != 7200 {
		t.Errorf("rows[0] = %+v, want b.example at 7200s", rows[0])
	}
	if rows[1].Value != 5400 {
		t.Errorf("rows[1].Value = %d, want 5400", rows[1].Value)
	}
}

func TestMostRecentOneEntryPerAccount(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", 3*time.Hour, time.Hour, 0),
		event("https://a.example", time.Hour, time.Hour, 0),
		event("https://b.example", 2*time.Hour, time.Hour, 0),
	}

	rows := Rank(events, MostRecent, weekOpts())
	if len(rows) != 2 {
		t.Fatalf("Rank() returned %d rows, want 2", len(rows))
	}
	if rows[0].AccountURL != "https://a.example" {
		t.Errorf("rows[0].AccountURL = %q, want a.example", rows[0].AccountURL)
	}
	if want := rankNow.Add(-time.Hour).Unix(); rows[0].Value != want {
		t.Errorf("rows[0].Value = %d, want %d", rows[0].Value, want)
	}
}

func TestMaxViews(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, time.Hour, 10),
		event("https://a.example", 2*time.Hour, time.Hour, 50),
		event("https://b.example", time.Hour, time.Hour, 30),
	}

	rows := Rank(events, MaxViews, weekOpts())
	if rows[0].AccountURL != "https://a.example" || rows[0].Value != 50 {
		t.Errorf("rows[0] = %+v, want a.example at 50 views", rows[0])
	}
}

func TestTieBreakByAccountURL(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://zeta.example", time.Hour, time.Hour, 0),
		event("https://alpha.example", 2*time.Hour, time.Hour, 0),
	}

	rows := Rank(events, MaxDuration, weekOpts())
	if rows[0].AccountURL != "https://alpha.example" {
		t.Errorf("tie should break lexically: rows[0] = %q", rows[0].AccountURL)
	}
}

func TestTopNCap(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, 3*time.Hour, 0),
		event("https://b.example", time.Hour, 2*time.Hour, 0),
		event("https://c.example", time.Hour, time.Hour, 0),
	}

	opts := weekOpts()
	opts.TopN = 2
	rows := Rank(events, MaxDuration, opts)
	if len(rows) != 2 {
		t.Fatalf("Rank() returned %d rows, want 2", len(rows))
	}
	if rows[0].AccountURL != "https://a.example" || rows[1].AccountURL != "https://b.example" {
		t.Errorf("TopN kept wrong rows: %+v", rows)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	events := []models.CanonicalEvent{
		event("https://a.example", time.Hour, time.Hour, 0),
		event("https://b.example", time.Hour, time.Hour, 0),
		event("https://c.example", 2*time.Hour, 2*time.Hour, 0),
	}

	first := Rank(events, MaxDuration, weekOpts())
	for i := 0; i < 10; i++ {
		again := Rank(events, MaxDuration, weekOpts())
		if len(again) != len(first) {
			t.Fatalf("run %d: length %d != %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: row %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestForReportType(t *testing.T) {
	tests := []struct {
		name   string
		report models.ReportType
		want   Metric
		ok     bool
	}{
		{name: "longest", report: models.ReportLongest, want: MaxDuration, ok: true},
		{name: "shortest", report: models.ReportShortest, want: MinDuration, ok: true},
		{name: "most viewed", report: models.ReportMostViewed, want: MaxViews, ok: true},
		{name: "most frequent", report: models.ReportMostFrequent, want: SessionCount, ok: true},
		{name: "most recent", report: models.ReportMostRecent, want: MostRecent, ok: true},
		{name: "total time", report: models.ReportTotalTime, want: TotalDuration, ok: true},
		{name: "shoutout has no metric", report: models.ReportShoutout, want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ForReportType(tt.report)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ForReportType(%s) = %v, %v; want %v, %v", tt.report, got, ok, tt.want, tt.ok)
			}
		})
	}
}
