// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package scheduler

import (
	"testing"
	"time"
)

func mustParseCron(t *testing.T, expr string) *Schedule {
	t.Helper()
	s, err := ParseCron(expr)
	if err != nil {
		t.Fatalf("ParseCron(%q) error: %v", expr, err)
	}
	return s
}

func TestParseCronInvalid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"too few fields", "0 16 * *"},
		{"too many fields", "0 16 * * * *"},
		{"minute out of range", "60 * * * *"},
		{"hour out of range", "0 24 * * *"},
		{"day-of-week out of range", "0 0 * * 8"},
		{"garbage value", "x * * * *"},
		{"inverted range", "30-10 * * * *"},
		{"zero step", "*/0 * * * *"},
		{"negative step", "*/-5 * * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCron(tt.expr); err == nil {
				t.Errorf("ParseCron(%q) should fail", tt.expr)
			}
		})
	}
}

func TestCronNext(t *testing.T) {
	// Wednesday.
	base := time.Date(2026, 3, 4, 15, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "daily at 16:00 same day",
			expr: "0 16 * * *",
			want: time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC),
		},
		{
			name: "daily at 09:00 rolls to next day",
			expr: "0 9 * * *",
			want: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "every 15 minutes",
			expr: "*/15 * * * *",
			want: time.Date(2026, 3, 4, 15, 45, 0, 0, time.UTC),
		},
		{
			name: "two fixed hours picks the sooner",
			expr: "0 16,21 * * *",
			want: time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC),
		},
		{
			name: "next Monday morning",
			expr: "30 9 * * 1",
			want: time.Date(2026, 3, 9, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "sunday as 7",
			expr: "0 12 * * 7",
			want: time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "first of month",
			expr: "0 0 1 * *",
			want: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "hour range",
			expr: "0 9-17 * * *",
			want: time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC),
		},
		{
			name: "stepped range",
			expr: "10-50/20 * * * *",
			want: time.Date(2026, 3, 4, 15, 50, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustParseCron(t, tt.expr)
			got := s.Next(base, time.UTC)
			if !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Standard cron: when both day fields are restricted, either matching
// fires the schedule.
func TestCronDayOfMonthDayOfWeekUnion(t *testing.T) {
	s := mustParseCron(t, "0 12 15 * 1")

	// Friday March 13th; the 15th is a Sunday, so Monday the 16th does
	// not come first.
	base := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	got := s.Next(base, time.UTC)
	want := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next() = %v, want %v (day-of-month branch)", got, want)
	}

	// From just past the 15th the Monday branch fires first.
	got = s.Next(want, time.UTC)
	want = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next() = %v, want %v (day-of-week branch)", got, want)
	}
}

func TestCronNextIsStrictlyAfter(t *testing.T) {
	s := mustParseCron(t, "0 16 * * *")
	at := time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC)

	got := s.Next(at, time.UTC)
	want := at.AddDate(0, 0, 1)
	if !got.Equal(want) {
		t.Errorf("Next() from an exact match = %v, want %v", got, want)
	}
}

func TestCronNextHonorsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	s := mustParseCron(t, "0 16 * * *")
	base := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC) // 13:00 EST

	got := s.Next(base, loc)
	want := time.Date(2026, 3, 4, 16, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}
