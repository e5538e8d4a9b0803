// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
// Supported syntax per field: "*", "n", "n-m", "a,b,c", "*/s", "n-m/s".
// Day-of-week accepts 0-7 with both 0 and 7 meaning Sunday. As in standard
// cron, when day-of-month and day-of-week are both restricted, either one
// matching is sufficient.
type Schedule struct {
	minutes uint64
	hours   uint64
	dom     uint64
	months  uint64
	dow     uint64

	domAny bool
	dowAny bool
}

// ParseCron parses expr into a Schedule.
//
// Examples:
//   - "0 16 * * *"  - daily at 16:00
//   - "30 9 * * 1"  - Mondays at 09:30
//   - "*/15 * * * *" - every 15 minutes
func ParseCron(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression %q must have 5 fields, got %d", expr, len(fields))
	}

	var s Schedule
	var err error

	if s.minutes, err = parseCronField(fields[0], 0, 59); err != nil {
		return nil, fmt.Errorf("minute field: %w", err)
	}
	if s.hours, err = parseCronField(fields[1], 0, 23); err != nil {
		return nil, fmt.Errorf("hour field: %w", err)
	}
	if s.dom, err = parseCronField(fields[2], 1, 31); err != nil {
		return nil, fmt.Errorf("day-of-month field: %w", err)
	}
	if s.months, err = parseCronField(fields[3], 1, 12); err != nil {
		return nil, fmt.Errorf("month field: %w", err)
	}
	if s.dow, err = parseCronField(fields[4], 0, 7); err != nil {
		return nil, fmt.Errorf("day-of-week field: %w", err)
	}

	// 7 is an alias for Sunday.
	if s.dow&(1<<7) != 0 {
		s.dow = (s.dow &^ (1 << 7)) | 1
	}

	s.domAny = fields[2] == "*"
	s.dowAny = fields[4] == "*"
	return &s, nil
}

// Next returns the first time strictly after `after` that matches the
// schedule, evaluated in loc (UTC when nil). The zero time is returned if
// nothing matches within four years, which cannot happen for a valid
// expression.
func (s *Schedule) Next(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Truncate(time.Minute).Add(time.Minute)

	limit := 4 * 366 * 24 * 60
	for i := 0; i < limit; i++ {
		if s.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

func (s *Schedule) matches(t time.Time) bool {
	if s.minutes&(1<<t.Minute()) == 0 {
		return false
	}
	if s.hours&(1<<t.Hour()) == 0 {
		return false
	}
	if s.months&(1<<int(t.Month())) == 0 {
		return false
	}

	domMatch := s.dom&(1<<t.Day()) != 0
	dowMatch := s.dow&(1<<int(t.Weekday())) != 0

	switch {
	case s.domAny && s.dowAny:
		return true
	case s.domAny:
		return dowMatch
	case s.dowAny:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// parseCronField parses one field into a bitmask of allowed values.
func parseCronField(field string, minVal, maxVal int) (uint64, error) {
	var mask uint64
	for _, part := range strings.Split(field, ",") {
		m, err := parseCronPart(part, minVal, maxVal)
		if err != nil {
			return 0, err
		}
		mask |= m
	}
	return mask, nil
}

func parseCronPart(part string, minVal, maxVal int) (uint64, error) {
	step := 1
	if base, stepStr, found := strings.Cut(part, "/"); found {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid step %q", stepStr)
		}
		step = n
		part = base
		// "n/s" means "n-max/s".
		if part != "*" && !strings.Contains(part, "-") {
			start, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", part)
			}
			part = fmt.Sprintf("%d-%d", start, maxVal)
		}
	}

	lo, hi := minVal, maxVal
	switch {
	case part == "*":
	case strings.Contains(part, "-"):
		loStr, hiStr, _ := strings.Cut(part, "-")
		var err error
		if lo, err = strconv.Atoi(loStr); err != nil {
			return 0, fmt.Errorf("invalid range start %q", loStr)
		}
		if hi, err = strconv.Atoi(hiStr); err != nil {
			return 0, fmt.Errorf("invalid range end %q", hiStr)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", part)
		}
		lo, hi = v, v
	}

	if lo > hi || lo < minVal || hi > maxVal {
		return 0, fmt.Errorf("range %d-%d out of bounds %d-%d", lo, hi, minVal, maxVal)
	}

	var mask uint64
	for v := lo; v <= hi; v += step {
		mask |= 1 << v
	}
	return mask, nil
}
