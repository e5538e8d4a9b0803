// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CycleFunc is one scheduled unit of work. A returned error is logged and
// the schedule keeps going; only context cancellation stops a service.
type CycleFunc func(ctx context.Context) error

// IntervalService runs a cycle immediately on start and then on a fixed
// ticker. It implements suture.Service.
type IntervalService struct {
	name     string
	interval time.Duration
	run      CycleFunc
	logger   zerolog.Logger
}

// NewIntervalService creates a ticker-driven service.
func NewIntervalService(name string, interval time.Duration, run CycleFunc, logger zerolog.Logger) *IntervalService {
	return &IntervalService{
		name:     name,
		interval: interval,
		run:      run,
		logger:   logger.With().Str("service", name).Logger(),
	}
}

// Serve runs until ctx is cancelled.
func (s *IntervalService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Cycle service started")

	// Run immediately on start.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Cycle service stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IntervalService) runOnce(ctx context.Context) {
	if err := s.run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("Cycle failed")
	}
}

// String identifies the service in supervisor logs.
func (s *IntervalService) String() string {
	return fmt.Sprintf("scheduler.%s", s.name)
}

// CronService runs a cycle at the firing times of one or more cron
// schedules, evaluated in a fixed location. It implements suture.Service.
type CronService struct {
	name      string
	schedules []*Schedule
	loc       *time.Location
	run       CycleFunc
	logger    zerolog.Logger
}

// NewCronService parses the given cron expressions and creates the
// service. At least one expression is required.
func NewCronService(name string, exprs []string, loc *time.Location, run CycleFunc, logger zerolog.Logger) (*CronService, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("cron service %s: no schedules configured", name)
	}
	schedules := make([]*Schedule, 0, len(exprs))
	for _, expr := range exprs {
		s, err := ParseCron(expr)
		if err != nil {
			return nil, fmt.Errorf("cron service %s: %w", name, err)
		}
		schedules = append(schedules, s)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronService{
		name:      name,
		schedules: schedules,
		loc:       loc,
		run:       run,
		logger:    logger.With().Str("service", name).Logger(),
	}, nil
}

// next returns the soonest firing time across all schedules.
func (s *CronService) next(after time.Time) time.Time {
	var soonest time.Time
	for _, sched := range s.schedules {
		n := sched.Next(after, s.loc)
		if n.IsZero() {
			continue
		}
		if soonest.IsZero() || n.Before(soonest) {
			soonest = n
		}
	}
	return soonest
}

// Serve runs until ctx is cancelled.
func (s *CronService) Serve(ctx context.Context) error {
	s.logger.Info().Int("schedules", len(s.schedules)).Msg("Cron service started")

	for {
		fireAt := s.next(time.Now())
		if fireAt.IsZero() {
			return fmt.Errorf("cron service %s: no future firing time", s.name)
		}
		s.logger.Debug().Time("next", fireAt).Msg("Waiting for next firing")

		timer := time.NewTimer(time.Until(fireAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Cron service stopping")
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Cycle failed")
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CronService) String() string {
	return fmt.Sprintf("scheduler.%s", s.name)
}
