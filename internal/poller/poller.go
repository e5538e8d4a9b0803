// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package poller

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/metrics"
	"github.com/tomtom215/streamherald/internal/models"
)

// ErrUnavailable marks a poll that yielded no information about the source:
// network failure, non-2xx status, or an unparseable body. Callers must not
// treat it as "the stream ended".
var ErrUnavailable = errors.New("source unavailable")

// Client polls one source.
type Client interface {
	SourceID() string
	Platform() models.Platform
	Poll(ctx context.Context) ([]models.Snapshot, error)
}

// Result is the outcome of polling one source in a cycle. Err is non-nil
// iff the poll yielded no snapshots.
type Result struct {
	SourceID  string
	Platform  models.Platform
	Snapshots []models.Snapshot
	Err       error
}

// Poller drives all configured source clients through a shared rate limiter
// and per-source circuit breakers.
type Poller struct {
	clients  []Client
	breakers map[string]*gobreaker.CircuitBreaker[[]models.Snapshot]
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   zerolog.Logger
}

// New creates a poller over clients.
func New(clients []Client, cfg config.PollerConfig, logger zerolog.Logger) *Poller {
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker[[]models.Snapshot], len(clients))
	for _, c := range clients {
		sourceID := c.SourceID()
		breakers[sourceID] = gobreaker.NewCircuitBreaker[[]models.Snapshot](gobreaker.Settings{
			Name:        sourceID,
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     5 * time.Minute,

			// Poll volumes are one request per source per cycle, so trip on
			// a short run of consecutive failures rather than a rate.
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},

			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().
					Str("source", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Poll circuit breaker state change")
			},
		})
	}

	return &Poller{
		clients:  clients,
		breakers: breakers,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Cycle polls every source once, sequentially. A source failure never
// aborts the cycle for the remaining sources; an expired ctx abandons the
// sources not yet polled.
func (p *Poller) Cycle(ctx context.Context) []Result {
	results := make([]Result, 0, len(p.clients))

	for _, client := range p.clients {
		res := Result{SourceID: client.SourceID(), Platform: client.Platform()}

		if err := p.limiter.Wait(ctx); err != nil {
			res.Err = ctx.Err()
			results = append(results, res)
			continue
		}

		res.Snapshots, res.Err = p.pollOne(ctx, client)
		results = append(results, res)
	}
	return results
}

func (p *Poller) pollOne(ctx context.Context, client Client) ([]models.Snapshot, error) {
	start := time.Now()
	platform := string(client.Platform())

	snapshots, err := p.breakers[client.SourceID()].Execute(func() ([]models.Snapshot, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return client.Poll(callCtx)
	})
	metrics.PollDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.PollsTotal.WithLabelValues(platform, "rejected").Inc()
		} else {
			metrics.PollsTotal.WithLabelValues(platform, "failure").Inc()
		}
		p.logger.Warn().
			Err(err).
			Str("source", client.SourceID()).
			Msg("Poll failed")
		if !errors.Is(err, ErrUnavailable) {
			err = errors.Join(ErrUnavailable, err)
		}
		return nil, err
	}

	metrics.PollsTotal.WithLabelValues(platform, "success").Inc()
	for _, snap := range snapshots {
		live := "false"
		if snap.IsLive {
			live = "true"
		}
		metrics.SnapshotsObserved.WithLabelValues(platform, live).Inc()
	}
	return snapshots, nil
}

// ReduceToState collapses a source's snapshot batch to the single
// observation the state machine consumes: the live snapshot with the most
// recent reported start when any video is live, the first snapshot
// otherwise. PeerTube accounts occasionally list several live videos;
// session reconstruction tracks the newest one.
func ReduceToState(snapshots []models.Snapshot) (models.Snapshot, bool) {
	if len(snapshots) == 0 {
		return models.Snapshot{}, false
	}

	best := snapshots[0]
	for _, snap := range snapshots[1:] {
		if !snap.IsLive {
			continue
		}
		if !best.IsLive {
			best = snap
			continue
		}
		if snap.ReportedStart != nil &&
			(best.ReportedStart == nil || snap.ReportedStart.After(*best.ReportedStart)) {
			best = snap
		}
	}
	return best, true
}
