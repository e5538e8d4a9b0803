// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/aggregate"
	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/eventstore"
	"github.com/tomtom215/streamherald/internal/lemmy"
	"github.com/tomtom215/streamherald/internal/metrics"
	"github.com/tomtom215/streamherald/internal/models"
	"github.com/tomtom215/streamherald/internal/poller"
	"github.com/tomtom215/streamherald/internal/publish"
	"github.com/tomtom215/streamherald/internal/ranking"
	"github.com/tomtom215/streamherald/internal/reconstructor"
	"github.com/tomtom215/streamherald/internal/report"
	"github.com/tomtom215/streamherald/internal/statestore"
)

// Pipeline wires the polling, reconstruction, ranking and publishing
// components into the cycles the cycle services run. Cycles never run
// concurrently with themselves; the store serializes writers internally.
type Pipeline struct {
	poller    *poller.Poller
	recon     *reconstructor.Reconstructor
	states    *statestore.Store
	store     *eventstore.Store
	announcer *publish.Announcer
	renderer  *report.Renderer
	picker    *report.Picker
	poster    publish.StatusPoster
	outbox    *lemmy.Outbox
	submitter lemmy.Submitter
	cfg       config.Config
	logger    zerolog.Logger
}

// PipelineDeps carries the constructed components. Publishing fields may
// be nil when the corresponding capability is disabled; the cycles skip
// them.
type PipelineDeps struct {
	Poller        *poller.Poller
	Reconstructor *reconstructor.Reconstructor
	States        *statestore.Store
	Store         *eventstore.Store
	Announcer     *publish.Announcer
	Renderer      *report.Renderer
	Picker        *report.Picker
	Poster        publish.StatusPoster
	Outbox        *lemmy.Outbox
	Submitter     lemmy.Submitter
}

// NewPipeline creates the pipeline.
func NewPipeline(deps PipelineDeps, cfg config.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		poller:    deps.Poller,
		recon:     deps.Reconstructor,
		states:    deps.States,
		store:     deps.Store,
		announcer: deps.Announcer,
		renderer:  deps.Renderer,
		picker:    deps.Picker,
		poster:    deps.Poster,
		outbox:    deps.Outbox,
		submitter: deps.Submitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunPollCycle polls every source, advances the reconstructor, and appends
// completed sessions to the event store.
func (p *Pipeline) RunPollCycle(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObserveCycle("poll", start)

	if p.cfg.Poller.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Poller.CycleTimeout)
		defer cancel()
	}

	var sessions []models.Session
	results := p.poller.Cycle(ctx)
	for _, res := range results {
		obs, err := p.advanceSource(res)
		if err != nil {
			p.logger.Error().Err(err).Str("source", res.SourceID).Msg("State machine update failed")
			continue
		}
		if obs != nil {
			sessions = append(sessions, obs.Sessions...)
		}
	}

	for _, sess := range sessions {
		outcome, err := p.store.AppendIfNew(sess)
		if err != nil {
			return fmt.Errorf("appending session for %s: %w", sess.SourceID, err)
		}
		p.logger.Debug().
			Str("source", sess.SourceID).
			Str("outcome", outcome.String()).
			Msg("Session append")
	}
	if err := p.store.Sync(); err != nil {
		return fmt.Errorf("syncing event store: %w", err)
	}

	p.logger.Info().
		Int("sources", len(results)).
		Int("sessions", len(sessions)).
		Dur("elapsed", time.Since(start)).
		Msg("Poll cycle complete")
	return nil
}

func (p *Pipeline) advanceSource(res poller.Result) (*reconstructor.Observation, error) {
	if res.Err != nil {
		return p.recon.SourceUnavailable(res.SourceID)
	}

	for _, snap := range res.Snapshots {
		if err := p.store.AppendSnapshot(snap); err != nil {
			p.logger.Warn().Err(err).Str("source", snap.SourceID).Msg("Snapshot append failed")
		}
	}

	snap, ok := poller.ReduceToState(res.Snapshots)
	if !ok {
		return nil, nil
	}
	return p.recon.Observe(snap)
}

// RunAnnounceCycle publishes go-live posts for live sources that have not
// been announced yet.
func (p *Pipeline) RunAnnounceCycle(ctx context.Context) error {
	if p.announcer == nil {
		return nil
	}
	start := time.Now()
	defer metrics.ObserveCycle("announce", start)

	states, err := p.states.All()
	if err != nil {
		return fmt.Errorf("listing source states: %w", err)
	}

	var errs []error
	for _, state := range states {
		if !state.Live || state.Announced {
			continue
		}
		posted, err := p.announcer.Announce(ctx, state)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if posted {
			if err := p.recon.MarkAnnounced(state.SourceID); err != nil {
				errs = append(errs, fmt.Errorf("marking %s announced: %w", state.SourceID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// RunReportCycle picks the next report in rotation, ranks the stored
// sessions, and publishes the result to the configured targets.
func (p *Pipeline) RunReportCycle(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObserveCycle("report", start)

	sessions, err := p.store.Sessions()
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}
	events := aggregate.Normalize(sessions, p.logger).Events

	choice, err := p.picker.Pick()
	if err != nil {
		return err
	}

	rows := p.rankForChoice(choice, events, start)
	if len(rows) == 0 {
		p.logger.Info().
			Stringer("choice", choice).
			Msg("No eligible rows for report, skipping publication")
		return nil
	}

	var errs []error
	if p.poster != nil {
		rendered := p.renderer.Render(choice, rows, p.cfg.Report.MastodonCharBudget)
		if err := p.poster.PostStatus(ctx, rendered.Text); err != nil {
			errs = append(errs, fmt.Errorf("posting report to mastodon: %w", err))
		}
	}
	if p.outbox != nil {
		rendered := p.renderer.Render(choice, rows, p.cfg.Report.LemmyCharBudget)
		title := p.renderer.Title(choice, start.UTC())
		if _, err := p.outbox.Enqueue(title, rendered.Text); err != nil {
			errs = append(errs, fmt.Errorf("enqueueing report for lemmy: %w", err))
		}
	}

	p.logger.Info().
		Stringer("choice", choice).
		Int("rows", len(rows)).
		Msg("Report cycle complete")
	return errors.Join(errs...)
}

func (p *Pipeline) rankForChoice(choice models.ReportChoice, events []models.CanonicalEvent, now time.Time) []models.RankedRow {
	if choice.Type == models.ReportShoutout {
		windowStart := now.UTC().AddDate(0, 0, -choice.WindowDays)
		var windowed []models.CanonicalEvent
		for _, e := range events {
			if !e.EndTime.Before(windowStart) && !e.EndTime.After(now.UTC()) {
				windowed = append(windowed, e)
			}
		}
		return p.renderer.ShuffledAccounts(windowed)
	}

	metric, ok := ranking.ForReportType(choice.Type)
	if !ok {
		return nil
	}
	return ranking.Rank(events, metric, ranking.Options{
		Now:              now.UTC(),
		Window:           time.Duration(choice.WindowDays) * 24 * time.Hour,
		TopN:             p.cfg.Report.TopN,
		MinDurationFloor: p.cfg.Report.ShortestFloor,
	})
}

// RunDrainCycle submits pending forum posts.
func (p *Pipeline) RunDrainCycle(ctx context.Context) error {
	if p.outbox == nil || p.submitter == nil {
		return nil
	}
	start := time.Now()
	defer metrics.ObserveCycle("drain", start)

	if err := p.outbox.Drain(ctx, p.submitter); err != nil {
		return fmt.Errorf("draining outbox: %w", err)
	}
	return nil
}

// Store exposes the event store for the API layer.
func (p *Pipeline) Store() *eventstore.Store { return p.store }

// States exposes the state store for the API layer.
func (p *Pipeline) States() *statestore.Store { return p.states }
