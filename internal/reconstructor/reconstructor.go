// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package reconstructor

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/metrics"
	"github.com/tomtom215/streamherald/internal/models"
	"github.com/tomtom215/streamherald/internal/statestore"
)

// Observation is the outcome of feeding one snapshot (or one poll failure)
// through the state machine.
type Observation struct {
	// WentLive is set when this observation moved the source from idle to
	// live. The publishing layer uses it to trigger a go-live announcement.
	WentLive bool

	// State is the post-observation source state.
	State *statestore.SourceState

	// Sessions holds any sessions completed by this observation. Owncast
	// can complete one session and immediately open the next in a single
	// observation when the stream blipped between polls.
	Sessions []models.Session
}

// Reconstructor folds poll snapshots into completed sessions. All state
// lives in the persistent store, so a restart resumes in-progress sessions
// instead of fabricating or losing them.
//
// Methods are not safe for concurrent use; the scheduler serializes cycles.
type Reconstructor struct {
	states *statestore.Store
	grace  int
	logger zerolog.Logger
}

// New creates a reconstructor. grace is the number of consecutive
// unavailable poll cycles tolerated while a source is live before its
// session is closed at the last confirmed live time.
func New(states *statestore.Store, grace int, logger zerolog.Logger) *Reconstructor {
	if grace < 0 {
		grace = 0
	}
	return &Reconstructor{states: states, grace: grace, logger: logger}
}

// Observe advances the state machine with a successful poll snapshot.
func (r *Reconstructor) Observe(snap models.Snapshot) (*Observation, error) {
	state, err := r.states.Get(snap.SourceID)
	if errors.Is(err, statestore.ErrNotFound) {
		state = &statestore.SourceState{SourceID: snap.SourceID, Platform: snap.Platform}
	} else if err != nil {
		return nil, fmt.Errorf("loading state for %s: %w", snap.SourceID, err)
	}

	obs := &Observation{State: state}

	// A lastDisconnectTime change is Owncast's end-of-session signal; it
	// fires whether the poll found the source back online or not.
	if snap.Platform == models.PlatformOwncast {
		r.applyDisconnect(snap, state, obs)
	}

	if snap.IsLive {
		r.observeLive(snap, state, obs)
	} else {
		r.observeOffline(snap, state, obs)
	}

	if err := r.states.Put(state); err != nil {
		return nil, fmt.Errorf("saving state for %s: %w", snap.SourceID, err)
	}
	return obs, nil
}

// applyDisconnect closes the in-progress Owncast session when the reported
// lastDisconnectTime has moved. The disconnect is only trusted when it is
// paired with an earlier connect time; Owncast reports stale or inverted
// pairs around restarts.
func (r *Reconstructor) applyDisconnect(snap models.Snapshot, state *statestore.SourceState, obs *Observation) {
	if snap.LastDisconnect == nil {
		return
	}
	if state.LastDisconnect != nil && state.LastDisconnect.Equal(*snap.LastDisconnect) {
		return
	}

	state.LastDisconnect = snap.LastDisconnect

	if !state.Live || state.StartTime == nil {
		return
	}

	// The disconnect must pair with a reported connect that precedes it.
	// After a blip the payload's connect already belongs to the next
	// session, so the previous poll's connect counts too.
	end := *snap.LastDisconnect
	connect := state.LastConnect
	if snap.LastConnect != nil && snap.LastConnect.Before(end) {
		connect = snap.LastConnect
	}
	if connect == nil || !connect.Before(end) {
		r.logger.Warn().
			Str("source", snap.SourceID).
			Time("disconnect", end).
			Msg("Ignoring disconnect with no valid preceding connect")
		return
	}
	if end.After(*state.StartTime) {
		r.emit(state, end, obs)
	}
}

func (r *Reconstructor) observeLive(snap models.Snapshot, state *statestore.SourceState, obs *Observation) {
	if snap.LastConnect != nil {
		state.LastConnect = snap.LastConnect
	}

	if !state.Live {
		start := sessionStart(snap)
		state.Live = true
		state.StartTime = &start
		state.MissedCycles = 0
		state.MaxViewers = snap.ViewCount
		state.Announced = false
		obs.WentLive = true
		metrics.SourcesLive.Inc()
		r.logger.Info().
			Str("source", snap.SourceID).
			Str("platform", string(snap.Platform)).
			Time("start", start).
			Msg("Source went live")
	}

	state.LastSeenLiveAt = snap.ObservedAt
	state.MissedCycles = 0
	if snap.ViewCount > state.MaxViewers {
		state.MaxViewers = snap.ViewCount
	}
	if snap.Title != "" {
		state.Title = snap.Title
	}
	if snap.WatchURL != "" {
		state.WatchURL = snap.WatchURL
	}
}

func (r *Reconstructor) observeOffline(snap models.Snapshot, state *statestore.SourceState, obs *Observation) {
	if !state.Live {
		return
	}
	// A confirmed offline poll ends the session at the last confirmed live
	// time, unless a disconnect signal already closed it above.
	r.emit(state, state.LastSeenLiveAt, obs)
}

// SourceUnavailable advances the state machine when a poll for the source
// failed. Live sessions survive up to the grace allowance of consecutive
// failures; past it the session closes at the last confirmed live time.
func (r *Reconstructor) SourceUnavailable(sourceID string) (*Observation, error) {
	state, err := r.states.Get(sourceID)
	if errors.Is(err, statestore.ErrNotFound) {
		return &Observation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading state for %s: %w", sourceID, err)
	}

	obs := &Observation{State: state}
	if !state.Live {
		return obs, nil
	}

	state.MissedCycles++
	if state.MissedCycles > r.grace {
		r.logger.Warn().
			Str("source", sourceID).
			Int("missed_cycles", state.MissedCycles).
			Msg("Grace exhausted, closing session at last confirmed live time")
		r.emit(state, state.LastSeenLiveAt, obs)
	}

	if err := r.states.Put(state); err != nil {
		return nil, fmt.Errorf("saving state for %s: %w", sourceID, err)
	}
	return obs, nil
}

// MarkAnnounced records that the go-live announcement for the current
// session was published.
func (r *Reconstructor) MarkAnnounced(sourceID string) error {
	state, err := r.states.Get(sourceID)
	if err != nil {
		return err
	}
	state.Announced = true
	return r.states.Put(state)
}

// emit finishes the in-progress session at end and resets the source to
// idle. Zero and negative durations are dropped, not stored.
func (r *Reconstructor) emit(state *statestore.SourceState, end time.Time, obs *Observation) {
	start := state.StartTime

	state.Live = false
	state.StartTime = nil
	state.MissedCycles = 0
	metrics.SourcesLive.Dec()

	if start == nil || !end.After(*start) {
		metrics.SessionsDropped.WithLabelValues(string(state.Platform), "non_positive_duration").Inc()
		r.logger.Warn().
			Str("source", state.SourceID).
			Time("end", end).
			Msg("Dropped session with non-positive duration")
		return
	}

	sess := models.Session{
		SourceID:  state.SourceID,
		Platform:  state.Platform,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		ViewCount: state.MaxViewers,
		Title:     state.Title,
		WatchURL:  state.WatchURL,
	}
	obs.Sessions = append(obs.Sessions, sess)
	metrics.SessionsEmitted.WithLabelValues(string(state.Platform)).Inc()
	r.logger.Info().
		Str("source", state.SourceID).
		Str("platform", string(state.Platform)).
		Int64("duration_seconds", sess.DurationSeconds()).
		Msg("Session completed")
}

// sessionStart anchors a new session: the platform's reported start when
// available, otherwise the observation time.
func sessionStart(snap models.Snapshot) time.Time {
	switch snap.Platform {
	case models.PlatformPeerTube:
		if snap.ReportedStart != nil {
			return *snap.ReportedStart
		}
	case models.PlatformOwncast:
		if snap.LastConnect != nil {
			return *snap.LastConnect
		}
	}
	return snap.ObservedAt
}
