// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package reconstructor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/models"
	"github.com/tomtom215/streamherald/internal/statestore"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newTestReconstructor(t *testing.T, grace int) *Reconstructor {
	t.Helper()
	states, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("statestore.Open() error: %v", err)
	}
	t.Cleanup(func() { states.Close() })
	return New(states, grace, zerolog.Nop())
}

func peertubeSnap(observed time.Time, live bool, start *time.Time, views int64) models.Snapshot {
	return models.Snapshot{
		SourceID:      "https://tube.example/a/alice/video-channels",
		Platform:      models.PlatformPeerTube,
		ObservedAt:    observed,
		IsLive:        live,
		ReportedStart: start,
		ViewCount:     views,
		Title:         "alice live",
	}
}

func owncastSnap(observed time.Time, live bool, connect, disconnect *time.Time, viewers int64) models.Snapshot {
	return models.Snapshot{
		SourceID:       "https://cast.example",
		Platform:       models.PlatformOwncast,
		ObservedAt:     observed,
		IsLive:         live,
		LastConnect:    connect,
		LastDisconnect: disconnect,
		ViewCount:      viewers,
	}
}

func mustObserve(t *testing.T, r *Reconstructor, snap models.Snapshot) *Observation {
	t.Helper()
	obs, err := r.Observe(snap)
	if err != nil {
		t.Fatalf("Observe() error: %v", err)
	}
	return obs
}

// Live through several polls, then confirmed offline: one session from the
// reported start to the last poll that saw the stream live.
func TestPeerTubeLifecycle(t *testing.T) {
	r := newTestReconstructor(t, 2)
	start := t0.Add(-2 * time.Minute)

	obs := mustObserve(t, r, peertubeSnap(t0, true, &start, 5))
	if !obs.WentLive {
		t.Fatal("first live observation should report WentLive")
	}
	if len(obs.Sessions) != 0 {
		t.Fatalf("no session should complete yet, got %d", len(obs.Sessions))
	}

	obs = mustObserve(t, r, peertubeSnap(t0.Add(5*time.Minute), true, &start, 12))
	if obs.WentLive {
		t.Error("already-live observation must not re-report WentLive")
	}

	obs = mustObserve(t, r, peertubeSnap(t0.Add(10*time.Minute), false, nil, 0))
	if len(obs.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(obs.Sessions))
	}
	sess := obs.Sessions[0]
	if !sess.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want reported start %v", sess.StartTime, start)
	}
	if !sess.EndTime.Equal(t0.Add(5 * time.Minute)) {
		t.Errorf("EndTime = %v, want last confirmed live time", sess.EndTime)
	}
	if sess.ViewCount != 12 {
		t.Errorf("ViewCount = %d, want peak 12", sess.ViewCount)
	}
	if sess.Title != "alice live" {
		t.Errorf("Title = %q", sess.Title)
	}
}

// Poll failures within the grace allowance keep the session open; the poll
// after recovery continues it seamlessly.
func TestGraceRidesOutUnavailableCycles(t *testing.T) {
	r := newTestReconstructor(t, 2)
	start := t0

	mustObserve(t, r, peertubeSnap(t0, true, &start, 1))

	for i := 1; i <= 2; i++ {
		obs, err := r.SourceUnavailable("https://tube.example/a/alice/video-channels")
		if err != nil {
			t.Fatalf("SourceUnavailable() error: %v", err)
		}
		if len(obs.Sessions) != 0 {
			t.Fatalf("failure %d within grace closed the session", i)
		}
	}

	obs := mustObserve(t, r, peertubeSnap(t0.Add(15*time.Minute), true, &start, 3))
	if obs.WentLive {
		t.Error("recovery within grace must not open a second session")
	}

	obs = mustObserve(t, r, peertubeSnap(t0.Add(20*time.Minute), false, nil, 0))
	if len(obs.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(obs.Sessions))
	}
	if !obs.Sessions[0].EndTime.Equal(t0.Add(15 * time.Minute)) {
		t.Errorf("EndTime = %v, want the post-recovery live time", obs.Sessions[0].EndTime)
	}
}

// One failure past the grace allowance closes the session at the last
// confirmed live time.
func TestGraceExhaustedClosesSession(t *testing.T) {
	r := newTestReconstructor(t, 1)
	start := t0

	mustObserve(t, r, peertubeSnap(t0, true, &start, 1))
	mustObserve(t, r, peertubeSnap(t0.Add(5*time.Minute), true, &start, 2))

	if obs, _ := r.SourceUnavailable("https://tube.example/a/alice/video-channels"); len(obs.Sessions) != 0 {
		t.Fatal("first failure is within grace")
	}
	obs, err := r.SourceUnavailable("https://tube.example/a/alice/video-channels")
	if err != nil {
		t.Fatalf("SourceUnavailable() error: %v", err)
	}
	if len(obs.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(obs.Sessions))
	}
	if !obs.Sessions[0].EndTime.Equal(t0.Add(5 * time.Minute)) {
		t.Errorf("EndTime = %v, want last confirmed live time", obs.Sessions[0].EndTime)
	}
}

func TestUnavailableUnknownSourceIsNoop(t *testing.T) {
	r := newTestReconstructor(t, 1)
	obs, err := r.SourceUnavailable("https://never-seen.example")
	if err != nil {
		t.Fatalf("SourceUnavailable() error: %v", err)
	}
	if obs.WentLive || len(obs.Sessions) != 0 {
		t.Errorf("unknown source produced %+v", obs)
	}
}

// Owncast: online throughout, but lastDisconnectTime moved between polls.
// The blip closes the first session at the disconnect and opens a new one
// at the fresh connect time, in a single observation.
func TestOwncastDisconnectChangeMidLive(t *testing.T) {
	r := newTestReconstructor(t, 2)

	connect1 := t0
	oldDisconnect := t0.Add(-2 * time.Hour)
	obs := mustObserve(t, r, owncastSnap(t0.Add(time.Minute), true, &connect1, &oldDisconnect, 4))
	if !obs.WentLive || len(obs.Sessions) != 0 {
		t.Fatalf("first poll: %+v", obs)
	}

	// Stream blipped: disconnected at +10m, reconnected at +11m.
	connect2 := t0.Add(11 * time.Minute)
	disconnect := t0.Add(10 * time.Minute)
	obs = mustObserve(t, r, owncastSnap(t0.Add(12*time.Minute), true, &connect2, &disconnect, 6))
	if len(obs.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1 from the disconnect change", len(obs.Sessions))
	}
	sess := obs.Sessions[0]
	if !sess.StartTime.Equal(connect1) || !sess.EndTime.Equal(disconnect) {
		t.Errorf("session = [%v, %v], want [%v, %v]", sess.StartTime, sess.EndTime, connect1, disconnect)
	}
	if !obs.WentLive {
		t.Error("reconnect should open a new session")
	}
	if obs.State.StartTime == nil || !obs.State.StartTime.Equal(connect2) {
		t.Errorf("new session start = %v, want %v", obs.State.StartTime, connect2)
	}
}

// An unchanged lastDisconnectTime must not re-emit the session it already
// closed.
func TestOwncastStableDisconnectEmitsOnce(t *testing.T) {
	r := newTestReconstructor(t, 2)

	connect := t0
	mustObserve(t, r, owncastSnap(t0.Add(time.Minute), true, &connect, nil, 3))

	disconnect := t0.Add(30 * time.Minute)
	obs := mustObserve(t, r, owncastSnap(t0.Add(31*time.Minute), false, &connect, &disconnect, 0))
	if len(obs.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(obs.Sessions))
	}
	if !obs.Sessions[0].EndTime.Equal(disconnect) {
		t.Errorf("EndTime = %v, want disconnect %v", obs.Sessions[0].EndTime, disconnect)
	}

	// Same status object again on later polls.
	for i := 0; i < 3; i++ {
		obs = mustObserve(t, r, owncastSnap(t0.Add(time.Duration(32+i)*time.Minute), false, &connect, &disconnect, 0))
		if len(obs.Sessions) != 0 {
			t.Fatalf("repeat poll %d re-emitted the session", i)
		}
	}
}

// A disconnect with no reported connect preceding it (Owncast restart
// garbage) is ignored; the session stays open.
func TestOwncastInvertedPairIgnored(t *testing.T) {
	r := newTestReconstructor(t, 2)

	// Went live without the instance reporting a connect time.
	mustObserve(t, r, owncastSnap(t0.Add(time.Minute), true, nil, nil, 1))

	badConnect := t0.Add(20 * time.Minute)
	disconnect := t0.Add(10 * time.Minute)
	obs := mustObserve(t, r, owncastSnap(t0.Add(21*time.Minute), true, &badConnect, &disconnect, 2))
	if len(obs.Sessions) != 0 {
		t.Fatal("inverted pair must not emit a session")
	}
	if !obs.State.Live {
		t.Error("session should remain open")
	}
}

func TestZeroDurationSessionDropped(t *testing.T) {
	r := newTestReconstructor(t, 0)
	start := t0

	// Observed live exactly once, then offline: end == last-seen == t0 but
	// start == t0 as well, so the duration is zero.
	mustObserve(t, r, models.Snapshot{
		SourceID:   "https://tube.example/a/alice/video-channels",
		Platform:   models.PlatformPeerTube,
		ObservedAt: t0,
		IsLive:     true,
		ReportedStart: func() *time.Time {
			s := start
			return &s
		}(),
	})
	obs := mustObserve(t, r, peertubeSnap(t0, false, nil, 0))
	if len(obs.Sessions) != 0 {
		t.Errorf("zero-duration session should be dropped, got %+v", obs.Sessions)
	}
}

// The same snapshot sequence always produces the same sessions.
func TestReconstructionIsDeterministic(t *testing.T) {
	start := t0
	sequence := []models.Snapshot{
		peertubeSnap(t0, true, &start, 1),
		peertubeSnap(t0.Add(5*time.Minute), true, &start, 9),
		peertubeSnap(t0.Add(10*time.Minute), false, nil, 0),
		peertubeSnap(t0.Add(15*time.Minute), true, &start, 2),
		peertubeSnap(t0.Add(20*time.Minute), false, nil, 0),
	}

	run := func() []models.Session {
		r := newTestReconstructor(t, 2)
		var out []models.Session
		for _, snap := range sequence {
			out = append(out, mustObserve(t, r, snap).Sessions...)
		}
		return out
	}

	first := run()
	if len(first) != 2 {
		t.Fatalf("got %d sessions, want 2", len(first))
	}
	for i := 0; i < 3; i++ {
		again := run()
		if len(again) != len(first) {
			t.Fatalf("run %d: %d sessions != %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: session %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

// Restart mid-session: a new reconstructor over the same state store picks
// the session up where the old one left it.
func TestStatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	states, err := statestore.Open(dir)
	if err != nil {
		t.Fatalf("statestore.Open() error: %v", err)
	}
	start := t0.Add(-2 * time.Minute)

	r1 := New(states, 2, zerolog.Nop())
	if obs := mustObserve(t, r1, peertubeSnap(t0, true, &start, 3)); !obs.WentLive {
		t.Fatal("expected WentLive")
	}
	if err := states.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	states, err = statestore.Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer states.Close()

	r2 := New(states, 2, zerolog.Nop())
	obs := mustObserve(t, r2, peertubeSnap(t0.Add(10*time.Minute), false, nil, 0))
	if len(obs.Sessions) != 1 {
		t.Fatalf("got %d sessions after restart, want 1", len(obs.Sessions))
	}
	if !obs.Sessions[0].StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", obs.Sessions[0].StartTime, start)
	}
}
