// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package eventstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/metrics"
	"github.com/tomtom215/streamherald/internal/models"
)

// AppendResult reports the outcome of an idempotent session append.
type AppendResult int

const (
	// Inserted means the dedup key was new and the session was stored.
	Inserted AppendResult = iota
	// Updated means the key existed but the incoming record carried a
	// strictly later end time, superseding the stored one.
	Updated
	// Skipped means the key existed with an equal-or-later end time.
	Skipped
)

// String returns the lower-case label used in logs and metrics.
func (r AppendResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Marker records that a publish for a given identity has succeeded at least
// once. Markers are never deleted; identifiers are finite and volume is low.
type Marker struct {
	Key      string    `json:"key"`
	PostedAt time.Time `json:"posted_at"`
}

// rotationEntry is one row of the rotation history log.
type rotationEntry struct {
	Choice   string    `json:"choice"`
	ChosenAt time.Time `json:"chosen_at"`
}

// Store owns the append-only logs: raw snapshots (advisory), one session
// log per platform family, published markers, and rotation history.
//
// A single writer mutex serializes session appends so the dedup index and
// the log cannot diverge. Cycles run one at a time, so contention is rare,
// but parallel pollers stay safe.
type Store struct {
	snapshots    *Log
	peertube     *Log
	owncast      *Log
	markers      *Log
	rotation     *Log
	logger       zerolog.Logger

	mu      sync.Mutex
	index   map[string]time.Time // dedup key -> latest stored end time
	markSet map[string]struct{}
}

// Open initializes the store in dataDir, creating it if needed, and builds
// the dedup and marker indexes from the existing logs.
func Open(dataDir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logs := map[string]**Log{}
	s := &Store{
		logger:  logger.With().Str("component", "eventstore").Logger(),
		index:   make(map[string]time.Time),
		markSet: make(map[string]struct{}),
	}
	logs["snapshots"] = &s.snapshots
	logs["sessions_peertube"] = &s.peertube
	logs["sessions_owncast"] = &s.owncast
	logs["markers"] = &s.markers
	logs["rotation"] = &s.rotation

	for name, dst := range logs {
		l, err := OpenLog(name, filepath.Join(dataDir, name+".ndjson"))
		if err != nil {
			s.Close()
			return nil, err
		}
		*dst = l
	}

	if err := s.buildIndexes(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// buildIndexes replays the session and marker logs into memory.
func (s *Store) buildIndexes() error {
	scan := func(l *Log) error {
		return ScanInto(l, func(sess models.Session) error {
			key := sess.DedupKey()
			if prev, ok := s.index[key]; !ok || sess.EndTime.After(prev) {
				s.index[key] = sess.EndTime
			}
			return nil
		})
	}
	if err := scan(s.peertube); err != nil {
		return err
	}
	if err := scan(s.owncast); err != nil {
		return err
	}

	return ScanInto(s.markers, func(m Marker) error {
		s.markSet[m.Key] = struct{}{}
		return nil
	})
}

// Close closes all logs. Safe to call on a partially opened store.
func (s *Store) Close() error {
	var firstErr error
	for _, l := range []*Log{s.snapshots, s.peertube, s.owncast, s.markers, s.rotation} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AppendSnapshot appends a raw snapshot to the advisory log. Failures are
// reported but snapshots are debug data; callers treat errors as non-fatal.
func (s *Store) AppendSnapshot(snap models.Snapshot) error {
	if err := s.snapshots.Append(snap); err != nil {
		metrics.StoreAppends.WithLabelValues("snapshots", "error").Inc()
		return err
	}
	metrics.StoreAppends.WithLabelValues("snapshots", "inserted").Inc()
	return nil
}

// sessionLog picks the per-family log for a session.
func (s *Store) sessionLog(platform models.Platform) *Log {
	if platform == models.PlatformOwncast {
		return s.owncast
	}
	return s.peertube
}

// AppendIfNew appends a session unless an equal-or-more-complete record for
// the same dedup key is already stored.
//
// Inserted: key unseen. Updated: incoming end time strictly later than the
// stored one (a re-observation completed the session). Skipped: stored
// record is already equal or more complete. The log itself stays
// append-only; supersession happens at read time in Sessions.
func (s *Store) AppendIfNew(sess models.Session) (AppendResult, error) {
	key := sess.DedupKey()
	logName := "sessions_" + string(sess.Platform)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.index[key]
	if exists && !sess.EndTime.After(prev) {
		metrics.StoreAppends.WithLabelValues(logName, "skipped").Inc()
		return Skipped, nil
	}

	if err := s.sessionLog(sess.Platform).Append(sess); err != nil {
		metrics.StoreAppends.WithLabelValues(logName, "error").Inc()
		return Skipped, err
	}
	s.index[key] = sess.EndTime

	result := Inserted
	if exists {
		result = Updated
	}
	metrics.StoreAppends.WithLabelValues(logName, result.String()).Inc()
	s.logger.Debug().
		Str("key", key).
		Str("result", result.String()).
		Int64("duration_seconds", sess.DurationSeconds()).
		Msg("Session appended")
	return result, nil
}

// Sessions returns every stored session in first-appearance order, with
// superseded records (same dedup key, earlier end time) collapsed to the
// most complete observation. PeerTube rows precede Owncast rows, matching
// the order the original merged its per-family files.
func (s *Store) Sessions() ([]models.Session, error) {
	order := make([]string, 0, len(s.index))
	best := make(map[string]models.Session)

	collect := func(l *Log) error {
		return ScanInto(l, func(sess models.Session) error {
			key := sess.DedupKey()
			prev, ok := best[key]
			if !ok {
				order = append(order, key)
				best[key] = sess
			} else if sess.EndTime.After(prev.EndTime) {
				best[key] = sess
			}
			return nil
		})
	}
	if err := collect(s.peertube); err != nil {
		return nil, err
	}
	if err := collect(s.owncast); err != nil {
		return nil, err
	}

	out := make([]models.Session, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out, nil
}

// HasMarker reports whether a publish marker exists for key.
func (s *Store) HasMarker(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.markSet[key]
	return ok
}

// AddMarker records a successful publish for key. Existence of a marker
// strictly implies the announcement was sent at least once; it is written
// only after the publish capability reports success.
func (s *Store) AddMarker(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markSet[key]; ok {
		return nil
	}
	if err := s.markers.Append(Marker{Key: key, PostedAt: time.Now().UTC()}); err != nil {
		metrics.StoreAppends.WithLabelValues("markers", "error").Inc()
		return err
	}
	s.markSet[key] = struct{}{}
	metrics.StoreAppends.WithLabelValues("markers", "inserted").Inc()
	return nil
}

// AppendRotation records a report choice in the rotation history log.
func (s *Store) AppendRotation(choice string) error {
	return s.rotation.Append(rotationEntry{Choice: choice, ChosenAt: time.Now().UTC()})
}

// RecentRotation returns up to n most recent report choices, newest last.
// The on-disk log grows without bound; only the tail is ever consulted.
func (s *Store) RecentRotation(n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	var all []string
	err := ScanInto(s.rotation, func(e rotationEntry) error {
		all = append(all, e.Choice)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// Sync flushes every log to stable storage. Called at the end of a cycle.
func (s *Store) Sync() error {
	for _, l := range []*Log{s.snapshots, s.peertube, s.owncast, s.markers, s.rotation} {
		if err := l.Sync(); err != nil {
			return err
		}
	}
	return nil
}
