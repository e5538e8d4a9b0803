// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package statestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/streamherald/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	sourceKeyPrefix = "source:"
)

// ErrNotFound is returned when a source has no persisted state.
var ErrNotFound = errors.New("source state not found")

// SourceState is the reconstructor's durable per-source memory. Losing it
// across a restart would re-announce live streams and re-emit sessions, so
// it is persisted on every transition.
type SourceState struct {
	SourceID string          `json:"source_id"`
	Platform models.Platform `json:"platform"`

	// Live marks the in-progress-session phase of the state machine.
	Live bool `json:"live"`

	// StartTime anchors the candidate session while Live.
	StartTime *time.Time `json:"start_time,omitempty"`

	// LastSeenLiveAt is the last poll that observed the source live.
	LastSeenLiveAt time.Time `json:"last_seen_live_at"`

	// MissedCycles counts consecutive polls that did not observe the
	// source live. The session closes once this exceeds the grace
	// allowance, tolerating transient poll failures.
	MissedCycles int `json:"missed_cycles"`

	// MaxViewers is the peak concurrent/cumulative viewer count observed
	// during the candidate session.
	MaxViewers int64 `json:"max_viewers"`

	Title    string `json:"title,omitempty"`
	WatchURL string `json:"watch_url,omitempty"`

	// LastConnect and LastDisconnect mirror the Owncast status fields from
	// the latest poll. A change in LastDisconnect is Owncast's session-end
	// signal.
	LastConnect    *time.Time `json:"last_connect,omitempty"`
	LastDisconnect *time.Time `json:"last_disconnect,omitempty"`

	// Announced guards the go-live post so a stream is announced at most
	// once per session.
	Announced bool `json:"announced"`
}

// Store persists per-source reconstructor state in BadgerDB.
type Store struct {
	db *badger.DB
}

// Open creates or opens the state database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the state for a source, or ErrNotFound.
func (s *Store) Get(sourceID string) (*SourceState, error) {
	var state SourceState

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sourceKeyPrefix + sourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get source state: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Put stores the state for a source.
func (s *Store) Put(state *SourceState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal source state: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sourceKeyPrefix+state.SourceID), data)
	})
}

// Delete removes the state for a source. Deleting an absent key is not an
// error.
func (s *Store) Delete(sourceID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(sourceKeyPrefix + sourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// All returns every persisted source state. Used at startup to resume
// in-progress sessions and by the API for live-source listings.
func (s *Store) All() ([]*SourceState, error) {
	var states []*SourceState

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(sourceKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var state SourceState
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &state)
			})
			if err != nil {
				return fmt.Errorf("decode source state: %w", err)
			}
			states = append(states, &state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}
