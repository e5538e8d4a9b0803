// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package lemmy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/metrics"
)

// Key prefixes for BadgerDB storage.
const (
	pendingKeyPrefix = "pending:"
	postedKeyPrefix  = "posted:"
)

// Submitter publishes one post. Implemented by Client.
type Submitter interface {
	Submit(ctx context.Context, title, body string) error
}

// Entry is one queued forum post.
type Entry struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	PostedAt  *time.Time `json:"posted_at,omitempty"`
}

// Outbox is a durable queue of forum posts. Enqueue succeeds whether or not
// the instance is reachable; a separate drain pass moves entries from
// pending to posted once the instance accepts them.
type Outbox struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenOutbox creates or opens the outbox database at path.
func OpenOutbox(path string, logger zerolog.Logger) (*Outbox, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	o := &Outbox{db: db, logger: logger}
	pending, err := o.Pending()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.OutboxPending.Set(float64(len(pending)))
	return o, nil
}

// Close releases the database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

// Enqueue adds a post to the pending queue.
func (o *Outbox) Enqueue(title, body string) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.put(pendingKeyPrefix, entry); err != nil {
		return nil, err
	}
	metrics.OutboxPending.Inc()

	o.logger.Info().
		Str("id", entry.ID).
		Str("title", title).
		Msg("Enqueued forum post")
	return entry, nil
}

// Pending returns queued entries oldest-first.
func (o *Outbox) Pending() ([]*Entry, error) {
	entries, err := o.scan(pendingKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Posted returns delivered entries, most recently posted first.
func (o *Outbox) Posted() ([]*Entry, error) {
	entries, err := o.scan(postedKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[j].PostedAt.Before(*entries[i].PostedAt)
	})
	return entries, nil
}

// Drain submits pending entries oldest-first. Submission failure records
// the attempt and stops the pass; the entry stays pending for the next
// drain, preserving post order.
func (o *Outbox) Drain(ctx context.Context, submitter Submitter) error {
	pending, err := o.Pending()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := submitter.Submit(ctx, entry.Title, entry.Body); err != nil {
			entry.Attempts++
			entry.LastError = err.Error()
			if putErr := o.put(pendingKeyPrefix, entry); putErr != nil {
				return errors.Join(err, putErr)
			}
			o.logger.Warn().
				Err(err).
				Str("id", entry.ID).
				Int("attempts", entry.Attempts).
				Msg("Forum post submission failed, keeping pending")
			return err
		}

		now := time.Now().UTC()
		entry.PostedAt = &now
		entry.LastError = ""
		if err := o.confirm(entry); err != nil {
			return err
		}
		metrics.OutboxPending.Dec()
		o.logger.Info().
			Str("id", entry.ID).
			Str("title", entry.Title).
			Msg("Forum post delivered")
	}
	return nil
}

func (o *Outbox) put(prefix string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox entry: %w", err)
	}
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+entry.ID), data)
	})
}

// confirm atomically moves an entry from pending to posted.
func (o *Outbox) confirm(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox entry: %w", err)
	}
	return o.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(pendingKeyPrefix + entry.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(postedKeyPrefix+entry.ID), data)
	})
}

func (o *Outbox) scan(prefix string) ([]*Entry, error) {
	var entries []*Entry

	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("decode outbox entry: %w", err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
