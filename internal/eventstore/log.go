// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package eventstore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/streamherald/internal/metrics"
)

// Log is an append-only newline-delimited JSON record log.
//
// Appends are serialized by a mutex and written as a single buffered write
// of record + newline, so a crash mid-append can only truncate the final
// row. Scans skip malformed rows instead of failing, which makes a
// truncated tail harmless.
type Log struct {
	name string
	path string

	mu   sync.Mutex
	file *os.File
}

// OpenLog opens (creating if needed) the log at path. The name labels
// metrics and diagnostics.
func OpenLog(name, path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	return &Log{name: name, path: path, file: f}, nil
}

// Append marshals v and appends it as one line. The write is flushed to the
// OS before returning; an error leaves at most one truncated trailing row.
func (l *Log) Append(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", l.name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	if _, err := l.file.Write(buf); err != nil {
		return fmt.Errorf("failed to append to %s log: %w", l.name, err)
	}
	return nil
}

// Sync flushes the log to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Scan reads every well-formed row in append order, invoking fn with the
// raw line. Malformed or truncated rows are counted and skipped, never
// fatal: the logs must survive a crash mid-append.
func (l *Log) Scan(fn func(line []byte) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s log for scan: %w", l.name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			metrics.StoreMalformedRows.WithLabelValues(l.name).Inc()
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("failed scanning %s log: %w", l.name, err)
	}
	return nil
}

// ScanInto decodes each well-formed row into a fresh T and passes it to fn.
// Rows that are valid JSON but do not decode into T are skipped and counted
// like malformed rows.
func ScanInto[T any](l *Log, fn func(record T) error) error {
	return l.Scan(func(line []byte) error {
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			metrics.StoreMalformedRows.WithLabelValues(l.name).Inc()
			return nil
		}
		return fn(record)
	})
}
