// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/logging"
)

// ErrDedupClosed is returned after the deduplicator is closed.
var ErrDedupClosed = errors.New("exit deduplicator is closed")

const exitKeyPrefix = "exit:"

// exitEntry is the stored value for a seen exit summary.
type exitEntry struct {
	FirstSeen time.Time `json:"first_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExitDeduplicator remembers page-exit summaries for a TTL so a summary
// delivered twice (beacon retry, redelivery) is applied once.
type ExitDeduplicator struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	closed bool
}

// OpenExitDeduplicator opens a Badger key set at path. An empty path keeps
// the set in memory.
func OpenExitDeduplicator(path string, ttl time.Duration) (*ExitDeduplicator, error) {
	if ttl <= 0 {
		return nil, errors.New("dedup ttl must be positive")
	}
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for exit dedup: %w", err)
	}
	return &ExitDeduplicator{db: db, ttl: ttl, now: time.Now}, nil
}

func (d *ExitDeduplicator) makeKey(key string) []byte {
	return []byte(exitKeyPrefix + key)
}

// CheckAndStore records key and reports whether it had already been seen
// within the TTL. The check and the write happen in one transaction.
func (d *ExitDeduplicator) CheckAndStore(key string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false, ErrDedupClosed
	}

	k := d.makeKey(key)
	now := d.now()
	duplicate := false

	err := d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == nil {
			var existing exitEntry
			if valErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); valErr == nil && now.Before(existing.ExpiresAt) {
				duplicate = true
				return nil
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(exitEntry{FirstSeen: now, ExpiresAt: now.Add(d.ttl)})
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(k, data).WithTTL(d.ttl))
	})
	if err != nil {
		return false, fmt.Errorf("exit dedup check: %w", err)
	}
	return duplicate, nil
}

// Forget removes key so a failed apply can be retried.
func (d *ExitDeduplicator) Forget(key string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDedupClosed
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(d.makeKey(key))
	})
}

// Close closes the underlying database. Safe to call more than once.
func (d *ExitDeduplicator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close exit dedup store")
		return err
	}
	return nil
}
