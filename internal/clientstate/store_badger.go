// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package clientstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// stateKey holds the JSON-encoded State.
var stateKey = []byte("clientstate:state")

// BadgerStore persists State in BadgerDB.
type BadgerStore struct {
	db *badger.DB

	// mu serializes Update so read-modify-write never races into ErrConflict.
	mu     sync.Mutex
	closed bool
}

// OpenBadgerStore opens a store at path. An empty path opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for client state: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Load(_ context.Context) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return State{}, ErrStoreClosed
	}

	var s State
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		s, err = readState(txn)
		return err
	})
	return s, err
}

func (b *BadgerStore) Save(_ context.Context, s State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrStoreClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return writeState(txn, s)
	})
}

func (b *BadgerStore) Update(_ context.Context, fn func(State) (State, error)) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return State{}, ErrStoreClosed
	}

	var next State
	err := b.db.Update(func(txn *badger.Txn) error {
		current, err := readState(txn)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		return writeState(txn, next)
	})
	if err != nil {
		return State{}, err
	}
	return next, nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func readState(txn *badger.Txn) (State, error) {
	var s State
	item, err := txn.Get(stateKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("get state: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &s)
	})
	if err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}

func writeState(txn *badger.Txn, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := txn.Set(stateKey, data); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}
