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
	"time"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("clientstate: store closed")

// Store persists State. Load returns the zero State when nothing is stored.
// Update applies fn atomically: no other Update interleaves between the
// read and the write.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
	Update(ctx context.Context, fn func(State) (State, error)) (State, error)
	Close() error
}

// BeginPageLoad initializes the session if needed and counts one visit.
func BeginPageLoad(ctx context.Context, store Store, now time.Time) (State, error) {
	return store.Update(ctx, func(s State) (State, error) {
		s, _ = ReadOrInit(s, now)
		return IncrementVisit(s), nil
	})
}

// CachedCredential returns the cached token if it is still valid at now. An
// expired token is cleared from the store as a side effect.
func CachedCredential(ctx context.Context, store Store, now time.Time) (string, bool, error) {
	s, err := store.Update(ctx, func(s State) (State, error) {
		return ExpireCredential(s, now), nil
	})
	if err != nil {
		return "", false, err
	}
	if !IsAuthenticated(s, now) {
		return "", false, nil
	}
	return s.Credential.Token, true, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	state  State
	closed bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return State{}, ErrStoreClosed
	}
	return m.state, nil
}

func (m *MemoryStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.state = s
	return nil
}

func (m *MemoryStore) Update(_ context.Context, fn func(State) (State, error)) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return State{}, ErrStoreClosed
	}
	next, err := fn(m.state)
	if err != nil {
		return m.state, fmt.Errorf("update state: %w", err)
	}
	m.state = next
	return next, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
