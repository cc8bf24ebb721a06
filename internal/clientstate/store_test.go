// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package clientstate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func setupBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore("")
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"badger": setupBadgerStore(t),
	}
}

func TestStore_BeginPageLoad(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			first, err := BeginPageLoad(ctx, store, t0)
			if err != nil {
				t.Fatalf("BeginPageLoad() error = %v", err)
			}
			second, err := BeginPageLoad(ctx, store, t0.Add(time.Minute))
			if err != nil {
				t.Fatalf("BeginPageLoad() error = %v", err)
			}

			if first.SessionID != second.SessionID {
				t.Error("session id must be stable across page loads")
			}
			if second.VisitCount != 2 {
				t.Errorf("VisitCount = %d, want 2", second.VisitCount)
			}
			if !second.FirstVisit.Equal(t0) {
				t.Errorf("FirstVisit = %v, want %v", second.FirstVisit, t0)
			}

			loaded, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.VisitCount != 2 {
				t.Errorf("persisted VisitCount = %d, want 2", loaded.VisitCount)
			}
		})
	}
}

func TestStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := BeginPageLoad(ctx, store, t0); err != nil {
						t.Errorf("BeginPageLoad() error = %v", err)
					}
				}()
			}
			wg.Wait()

			s, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if s.VisitCount != 20 {
				t.Errorf("VisitCount = %d, want 20 (no lost updates)", s.VisitCount)
			}
		})
	}
}

func TestStore_UpdateErrorLeavesState(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := BeginPageLoad(ctx, store, t0); err != nil {
				t.Fatal(err)
			}
			_, err := store.Update(ctx, func(s State) (State, error) {
				s.VisitCount = 99
				return s, boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Update() error = %v, want wrapped boom", err)
			}
			s, _ := store.Load(ctx)
			if s.VisitCount != 1 {
				t.Errorf("VisitCount = %d, want 1 after failed update", s.VisitCount)
			}
		})
	}
}

func TestCachedCredential(t *testing.T) {
	ctx := context.Background()
	store := setupBadgerStore(t)

	if err := store.Save(ctx, SetAuthenticated(State{}, "tok", t0)); err != nil {
		t.Fatal(err)
	}

	tok, ok, err := CachedCredential(ctx, store, t0.Add(time.Hour))
	if err != nil || !ok || tok != "tok" {
		t.Fatalf("CachedCredential() = %q, %v, %v", tok, ok, err)
	}

	_, ok, err = CachedCredential(ctx, store, t0.Add(CredentialTTL+time.Second))
	if err != nil || ok {
		t.Fatalf("expired credential returned ok=%v err=%v", ok, err)
	}

	s, _ := store.Load(ctx)
	if s.Credential.Token != "" {
		t.Error("expired credential must be cleared from the store")
	}
}

func TestBadgerStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")

	store, err := OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	if _, err := BeginPageLoad(ctx, store, t0); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	s, err := reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.VisitCount != 1 || s.SessionID == "" {
		t.Errorf("state not persisted: %+v", s)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Load on closed store error = %v, want ErrStoreClosed", err)
	}
}
