// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package clientstate is the session identity store of the telemetry client.
//
// State is an explicit container: session id and start, visit counter,
// first-visit time, fingerprint token, cached operator credential and the
// consent preference set. All transitions are pure functions that take the
// state (and the current time) and return a new state:
//
//	s, _ = clientstate.ReadOrInit(s, now)
//	s = clientstate.IncrementVisit(s)
//	s = clientstate.SetAuthenticated(s, token, now)
//
// A Store persists the container. Store.Update applies a transition
// atomically, which is how callers combine a read and a write. BadgerStore
// keeps the state in BadgerDB; MemoryStore keeps it in process.
//
// The cached credential is never trusted past its expiry: IsAuthenticated
// checks the wall clock on every call and CachedCredential clears expired
// tokens.
package clientstate
