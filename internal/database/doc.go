// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package database stores visitor records in DuckDB.
//
// # Schema
//
// The visitors table holds one row per (address, fingerprint) identity with
// geo fields, the visited pages, first/last seen and a visit count. The
// schema is built by versioned, append-only migrations tracked in
// schema_migrations.
//
// # Writes
//
// UpsertVisit merges one event into the identity's record. A per-identity
// mutex serializes writers for the same visitor while writes for different
// visitors proceed in parallel; DuckDB transaction conflicts are retried
// with exponential backoff (1ms, 2ms, 4ms). MergeVisit holds the merge rules.
//
// # Reads
//
// ListVisitors pushes filters, sort and pagination down to SQL with the same
// semantics as query.Apply. VisitorsInRange returns the records whose
// activity overlaps a time window, for the analytics package.
//
// # Connection Handling
//
// Reads that fail with a connection error trigger one reconnect with
// exponential backoff and are retried once.
package database
