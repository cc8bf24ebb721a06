// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package query filters, sorts and paginates visitor records.
//
// Apply runs a Request against an in-memory slice. The DuckDB store
// implements the same contract in SQL (database.DB.ListVisitors), and the
// tests of both packages check they agree.
//
// Filters are ANDed; text filters are case-insensitive substring matches
// and the date range applies to the last-seen time. Pages are 1-indexed.
// A page past the end yields an empty page with the correct totals.
package query
