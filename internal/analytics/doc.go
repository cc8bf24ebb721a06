// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package analytics rolls visitor records up into dashboard statistics.

# Windows

A window names a lookback period ending at the query time and fixes the
series granularity:

	7d, 30d   daily buckets
	90d       weekly buckets (ISO weeks, Monday start)
	6m, 12m   monthly buckets

Unknown windows fall back to 30d. A record belongs to a window when it
overlaps it: last seen at or after the window start and first seen at or
before the query time.

# Statistics

Compute is a pure function over a slice of records:

  - Unique visitors is the number of records in the window.
  - Total visits sums VisitCount. The average is 0 when there are no visitors.
  - New visitors have VisitCount == 1; everyone else is returning, so
    new + returning always equals unique.
  - Top countries, companies and pages are sorted by count descending,
    ties kept in first-encountered order, truncated to N (default 5, max 10).
  - The series buckets records by last seen time and includes empty buckets.

Service wraps Compute with a Source (the DuckDB store) and a short-lived
cache keyed by window, top-N and the store's data version.
*/
package analytics
