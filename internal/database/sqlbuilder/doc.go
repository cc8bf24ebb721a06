// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package sqlbuilder builds parameterized SQL WHERE clauses for the
// database package.
//
// All values are bound through ? placeholders. Column names are
// interpolated and must come from code, never from request input:
//
//	wb := sqlbuilder.NewWhereBuilder()
//	wb.AddContains("country", filters.Country)
//	wb.AddTimeRange("last_seen", filters.From, filters.To)
//	whereClause, args := wb.Build()
//
// WhereBuilder instances are not safe for concurrent use.
package sqlbuilder
