// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package database

// visitorsTable is the visitor record table. One row per (address,
// fingerprint) pair. pages is a JSON array of paths in first-visit order.
// Timestamps are stored as UTC TIMESTAMP so no ICU extension is needed.
// Later columns are added by migrations.
const visitorsTable = `
CREATE TABLE IF NOT EXISTS visitors (
	address TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	organization TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT '',
	isp TEXT NOT NULL DEFAULT '',
	pages TEXT NOT NULL DEFAULT '[]',
	first_seen TIMESTAMP NOT NULL,
	last_seen TIMESTAMP NOT NULL,
	visit_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (address, fingerprint)
);
`

// visitorColumns is the select list matching scanVisitor.
const visitorColumns = `address, fingerprint, organization, city, region, country, timezone, isp,
	pages, first_seen, last_seen, visit_count, COALESCE(client, ''), COALESCE(referrer, '')`
