// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package models defines the data types shared by the collector, the ingest
// pipeline, the visitor store and the API.
//
// Key types:
//   - Event: one telemetry emission (page view, scroll depth, click, copy,
//     form interaction, time-on-page tick, page exit)
//   - Visitor: the persisted record for one (address, fingerprint) identity
//   - Statistics: a window-scoped rollup over visitor records
//
// All types carry JSON tags matching the wire format of the /api/v1 endpoints.
package models
