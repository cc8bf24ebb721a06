// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package services adapts long-running components to suture.Service.
//
// Each wrapper turns a component's own lifecycle (ListenAndServe/Shutdown for
// the HTTP server, Run/Close for the ingest router) into a context-aware
// Serve method:
//
//	tree.AddIngestService(services.NewIngestService(pipeline))
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
package services
