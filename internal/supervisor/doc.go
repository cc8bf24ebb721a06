// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package supervisor runs the server's long-lived services under suture v4.

The tree has two layers:

	RootSupervisor ("sitelens")
	├── IngestSupervisor ("ingest-layer")
	│   └── IngestService (Watermill router: event topic -> visitor store)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing service is restarted with suture's backoff without touching the
other layer. Supervisor events are logged through sutureslog, bridged to
zerolog by logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddIngestService(services.NewIngestService(pipeline))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Canceling ctx stops every service in reverse order of addition, each within
TreeConfig.ShutdownTimeout. UnstoppedServiceReport lists any that overran.
*/
package supervisor
