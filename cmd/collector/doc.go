// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package main is sitelens-collector, a headless replay of the browser side of
the pipeline.

It loads a host fixture (the capability values a browser would report),
computes the visitor fingerprint, keeps session identity in a Badger
directory across runs, and then replays a JSON-lines interaction script
through the event collector, posting every event to a Sitelens server.

# Script format

One JSON object per line. after_ms advances the simulated clock before the
line is applied; a line carries either a UI event or a consent change:

	{"after_ms": 0,    "event": {"type": "scroll", "scroll_top": 400, "scroll_height": 2000, "viewport_height": 1000}}
	{"after_ms": 1200, "event": {"type": "click", "x": 10, "y": 20, "target": {"tag": "a", "text": "Pricing"}}}
	{"after_ms": 0,    "consent": {"necessary": true, "analytics": false}}

The page is unloaded after the last line. Blank lines and lines starting
with # are skipped.

# Usage

	sitelens-collector -endpoint http://localhost:8080/api/v1/log \
	    -host host.json -script session.jsonl -state ./state -page /pricing -consent
*/
package main
