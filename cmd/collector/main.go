// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/sitelens/internal/logging"
)

var version = "dev"

func main() {
	opts := Options{}
	flag.StringVar(&opts.Endpoint, "endpoint", "http://localhost:8080/api/v1/log", "Log endpoint URL")
	flag.StringVar(&opts.HostPath, "host", "", "Host capability fixture (JSON)")
	flag.StringVar(&opts.ScriptPath, "script", "-", "Interaction script (JSON lines, - for stdin)")
	flag.StringVar(&opts.StatePath, "state", "", "Badger directory for session identity (empty: in-memory)")
	flag.StringVar(&opts.Page, "page", "/", "Page path being visited")
	flag.StringVar(&opts.Referrer, "referrer", "", "Referrer URL")
	flag.StringVar(&opts.UserAgent, "user-agent", "sitelens-collector/"+version, "Client string sent with events")
	flag.BoolVar(&opts.GrantConsent, "consent", false, "Grant analytics consent before the page load")
	logLevel := flag.String("log-level", "info", "Log level")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Println("sitelens-collector", version)
		return
	}

	logging.Init(logging.Config{Level: *logLevel, Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := Run(ctx, opts)
	if err != nil {
		logging.Error().Err(err).Msg("Replay failed")
		os.Exit(1)
	}

	logging.Info().
		Str("session_id", report.SessionID).
		Str("fingerprint", report.Fingerprint).
		Bool("fingerprint_stored", report.FingerprintStored).
		Int("visit_count", report.VisitCount).
		Int("lines", report.Lines).
		Int64("sent", report.Sink.Sent).
		Int64("failed", report.Sink.Failed).
		Int64("dropped", report.Sink.Dropped).
		Msg("Replay complete")
}
