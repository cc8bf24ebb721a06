// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package logging provides centralized zerolog-based structured logging for Sitelens.
//
// JSON output is used in production and console output in development. The
// global logger is configured once from main via Init and is safe for
// concurrent use.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("window", "30d").Msg("Statistics computed")
//	logging.Err(err).Str("page", path).Msg("Event delivery failed")
//
//	// Request-scoped fields (request_id, correlation_id)
//	logging.Ctx(ctx).Warn().Msg("Duplicate exit summary dropped")
//
// # Configuration
//
// Environment variables (read through internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//
// # slog Integration
//
// Suture's event hook and Watermill both accept *slog.Logger. NewSlogLogger
// returns one backed by the global zerolog logger so every component writes
// to the same stream.
//
// Always terminate event chains with Msg or Send; an unterminated chain is
// never written.
package logging
