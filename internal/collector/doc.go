// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package collector turns the UI events of one page load into telemetry.
//
// A Collector registers an explicit list of subscriptions on a Dispatcher
// when started and removes exactly that list on Teardown. It emits:
//
//   - page_view on start
//   - scroll_depth as soon as a new 10% threshold is crossed, plus a
//     settle emission 500ms after scrolling stops if a new maximum was
//     reached but not yet reported (for example while consent was pending)
//   - click, copy and form_interaction immediately
//   - time_on_page every 30 seconds
//   - a single page_exit summary on unload or Teardown
//
// Pointer movement is kept in a fixed-size Ring and only reported as a
// density class in the exit summary. Nothing is emitted unless the visitor
// has granted analytics consent.
//
// Time is abstracted by Clock; ManualClock drives deterministic tests and
// the cmd/collector replay tool. Delivery goes through a Sink. HTTPSink
// posts to the log endpoint asynchronously behind a rate limiter and a
// circuit breaker, logging failures instead of returning them.
package collector
