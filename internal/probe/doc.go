// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package probe detects which device and browser identification primitives
// a host environment offers.
//
// Each primitive produces a Result that is either Available(value) or
// Unavailable(reason). Missing APIs, errors and panics are all converted to
// Unavailable results, so Probe never fails. Temporary surfaces (canvas,
// graphics and audio contexts) are released on every path.
//
// Primitives that would prompt the user, such as precise geolocation, are
// never requested and always report ReasonPermission.
//
// A Host abstracts the environment. StaticHost is a JSON fixture
// implementation used by cmd/collector and tests.
package probe
