// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

// Package fingerprint derives a short, stable device token from probe signals.
//
// The signals are serialized into one canonical JSON object with a fixed
// field order, unavailable signals replaced by their sentinel ("unsupported"
// or "error"), and hashed with a 31-multiplier string hash rendered in base 36.
//
// The token approximates return-visitor identity. It is deterministic for
// identical signals and has no uniqueness guarantee: collisions are expected.
// It is not a security primitive and must not be used for authentication.
package fingerprint
