// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

//go:build !nats

package ingest

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/sitelens/internal/config"
)

// NATSCompiled reports whether this binary includes the NATS transport.
const NATSCompiled = false

func newNATSTransport(_ *config.Config, _ watermill.LoggerAdapter) (*Transport, error) {
	return nil, ErrNATSNotCompiled
}
