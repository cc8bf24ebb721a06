// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

//go:build !nats

package ingest

import (
	"errors"
	"testing"

	"github.com/tomtom215/sitelens/internal/config"
)

func TestNewTransport_NATSNotCompiled(t *testing.T) {
	if NATSCompiled {
		t.Fatal("NATSCompiled should be false without the nats tag")
	}
	cfg := &config.Config{Ingest: config.IngestConfig{Transport: TransportNATS}}
	if _, err := NewTransport(cfg, nil); !errors.Is(err, ErrNATSNotCompiled) {
		t.Errorf("NewTransport(nats) = %v, want ErrNATSNotCompiled", err)
	}
}
