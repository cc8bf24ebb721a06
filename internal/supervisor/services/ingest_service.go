// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/sitelens/internal/logging"
)

// IngestRunner is the part of *ingest.Pipeline the service drives.
type IngestRunner interface {
	Run(ctx context.Context) error
}

// IngestService runs the ingest router under a supervisor.
//
// A Watermill router cannot be started twice, so a restart would only fail
// again. When the router stops while ctx is still live the service
// terminates the tree and the process exits for its orchestrator to restart.
// Buffered events are not lost on the NATS transport; JetStream redelivers
// anything unacknowledged.
type IngestService struct {
	runner IngestRunner
	name   string
}

// NewIngestService wraps runner.
func NewIngestService(runner IngestRunner) *IngestService {
	return &IngestService{
		runner: runner,
		name:   "ingest-router",
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("router stopped")
	}
	logging.Error().Err(err).Msg("Ingest router stopped unexpectedly")
	return fmt.Errorf("%w: ingest router: %w", suture.ErrTerminateSupervisorTree, err)
}

// String names the service in supervisor events.
func (s *IngestService) String() string {
	return s.name
}
