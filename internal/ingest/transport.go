// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/sitelens/internal/config"
)

// Transport names accepted by INGEST_TRANSPORT.
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

// ErrNATSNotCompiled is returned when the nats transport is requested from a
// binary built without the nats tag.
var ErrNATSNotCompiled = errors.New("nats transport requires building with -tags nats")

// Transport pairs the publisher and subscriber of one message bus.
type Transport struct {
	Name       string
	Publisher  message.Publisher
	Subscriber message.Subscriber

	closers []func() error
}

// NewTransport builds the transport selected by cfg.Ingest.Transport.
func NewTransport(cfg *config.Config, logger watermill.LoggerAdapter) (*Transport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	switch cfg.Ingest.Transport {
	case TransportMemory, "":
		return NewMemoryTransport(cfg.Ingest.BufferSize, logger), nil
	case TransportNATS:
		return newNATSTransport(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ingest transport %q", cfg.Ingest.Transport)
	}
}

// NewMemoryTransport returns an in-process gochannel transport. The same
// GoChannel instance serves as publisher and subscriber.
func NewMemoryTransport(buffer int64, logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if buffer < 1 {
		buffer = 256
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            buffer,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	return &Transport{
		Name:       TransportMemory,
		Publisher:  pubSub,
		Subscriber: pubSub,
		closers:    []func() error{pubSub.Close},
	}
}

// Close releases the transport in reverse order of construction.
func (t *Transport) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
