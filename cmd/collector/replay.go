// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/clientstate"
	"github.com/tomtom215/sitelens/internal/collector"
	"github.com/tomtom215/sitelens/internal/fingerprint"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/probe"
)

// maxLineBytes bounds one script line.
const maxLineBytes = 1 << 20

// Options configures one replay.
type Options struct {
	Endpoint     string
	HostPath     string
	ScriptPath   string
	StatePath    string
	Page         string
	Referrer     string
	UserAgent    string
	GrantConsent bool

	// Start is the simulated page load time. Zero means time.Now.
	Start time.Time

	// Script and Host override ScriptPath and HostPath when set.
	Script io.Reader
	Host   probe.Host

	// Sink overrides the HTTP sink built from Endpoint.
	Sink collector.Sink
}

// Report summarizes a replay.
type Report struct {
	SessionID         string
	Fingerprint       string
	FingerprintStored bool
	VisitCount        int
	Lines             int
	Sink              collector.SinkStats
}

// ScriptLine is one line of an interaction script.
type ScriptLine struct {
	AfterMs int64                `json:"after_ms"`
	Event   *collector.DOMEvent  `json:"event,omitempty"`
	Consent *clientstate.Consent `json:"consent,omitempty"`
}

// Run replays one page load.
func Run(ctx context.Context, opts Options) (Report, error) {
	var report Report

	host, err := loadHost(opts)
	if err != nil {
		return report, err
	}
	lines, err := loadScript(opts)
	if err != nil {
		return report, err
	}

	store, err := clientstate.OpenBadgerStore(opts.StatePath)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close client state store")
		}
	}()

	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}
	clock := collector.NewManualClock(start)

	if _, err := clientstate.BeginPageLoad(ctx, store, clock.Now()); err != nil {
		return report, fmt.Errorf("begin page load: %w", err)
	}
	if opts.GrantConsent {
		if err := updateConsent(ctx, store, clientstate.Consent{Necessary: true, Analytics: true}); err != nil {
			return report, err
		}
	}

	gen := fingerprint.NewGenerator(store)
	signals := probe.Probe(host)
	token, stored, err := gen.Generate(ctx, signals)
	if err != nil {
		return report, err
	}
	report.Fingerprint = token
	report.FingerprintStored = stored

	state, err := store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load client state: %w", err)
	}
	report.SessionID = state.SessionID
	report.VisitCount = state.VisitCount

	sink := opts.Sink
	var httpSink *collector.HTTPSink
	if sink == nil {
		httpSink, err = collector.NewHTTPSink(collector.DefaultHTTPSinkConfig(opts.Endpoint))
		if err != nil {
			return report, err
		}
		sink = httpSink
	}

	cfg := collector.DefaultConfig(opts.Page)
	cfg.Referrer = opts.Referrer
	cfg.Client = opts.UserAgent

	d := collector.NewDispatcher()
	c := collector.New(cfg, state, sink, clock)
	if err := c.Start(ctx, d); err != nil {
		return report, err
	}

	for _, line := range lines {
		if ctx.Err() != nil {
			break
		}
		clock.Advance(time.Duration(line.AfterMs) * time.Millisecond)
		if line.Consent != nil {
			if err := updateConsent(ctx, store, *line.Consent); err != nil {
				return report, err
			}
			granted := ""
			if line.Consent.Analytics {
				// The token was not stored while consent was withheld.
				if granted, stored, err = gen.Generate(ctx, signals); err != nil {
					return report, err
				}
				report.FingerprintStored = report.FingerprintStored || stored
			}
			c.SetConsent(*line.Consent, granted)
		}
		if line.Event != nil {
			d.Dispatch(*line.Event)
		}
		report.Lines++
	}
	d.Dispatch(collector.DOMEvent{Type: collector.Unload})

	if httpSink != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSink.Close(drainCtx); err != nil {
			return report, err
		}
		report.Sink = httpSink.Stats()
	}
	return report, nil
}

func updateConsent(ctx context.Context, store clientstate.Store, consent clientstate.Consent) error {
	_, err := store.Update(ctx, func(s clientstate.State) (clientstate.State, error) {
		return clientstate.WithConsent(s, consent), nil
	})
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	return nil
}

func loadHost(opts Options) (probe.Host, error) {
	if opts.Host != nil {
		return opts.Host, nil
	}
	if opts.HostPath == "" {
		// Every capability reports unsupported; the fingerprint is still stable.
		return &probe.StaticHost{}, nil
	}
	f, err := os.Open(opts.HostPath)
	if err != nil {
		return nil, fmt.Errorf("open host fixture: %w", err)
	}
	defer f.Close()
	return probe.LoadStaticHost(f)
}

func loadScript(opts Options) ([]ScriptLine, error) {
	r := opts.Script
	if r == nil {
		switch opts.ScriptPath {
		case "", "-":
			r = os.Stdin
		default:
			f, err := os.Open(opts.ScriptPath)
			if err != nil {
				return nil, fmt.Errorf("open script: %w", err)
			}
			defer f.Close()
			r = f
		}
	}
	return ParseScript(r)
}

// ParseScript reads an interaction script. Blank lines and # comments are
// skipped. An unknown event type is an error naming the line.
func ParseScript(r io.Reader) ([]ScriptLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines []ScriptLine
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var line ScriptLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			return nil, fmt.Errorf("script line %d: %w", n, err)
		}
		if line.AfterMs < 0 {
			return nil, fmt.Errorf("script line %d: after_ms must not be negative", n)
		}
		if line.Event == nil && line.Consent == nil {
			return nil, fmt.Errorf("script line %d: needs an event or a consent change", n)
		}
		if line.Event != nil && !knownEvent(line.Event.Type) {
			return nil, fmt.Errorf("script line %d: unknown event type %q", n, line.Event.Type)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("script line %d exceeds %d bytes", n+1, maxLineBytes)
		}
		return nil, fmt.Errorf("read script: %w", err)
	}
	return lines, nil
}

func knownEvent(t collector.EventType) bool {
	switch t {
	case collector.Scroll, collector.PointerMove, collector.Click, collector.Copy,
		collector.Focus, collector.Blur, collector.Change, collector.Unload:
		return true
	}
	return false
}
