// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package fingerprint

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/clientstate"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/probe"
)

// canonical fixes the field set and order that is hashed. Battery and
// geolocation are excluded: battery changes during a session and
// geolocation is never probed.
type canonical struct {
	Screen     string `json:"screen"`
	Languages  string `json:"languages"`
	Timezone   string `json:"timezone"`
	Connection string `json:"connection"`
	Memory     string `json:"memory"`
	Cores      string `json:"cores"`
	Canvas     string `json:"canvas"`
	Graphics   string `json:"graphics"`
	Fonts      string `json:"fonts"`
	Audio      string `json:"audio"`
}

// Canonical serializes the signals into the exact string that is hashed.
// Unavailable signals contribute their sentinel.
func Canonical(s probe.Signals) string {
	c := canonical{
		Screen:     s.Screen.OrSentinel(),
		Languages:  s.Languages.OrSentinel(),
		Timezone:   s.Timezone.OrSentinel(),
		Connection: s.Connection.OrSentinel(),
		Memory:     s.Memory.OrSentinel(),
		Cores:      s.Cores.OrSentinel(),
		Canvas:     s.Canvas.OrSentinel(),
		Graphics:   s.Graphics.OrSentinel(),
		Fonts:      s.Fonts.OrSentinel(),
		Audio:      s.Audio.OrSentinel(),
	}
	data, err := json.Marshal(c)
	if err != nil {
		// A struct of strings always marshals; fall back to Go syntax anyway.
		return fmt.Sprintf("%+v", c)
	}
	return string(data)
}

// Compute returns the fingerprint token for s.
func Compute(s probe.Signals) string {
	return Hash(Canonical(s))
}

// Generator computes fingerprints and records them in the session identity store.
type Generator struct {
	store clientstate.Store
	now   func() time.Time
}

// NewGenerator returns a Generator writing to store.
func NewGenerator(store clientstate.Store) *Generator {
	return &Generator{store: store, now: time.Now}
}

// Generate computes the token for signals and writes it to the store when
// analytics consent is granted. It returns the token and whether it was
// stored. Only store failures produce an error; missing signals never do.
func (g *Generator) Generate(ctx context.Context, signals probe.Signals) (string, bool, error) {
	token := Compute(signals)

	stored := false
	_, err := g.store.Update(ctx, func(s clientstate.State) (clientstate.State, error) {
		s, _ = clientstate.ReadOrInit(s, g.now())
		if !clientstate.AnalyticsAllowed(s) {
			return s, nil
		}
		stored = true
		return clientstate.WithFingerprint(s, token), nil
	})
	if err != nil {
		return token, false, fmt.Errorf("store fingerprint: %w", err)
	}

	logging.Debug().Str("fingerprint", token).Bool("stored", stored).Msg("Fingerprint computed")
	return token, stored, nil
}
