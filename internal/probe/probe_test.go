// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package probe

import (
	"strings"
	"testing"
)

func fullHost() *StaticHost {
	return &StaticHost{
		ScreenInfo:     &Screen{Width: 1920, Height: 1080, ColorDepth: 24, PixelRatio: 2},
		Langs:          []string{"nl-NL", "en-US"},
		TZ:             "Europe/Amsterdam",
		Conn:           &Connection{EffectiveType: "4g", Downlink: 10, RTT: 50},
		Batt:           &Battery{Level: 0.8, Charging: true},
		Memory:         8,
		Cores:          12,
		CanvasData:     "data:image/png;base64,AAAA",
		GLVendor:       "Google Inc.",
		GLRenderer:     "ANGLE (Apple M2)",
		AudioSignature: "124.04347527516074",
		InstalledFonts: []string{"Arial", "Menlo", "Helvetica"},
	}
}

func TestProbe_AllAvailable(t *testing.T) {
	t.Parallel()

	host := fullHost()
	s := Probe(host)

	tests := []struct {
		name string
		got  Result
		want string
	}{
		{"screen", s.Screen, "1920x1080x24@2"},
		{"languages", s.Languages, "nl-NL,en-US"},
		{"timezone", s.Timezone, "Europe/Amsterdam"},
		{"connection", s.Connection, "4g|10|50|false"},
		{"memory", s.Memory, "8"},
		{"cores", s.Cores, "12"},
		{"canvas", s.Canvas, "data:image/png;base64,AAAA"},
		{"graphics", s.Graphics, "Google Inc.~ANGLE (Apple M2)"},
		{"fonts", s.Fonts, "Arial,Helvetica,Menlo"},
		{"audio", s.Audio, "124.04347527516074"},
		{"battery", s.Battery, "0.8|true"},
	}
	for _, tt := range tests {
		v, ok := tt.got.Value()
		if !ok {
			t.Errorf("%s: expected available, got %s", tt.name, tt.got)
			continue
		}
		if v != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, v, tt.want)
		}
	}

	if host.Outstanding() != 0 {
		t.Errorf("expected all surfaces released, %d outstanding", host.Outstanding())
	}
}

func TestProbe_GeolocationNeverRequested(t *testing.T) {
	t.Parallel()

	s := Probe(fullHost())
	if s.Geolocation.IsAvailable() {
		t.Fatal("geolocation must never be available")
	}
	if s.Geolocation.Reason() != ReasonPermission {
		t.Errorf("geolocation reason = %q, want permission", s.Geolocation.Reason())
	}
	if s.Geolocation.OrSentinel() != "unsupported" {
		t.Errorf("geolocation sentinel = %q, want unsupported", s.Geolocation.OrSentinel())
	}
}

func TestProbe_Degrades(t *testing.T) {
	t.Parallel()

	host := fullHost()
	host.ScreenInfo = nil
	host.Failing = []string{"graphics", "timezone"}
	host.Panicking = []string{"audio"}

	s := Probe(host)

	if s.Screen.Reason() != ReasonUnsupported {
		t.Errorf("screen reason = %q, want unsupported", s.Screen.Reason())
	}
	if s.Timezone.Reason() != ReasonError {
		t.Errorf("timezone reason = %q, want error", s.Timezone.Reason())
	}
	if s.Graphics.Reason() != ReasonError {
		t.Errorf("graphics reason = %q, want error", s.Graphics.Reason())
	}
	if s.Audio.Reason() != ReasonError {
		t.Errorf("panicking audio reason = %q, want error", s.Audio.Reason())
	}
	if !s.Canvas.IsAvailable() {
		t.Error("canvas should still be available")
	}
	if host.Outstanding() != 0 {
		t.Errorf("surfaces must be released on failure paths, %d outstanding", host.Outstanding())
	}
}

func TestProbe_EmptyHost(t *testing.T) {
	t.Parallel()

	s := Probe(&StaticHost{})
	for _, r := range []Result{s.Screen, s.Languages, s.Canvas, s.Fonts, s.Audio} {
		if r.IsAvailable() || r.OrSentinel() != "unsupported" {
			t.Errorf("expected unsupported, got %s", r)
		}
	}
}

func TestResult_ZeroValue(t *testing.T) {
	t.Parallel()

	var r Result
	if r.IsAvailable() {
		t.Error("zero Result should be unavailable")
	}
	if r.Reason() != ReasonUnsupported {
		t.Errorf("zero Result reason = %q", r.Reason())
	}
	if got := Available("x").String(); got != "Available(x)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLoadStaticHost(t *testing.T) {
	t.Parallel()

	fixture := `{"screen":{"width":390,"height":844,"color_depth":32,"pixel_ratio":3},
		"languages":["en-GB"],"timezone":"Europe/London","fonts":["Helvetica"]}`
	h, err := LoadStaticHost(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("LoadStaticHost() error = %v", err)
	}
	s := Probe(h)
	if v, _ := s.Screen.Value(); v != "390x844x32@3" {
		t.Errorf("screen = %q", v)
	}
	if v, _ := s.Fonts.Value(); v != "Helvetica" {
		t.Errorf("fonts = %q", v)
	}
	if _, err := LoadStaticHost(strings.NewReader("{")); err == nil {
		t.Error("expected decode error")
	}
}
