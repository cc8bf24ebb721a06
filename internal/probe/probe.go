// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package probe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Signals holds one Result per identification primitive.
type Signals struct {
	Screen      Result
	Languages   Result
	Timezone    Result
	Connection  Result
	Memory      Result
	Cores       Result
	Canvas      Result
	Graphics    Result
	Fonts       Result
	Audio       Result
	Battery     Result
	Geolocation Result // always Unavailable(permission)
}

// CandidateFonts are checked against the baseline families.
var CandidateFonts = []string{
	"Arial", "Arial Black", "Calibri", "Cambria", "Comic Sans MS", "Consolas",
	"Courier New", "Georgia", "Helvetica", "Helvetica Neue", "Impact",
	"Lucida Console", "Menlo", "Monaco", "Palatino", "Segoe UI", "Tahoma",
	"Times New Roman", "Trebuchet MS", "Ubuntu", "Verdana",
}

var baselineFonts = []string{"monospace", "sans-serif", "serif"}

const fontSample = "mmmmmmmmmmlli"

// Probe measures every primitive on host. It never fails: each primitive
// that is missing, errors or panics yields an Unavailable result.
// Precise geolocation is never requested.
func Probe(host Host) Signals {
	return Signals{
		Screen:      attempt(func() (string, error) { return screen(host) }),
		Languages:   attempt(func() (string, error) { return languages(host) }),
		Timezone:    attempt(func() (string, error) { return host.Timezone() }),
		Connection:  attempt(func() (string, error) { return connection(host) }),
		Memory:      attempt(func() (string, error) { return memory(host) }),
		Cores:       attempt(func() (string, error) { return cores(host) }),
		Canvas:      attempt(func() (string, error) { return canvas(host) }),
		Graphics:    attempt(func() (string, error) { return graphics(host) }),
		Fonts:       attempt(func() (string, error) { return fonts(host) }),
		Audio:       attempt(func() (string, error) { return audio(host) }),
		Battery:     attempt(func() (string, error) { return battery(host) }),
		Geolocation: Unavailable(ReasonPermission),
	}
}

// attempt runs fn and converts errors and panics into Unavailable results.
func attempt(fn func() (string, error)) (r Result) {
	defer func() {
		if recover() != nil {
			r = Unavailable(ReasonError)
		}
	}()

	value, err := fn()
	switch {
	case err == nil:
		return Available(value)
	case errors.Is(err, ErrUnsupported):
		return Unavailable(ReasonUnsupported)
	case errors.Is(err, ErrPermissionRequired):
		return Unavailable(ReasonPermission)
	default:
		return Unavailable(ReasonError)
	}
}

func screen(host Host) (string, error) {
	s, err := host.Screen()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%dx%dx%d@%s", s.Width, s.Height, s.ColorDepth, formatFloat(s.PixelRatio)), nil
}

func languages(host Host) (string, error) {
	langs, err := host.Languages()
	if err != nil {
		return "", err
	}
	if len(langs) == 0 {
		return "", ErrUnsupported
	}
	return strings.Join(langs, ","), nil
}

func connection(host Host) (string, error) {
	c, err := host.Connection()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%s|%d|%t", c.EffectiveType, formatFloat(c.Downlink), c.RTT, c.SaveData), nil
}

func memory(host Host) (string, error) {
	m, err := host.DeviceMemory()
	if err != nil {
		return "", err
	}
	return formatFloat(m), nil
}

func cores(host Host) (string, error) {
	n, err := host.HardwareConcurrency()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func battery(host Host) (string, error) {
	b, err := host.Battery()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%t", formatFloat(b.Level), b.Charging), nil
}

func canvas(host Host) (string, error) {
	c, err := host.NewCanvas()
	if err != nil {
		return "", err
	}
	defer c.Release()
	return c.Render()
}

func graphics(host Host) (string, error) {
	g, err := host.NewGraphicsContext()
	if err != nil {
		return "", err
	}
	defer g.Release()

	vendor, err := g.Vendor()
	if err != nil {
		return "", err
	}
	renderer, err := g.Renderer()
	if err != nil {
		return "", err
	}
	return vendor + "~" + renderer, nil
}

func audio(host Host) (string, error) {
	a, err := host.NewAudioContext()
	if err != nil {
		return "", err
	}
	defer a.Release()
	return a.Signature()
}

// fonts detects installed fonts by comparing text widths against each
// baseline family. A font is present when any measurement differs from the
// corresponding baseline.
func fonts(host Host) (string, error) {
	baseline := make(map[string]float64, len(baselineFonts))
	for _, base := range baselineFonts {
		w, err := host.TextWidth(base, fontSample)
		if err != nil {
			return "", err
		}
		baseline[base] = w
	}

	detected := make([]string, 0, len(CandidateFonts))
	for _, font := range CandidateFonts {
		for _, base := range baselineFonts {
			w, err := host.TextWidth(strconv.Quote(font)+", "+base, fontSample)
			if err != nil {
				return "", err
			}
			if w != baseline[base] {
				detected = append(detected, font)
				break
			}
		}
	}
	return strings.Join(detected, ","), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
