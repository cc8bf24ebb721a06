// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package probe

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
)

// StaticHost is a fixture-backed Host. Absent fields report ErrUnsupported;
// primitives named in Failing report an error; primitives named in Panicking panic.
// It is used by the replay collector and by tests.
type StaticHost struct {
	ScreenInfo     *Screen     `json:"screen,omitempty"`
	Langs          []string    `json:"languages,omitempty"`
	TZ             string      `json:"timezone,omitempty"`
	Conn           *Connection `json:"connection,omitempty"`
	Batt           *Battery    `json:"battery,omitempty"`
	Memory         float64     `json:"device_memory,omitempty"`
	Cores          int         `json:"hardware_concurrency,omitempty"`
	CanvasData     string      `json:"canvas,omitempty"`
	GLVendor       string      `json:"gl_vendor,omitempty"`
	GLRenderer     string      `json:"gl_renderer,omitempty"`
	AudioSignature string      `json:"audio,omitempty"`
	InstalledFonts []string    `json:"fonts,omitempty"`
	Failing        []string    `json:"failing,omitempty"`
	Panicking      []string    `json:"panicking,omitempty"`

	acquired atomic.Int32
	released atomic.Int32
}

var errStaticFailure = errors.New("probe: static host failure")

// LoadStaticHost decodes a StaticHost from JSON.
func LoadStaticHost(r io.Reader) (*StaticHost, error) {
	h := &StaticHost{}
	if err := json.NewDecoder(r).Decode(h); err != nil {
		return nil, fmt.Errorf("failed to decode host fixture: %w", err)
	}
	return h, nil
}

// Outstanding returns the number of acquired surfaces not yet released.
func (h *StaticHost) Outstanding() int {
	return int(h.acquired.Load() - h.released.Load())
}

func (h *StaticHost) check(primitive string) error {
	for _, p := range h.Panicking {
		if p == primitive {
			panic("static host: " + primitive)
		}
	}
	for _, f := range h.Failing {
		if f == primitive {
			return fmt.Errorf("%s: %w", primitive, errStaticFailure)
		}
	}
	return nil
}

func (h *StaticHost) Screen() (Screen, error) {
	if err := h.check("screen"); err != nil {
		return Screen{}, err
	}
	if h.ScreenInfo == nil {
		return Screen{}, ErrUnsupported
	}
	return *h.ScreenInfo, nil
}

func (h *StaticHost) Languages() ([]string, error) {
	if err := h.check("languages"); err != nil {
		return nil, err
	}
	return h.Langs, nil
}

func (h *StaticHost) Timezone() (string, error) {
	if err := h.check("timezone"); err != nil {
		return "", err
	}
	if h.TZ == "" {
		return "", ErrUnsupported
	}
	return h.TZ, nil
}

func (h *StaticHost) Connection() (Connection, error) {
	if err := h.check("connection"); err != nil {
		return Connection{}, err
	}
	if h.Conn == nil {
		return Connection{}, ErrUnsupported
	}
	return *h.Conn, nil
}

func (h *StaticHost) Battery() (Battery, error) {
	if err := h.check("battery"); err != nil {
		return Battery{}, err
	}
	if h.Batt == nil {
		return Battery{}, ErrUnsupported
	}
	return *h.Batt, nil
}

func (h *StaticHost) DeviceMemory() (float64, error) {
	if err := h.check("memory"); err != nil {
		return 0, err
	}
	if h.Memory == 0 {
		return 0, ErrUnsupported
	}
	return h.Memory, nil
}

func (h *StaticHost) HardwareConcurrency() (int, error) {
	if err := h.check("cores"); err != nil {
		return 0, err
	}
	if h.Cores == 0 {
		return 0, ErrUnsupported
	}
	return h.Cores, nil
}

func (h *StaticHost) NewCanvas() (Canvas, error) {
	if h.CanvasData == "" {
		return nil, ErrUnsupported
	}
	h.acquired.Add(1)
	return &staticSurface{host: h, primitive: "canvas", data: h.CanvasData}, nil
}

func (h *StaticHost) NewGraphicsContext() (GraphicsContext, error) {
	if h.GLVendor == "" && h.GLRenderer == "" {
		return nil, ErrUnsupported
	}
	h.acquired.Add(1)
	return &staticSurface{host: h, primitive: "graphics", vendor: h.GLVendor, renderer: h.GLRenderer}, nil
}

func (h *StaticHost) NewAudioContext() (AudioContext, error) {
	if h.AudioSignature == "" {
		return nil, ErrUnsupported
	}
	h.acquired.Add(1)
	return &staticSurface{host: h, primitive: "audio", data: h.AudioSignature}, nil
}

// TextWidth returns a per-character width that depends on the first
// installed family in the list, so installed fonts measure differently
// from every baseline.
func (h *StaticHost) TextWidth(fontFamily, sample string) (float64, error) {
	if err := h.check("fonts"); err != nil {
		return 0, err
	}
	if h.InstalledFonts == nil {
		return 0, ErrUnsupported
	}
	perChar := 10.0
	for _, family := range strings.Split(fontFamily, ",") {
		family = strings.TrimSpace(family)
		if unq, err := strconv.Unquote(family); err == nil {
			family = unq
		}
		if w, ok := baselineWidth(family); ok {
			perChar = w
			break
		}
		if h.installed(family) {
			perChar = 6.5 + float64(len(family)%7)*0.1
			break
		}
	}
	return perChar * float64(len(sample)), nil
}

func (h *StaticHost) installed(family string) bool {
	for _, f := range h.InstalledFonts {
		if strings.EqualFold(f, family) {
			return true
		}
	}
	return false
}

func baselineWidth(family string) (float64, bool) {
	switch family {
	case "monospace":
		return 10, true
	case "sans-serif":
		return 8, true
	case "serif":
		return 9, true
	}
	return 0, false
}

type staticSurface struct {
	host      *StaticHost
	primitive string
	data      string
	vendor    string
	renderer  string
	released  bool
}

func (s *staticSurface) Release() {
	if s.released {
		return
	}
	s.released = true
	s.host.released.Add(1)
}

func (s *staticSurface) Render() (string, error) {
	if err := s.host.check(s.primitive); err != nil {
		return "", err
	}
	return s.data, nil
}

func (s *staticSurface) Signature() (string, error) {
	return s.Render()
}

func (s *staticSurface) Vendor() (string, error) {
	if err := s.host.check(s.primitive); err != nil {
		return "", err
	}
	return s.vendor, nil
}

func (s *staticSurface) Renderer() (string, error) {
	return s.renderer, nil
}
