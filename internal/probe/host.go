// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package probe

import "errors"

var (
	// ErrUnsupported is returned by a Host when it does not offer a primitive.
	ErrUnsupported = errors.New("probe: primitive not supported")

	// ErrPermissionRequired is returned by a Host for primitives that would prompt the user.
	ErrPermissionRequired = errors.New("probe: primitive requires user permission")
)

// Screen is display geometry.
type Screen struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	ColorDepth int     `json:"color_depth"`
	PixelRatio float64 `json:"pixel_ratio"`
}

// Connection is network introspection data.
type Connection struct {
	EffectiveType string  `json:"effective_type"`
	Downlink      float64 `json:"downlink"` // Mbit/s
	RTT           int     `json:"rtt"`      // ms
	SaveData      bool    `json:"save_data"`
}

// Battery is battery status.
type Battery struct {
	Level    float64 `json:"level"`
	Charging bool    `json:"charging"`
}

// Surface is a temporary allocation that must be released after measurement.
type Surface interface {
	Release()
}

// Canvas is a 2D drawing surface.
type Canvas interface {
	Surface
	// Render draws the fixed probe scene and returns its encoded pixel data.
	Render() (string, error)
}

// GraphicsContext is a 3D graphics context.
type GraphicsContext interface {
	Surface
	Vendor() (string, error)
	Renderer() (string, error)
}

// AudioContext is an offline audio-processing context.
type AudioContext interface {
	Surface
	// Signature renders the fixed oscillator graph and returns a summary of the output buffer.
	Signature() (string, error)
}

// Host exposes the identification primitives of one browser environment.
// Every method either returns a value, ErrUnsupported, ErrPermissionRequired,
// or another error. Methods may panic; the probe recovers.
type Host interface {
	Screen() (Screen, error)
	Languages() ([]string, error)
	Timezone() (string, error)
	Connection() (Connection, error)
	Battery() (Battery, error)
	DeviceMemory() (float64, error)
	HardwareConcurrency() (int, error)

	NewCanvas() (Canvas, error)
	NewGraphicsContext() (GraphicsContext, error)
	NewAudioContext() (AudioContext, error)

	// TextWidth measures sample rendered in the given CSS font-family list.
	TextWidth(fontFamily, sample string) (float64, error)
}
