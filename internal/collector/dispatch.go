// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package collector

import "sync"

// EventType names a UI event.
type EventType string

const (
	Scroll      EventType = "scroll"
	PointerMove EventType = "pointermove"
	Click       EventType = "click"
	Copy        EventType = "copy"
	Focus       EventType = "focus"
	Blur        EventType = "blur"
	Change      EventType = "change"
	Unload      EventType = "unload"
)

// Target describes the element a UI event was dispatched on.
type Target struct {
	Tag       string `json:"tag,omitempty"`
	ID        string `json:"id,omitempty"`
	Class     string `json:"class,omitempty"`
	Text      string `json:"text,omitempty"`
	FieldType string `json:"field_type,omitempty"` // input type attribute
	FieldName string `json:"field_name,omitempty"`
}

// DOMEvent is one event from the page (a simulated DOM event). Only the fields relevant to Type are set.
type DOMEvent struct {
	Type   EventType `json:"type"`
	Target Target    `json:"target,omitempty"`

	// pointermove, click
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// scroll
	ScrollTop      float64 `json:"scroll_top,omitempty"`
	ScrollHeight   float64 `json:"scroll_height,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`

	// copy
	Selection string `json:"selection,omitempty"`
}

// Handler handles one UI event.
type Handler func(DOMEvent)

// Subscription pairs an event type with its handler.
type Subscription struct {
	Type    EventType
	Handler Handler
}

// Dispatcher routes UI events to subscriptions. It stands in for the page's
// listener registry so event sequences can be simulated without a browser.
type Dispatcher struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// NewDispatcher returns a Dispatcher with no subscriptions.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers sub.
func (d *Dispatcher) Subscribe(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, sub)
}

// Unsubscribe removes sub. Removing an unknown subscription is a no-op.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.subs {
		if s == sub {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered subscriptions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Dispatch delivers ev to every subscription for its type, in registration order.
func (d *Dispatcher) Dispatch(ev DOMEvent) {
	d.mu.RLock()
	matched := make([]Handler, 0, 2)
	for _, s := range d.subs {
		if s.Type == ev.Type {
			matched = append(matched, s.Handler)
		}
	}
	d.mu.RUnlock()

	for _, h := range matched {
		h(ev)
	}
}
