// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package models

import (
	"fmt"
	"time"
)

// EventType identifies the kind of telemetry event.
type EventType string

const (
	EventPageView        EventType = "page_view"
	EventScrollDepth     EventType = "scroll_depth"
	EventClick           EventType = "click"
	EventCopy            EventType = "copy"
	EventFormInteraction EventType = "form_interaction"
	EventTimeOnPage      EventType = "time_on_page"
	EventPageExit        EventType = "page_exit"
)

// FormInteraction is the specific kind of form field interaction.
type FormInteraction string

const (
	FormFocus  FormInteraction = "focus"
	FormBlur   FormInteraction = "blur"
	FormChange FormInteraction = "change"
)

// MovementClass summarizes pointer movement density over a page load.
type MovementClass string

const (
	MovementMinimal   MovementClass = "minimal"
	MovementModerate  MovementClass = "moderate"
	MovementExtensive MovementClass = "extensive"
)

// Event is one telemetry emission. Exactly one payload pointer is set for
// event types that carry a payload; page views carry none.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Type        EventType `json:"type" validate:"required,oneof=page_view scroll_depth click copy form_interaction time_on_page page_exit"`
	SessionID   string    `json:"session_id" validate:"required,max=64"`
	Fingerprint string    `json:"fingerprint" validate:"required,fingerprint"`
	Page        string    `json:"page" validate:"required,pagepath,max=2048"`
	Timestamp   time.Time `json:"timestamp" validate:"required"`
	Referrer    string    `json:"referrer,omitempty" validate:"max=2048"`
	Client      string    `json:"client,omitempty" validate:"max=512"` // user agent string

	Scroll *ScrollPayload `json:"scroll,omitempty"`
	Click  *ClickPayload  `json:"click,omitempty"`
	Copy   *CopyPayload   `json:"copy,omitempty"`
	Form   *FormPayload   `json:"form,omitempty"`
	Tick   *TickPayload   `json:"tick,omitempty"`
	Exit   *ExitPayload   `json:"exit,omitempty"`

	// Address is filled in by the server from the request, never by the client.
	Address string `json:"address,omitempty" validate:"-"`
}

// ScrollPayload carries a crossed scroll-depth threshold.
type ScrollPayload struct {
	Depth   int  `json:"depth" validate:"min=0,max=100"`
	Settled bool `json:"settled"` // emitted by the scroll-settle debounce
}

// ClickPayload describes the clicked element.
type ClickPayload struct {
	Tag   string `json:"tag" validate:"max=64"`
	ID    string `json:"id,omitempty" validate:"max=256"`
	Class string `json:"class,omitempty" validate:"max=512"`
	Text  string `json:"text,omitempty" validate:"max=512"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// CopyPayload describes a copy to the clipboard.
type CopyPayload struct {
	Length int    `json:"length" validate:"min=0"`
	Sample string `json:"sample,omitempty" validate:"max=512"`
}

// FormPayload describes a form field interaction.
type FormPayload struct {
	FieldType string          `json:"field_type" validate:"max=64"`
	FieldName string          `json:"field_name,omitempty" validate:"max=256"`
	Kind      FormInteraction `json:"kind" validate:"required,oneof=focus blur change"`
}

// TickPayload carries the elapsed whole seconds at a time-on-page emission.
type TickPayload struct {
	ElapsedSeconds int `json:"elapsed_seconds" validate:"min=0"`
}

// ExitPayload is the page-exit summary.
type ExitPayload struct {
	ElapsedMs      int64         `json:"elapsed_ms" validate:"min=0"`
	MaxScrollDepth int           `json:"max_scroll_depth" validate:"min=0,max=100"`
	ClickCount     int           `json:"click_count" validate:"min=0"`
	Movement       MovementClass `json:"movement" validate:"required,oneof=minimal moderate extensive"`
	Samples        int           `json:"samples" validate:"min=0"`
}

// CheckPayload reports an error when the payload does not match the event type.
func (e *Event) CheckPayload() error {
	var ok bool
	switch e.Type {
	case EventPageView:
		ok = true
	case EventScrollDepth:
		ok = e.Scroll != nil
	case EventClick:
		ok = e.Click != nil
	case EventCopy:
		ok = e.Copy != nil
	case EventFormInteraction:
		ok = e.Form != nil
	case EventTimeOnPage:
		ok = e.Tick != nil
	case EventPageExit:
		ok = e.Exit != nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if !ok {
		return fmt.Errorf("event type %q requires a %s payload", e.Type, payloadName(e.Type))
	}
	return nil
}

func payloadName(t EventType) string {
	switch t {
	case EventScrollDepth:
		return "scroll"
	case EventFormInteraction:
		return "form"
	case EventTimeOnPage:
		return "tick"
	case EventPageExit:
		return "exit"
	default:
		return string(t)
	}
}

// ExitKey is the deduplication key for page-exit summaries.
func (e *Event) ExitKey() string {
	return e.SessionID + "|" + e.Page + "|" + e.Timestamp.UTC().Format(time.RFC3339Nano)
}
