// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package ingest

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tomtom215/sitelens/internal/models"
)

// Sanitizer strips markup from the free-text fields of an event before it
// is stored. The strict policy removes every tag and drops the content of
// script and style elements.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer using bluemonday's strict policy.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// unescaper decodes the entities the policy adds for ampersands and quotes.
// Angle brackets stay escaped.
var unescaper = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", "\"")

// Text returns v without markup.
func (s *Sanitizer) Text(v string) string {
	if v == "" || !strings.ContainsAny(v, "<>&") {
		return v
	}
	return strings.TrimSpace(unescaper.Replace(s.policy.Sanitize(v)))
}

// Event sanitizes ev in place.
func (s *Sanitizer) Event(ev *models.Event) {
	ev.Referrer = s.Text(ev.Referrer)
	ev.Client = s.Text(ev.Client)
	if ev.Click != nil {
		ev.Click.Text = s.Text(ev.Click.Text)
		ev.Click.ID = s.Text(ev.Click.ID)
		ev.Click.Class = s.Text(ev.Click.Class)
	}
	if ev.Copy != nil {
		ev.Copy.Sample = s.Text(ev.Copy.Sample)
	}
	if ev.Form != nil {
		ev.Form.FieldName = s.Text(ev.Form.FieldName)
	}
}
