// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package clientstate

import (
	"time"

	"github.com/google/uuid"
)

// CredentialTTL is how long a cached dashboard credential is trusted.
const CredentialTTL = 2 * time.Hour

// Consent is the cookie-consent preference set. Only Analytics gates telemetry.
type Consent struct {
	Necessary   bool `json:"necessary"`
	Analytics   bool `json:"analytics"`
	Marketing   bool `json:"marketing"`
	Preferences bool `json:"preferences"`
}

// DefaultConsent is the preference set before the visitor has chosen:
// necessary storage only.
func DefaultConsent() Consent {
	return Consent{Necessary: true}
}

// Credential is the cached operator token.
type Credential struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// State is everything persisted client-side for one browser.
type State struct {
	SessionID    string     `json:"session_id"`
	SessionStart time.Time  `json:"session_start"`
	VisitCount   int        `json:"visit_count"`
	FirstVisit   time.Time  `json:"first_visit"`
	Fingerprint  string     `json:"fingerprint,omitempty"`
	Credential   Credential `json:"credential"`
	Consent      Consent    `json:"consent"`
}

// newSessionID is replaced in tests that need stable identifiers.
var newSessionID = uuid.NewString

// Initialized reports whether the state has a session.
func (s State) Initialized() bool {
	return s.SessionID != ""
}

// ReadOrInit returns s unchanged when it already has a session, or a new
// state with a fresh session id and timestamps set to now. The second
// return value reports whether a session was created. Consent survives
// initialization so a choice made before the first page load is kept.
func ReadOrInit(s State, now time.Time) (State, bool) {
	if s.Initialized() {
		return s, false
	}
	consent := s.Consent
	if consent == (Consent{}) {
		consent = DefaultConsent()
	}
	return State{
		SessionID:    newSessionID(),
		SessionStart: now,
		VisitCount:   0,
		FirstVisit:   now,
		Consent:      consent,
	}, true
}

// IncrementVisit returns s with the visit counter advanced by one.
func IncrementVisit(s State) State {
	s.VisitCount++
	return s
}

// WithFingerprint returns s with the fingerprint token replaced.
func WithFingerprint(s State, token string) State {
	s.Fingerprint = token
	return s
}

// WithConsent returns s with new consent preferences. Withdrawing analytics
// consent also drops the stored fingerprint.
func WithConsent(s State, c Consent) State {
	c.Necessary = true
	s.Consent = c
	if !c.Analytics {
		s.Fingerprint = ""
	}
	return s
}

// AnalyticsAllowed reports whether telemetry may be emitted.
func AnalyticsAllowed(s State) bool {
	return s.Consent.Analytics
}

// IsAuthenticated reports whether a credential is cached and not expired at now.
// It must be called on every privileged read; the cache is never trusted on its own.
func IsAuthenticated(s State, now time.Time) bool {
	return s.Credential.Token != "" && now.Before(s.Credential.ExpiresAt)
}

// SetAuthenticated caches token with an expiry of now plus CredentialTTL.
func SetAuthenticated(s State, token string, now time.Time) State {
	s.Credential = Credential{Token: token, ExpiresAt: now.Add(CredentialTTL)}
	return s
}

// SetAuthenticatedUntil caches token with an explicit expiry, for servers
// that return their own expires_at. The expiry is capped at now plus CredentialTTL.
func SetAuthenticatedUntil(s State, token string, expiresAt, now time.Time) State {
	if limit := now.Add(CredentialTTL); expiresAt.After(limit) {
		expiresAt = limit
	}
	s.Credential = Credential{Token: token, ExpiresAt: expiresAt}
	return s
}

// ClearAuthentication drops the cached credential (logout).
func ClearAuthentication(s State) State {
	s.Credential = Credential{}
	return s
}

// ExpireCredential clears the credential if it is expired at now.
func ExpireCredential(s State, now time.Time) State {
	if s.Credential.Token != "" && !IsAuthenticated(s, now) {
		return ClearAuthentication(s)
	}
	return s
}
