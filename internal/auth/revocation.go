// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package auth

import (
	"time"

	"github.com/tomtom215/sitelens/internal/cache"
)

// RevocationList remembers the IDs of tokens invalidated by logout until
// they would have expired anyway.
type RevocationList struct {
	entries *cache.Cache
	now     func() time.Time
}

// NewRevocationList creates an empty list. Close releases its sweeper.
func NewRevocationList() *RevocationList {
	return &RevocationList{
		entries: cache.New(time.Hour),
		now:     time.Now,
	}
}

// Revoke invalidates the token ID until expiresAt.
func (l *RevocationList) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return
	}
	l.entries.SetWithTTL(jti, struct{}{}, ttl)
}

// IsRevoked reports whether jti was revoked and has not yet expired.
func (l *RevocationList) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	_, ok := l.entries.Get(jti)
	return ok
}

// Close stops the background sweep.
func (l *RevocationList) Close() {
	l.entries.Close()
}
