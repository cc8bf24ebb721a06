// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package auth implements operator authentication for the dashboard endpoints.

There is a single operator account configured through ADMIN_USERNAME and
ADMIN_PASSWORD (clear text or a bcrypt hash). A successful login issues an
HS256 JWT valid for SESSION_TIMEOUT (2 hours by default), returned in the
response body and set as an HttpOnly cookie.

Key components:

  - OperatorCredentials: bcrypt password check with constant-time username match
  - JWTManager: token issue and validation (algorithm, issuer, expiry)
  - RevocationList: token IDs invalidated by logout, kept until natural expiry
  - Middleware: Authenticate gate, cookie helpers and proxy-aware ClientIP

Rejections are always 401 with error code UNAUTHORIZED, so a dashboard can
tell an authentication failure apart from a query that matched nothing.

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	revoked := auth.NewRevocationList()
	mw := auth.NewMiddleware(jwtManager, revoked, cfg.Security.TrustedProxies)

	r.Get("/api/v1/visitors", mw.Authenticate(handler.Visitors))
*/
package auth
