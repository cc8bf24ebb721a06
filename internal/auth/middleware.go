// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// TokenCookieName is the HttpOnly cookie carrying the operator token.
const TokenCookieName = "token"

// ErrCodeUnauthorized is the error code of every credential rejection.
const ErrCodeUnauthorized = "UNAUTHORIZED"

var (
	errMissingToken = errors.New("missing token")
	errBadHeader    = errors.New("invalid authorization header")
)

// Middleware gates privileged routes on a valid operator token and resolves
// client addresses behind trusted proxies.
type Middleware struct {
	jwtManager     *JWTManager
	revoked        *RevocationList
	trustedProxies map[string]bool
}

// NewMiddleware creates the authentication middleware. revoked may be nil.
func NewMiddleware(jwtManager *JWTManager, revoked *RevocationList, trustedProxies []string) *Middleware {
	trustedMap := make(map[string]bool, len(trustedProxies))
	for _, proxy := range trustedProxies {
		trustedMap[strings.TrimSpace(proxy)] = true
	}

	return &Middleware{
		jwtManager:     jwtManager,
		revoked:        revoked,
		trustedProxies: trustedMap,
	}
}

// Authenticate rejects requests without a valid, unrevoked token with 401
// and error code UNAUTHORIZED. The token is read from a Bearer
// Authorization header, falling back to the token cookie.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.ClaimsFromRequest(r)
		if err != nil {
			metrics.RecordAuthAttempt("invalid_token")
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected: unauthorized")
			writeUnauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// ClaimsFromRequest extracts and validates the request's token.
func (m *Middleware) ClaimsFromRequest(r *http.Request) (*Claims, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if m.revoked != nil && m.revoked.IsRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke invalidates the claims' token until it expires.
func (m *Middleware) Revoke(claims *Claims) {
	if m.revoked == nil || claims == nil || claims.ExpiresAt == nil {
		return
	}
	m.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
}

// GetClaims returns the claims stored by Authenticate, if any.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil || cookie.Value == "" {
			return "", errMissingToken
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errBadHeader
	}
	return parts[1], nil
}

// SetTokenCookie stores the token in an HttpOnly cookie that expires with it.
func SetTokenCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearTokenCookie expires the token cookie.
func ClearTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="sitelens"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(&models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    ErrCodeUnauthorized,
			Message: message,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode unauthorized response")
	}
}

// ClientIP returns the client address. Forwarding headers are honoured only
// when the direct peer is a trusted proxy.
func (m *Middleware) ClientIP(r *http.Request) string {
	remoteIP := remoteHost(r.RemoteAddr)

	if !m.isFromTrustedProxy(remoteIP) {
		return remoteIP
	}
	if clientIP := extractIPFromXFF(r); clientIP != "" {
		return clientIP
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return remoteIP
}

// KeyByClientIP adapts ClientIP to httprate's key function signature.
func (m *Middleware) KeyByClientIP(r *http.Request) (string, error) {
	return m.ClientIP(r), nil
}

func (m *Middleware) isFromTrustedProxy(remoteIP string) bool {
	return len(m.trustedProxies) > 0 && m.trustedProxies[remoteIP]
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// extractIPFromXFF returns the left-most valid address of X-Forwarded-For.
func extractIPFromXFF(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
	if net.ParseIP(clientIP) != nil {
		return clientIP
	}
	return ""
}
