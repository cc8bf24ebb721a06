// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/sitelens/internal/auth"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
	"github.com/tomtom215/sitelens/internal/validation"
)

// Login exchanges operator credentials for a JWT.
//
// Method: POST
// Endpoint: /api/v1/auth/login
//
// The token is returned in the body and also set as an HttpOnly cookie that
// expires with it.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if h.credentials == nil || h.jwtManager == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Authentication is not configured", nil)
		return
	}

	var req models.LoginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	if !h.credentials.Verify(req.Username, req.Password) {
		metrics.RecordAuthAttempt("invalid_credentials")
		logging.Ctx(r.Context()).Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Str("client_ip", h.clientIP(r)).
			Msg("Login failed: invalid credentials")
		respondError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid username or password", nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to generate authentication token", err)
		return
	}

	metrics.RecordAuthAttempt("success")
	logging.Ctx(r.Context()).Info().Str("username", sanitizeLogValue(req.Username)).Msg("Operator logged in")

	auth.SetTokenCookie(w, r, token, expiresAt)
	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  req.Username,
	}, time.Time{}, false)
}

// Logout revokes the presented token and clears the cookie. It succeeds even
// without a valid token so a client can always reset its state.
//
// Method: POST
// Endpoint: /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if h.authMW != nil {
		if claims, err := h.authMW.ClaimsFromRequest(r); err == nil {
			h.authMW.Revoke(claims)
			logging.Ctx(r.Context()).Info().Str("username", claims.Username).Msg("Operator logged out")
		}
	}

	auth.ClearTokenCookie(w, r)
	respondSuccess(w, http.StatusOK, map[string]bool{"logged_out": true}, time.Time{}, false)
}
