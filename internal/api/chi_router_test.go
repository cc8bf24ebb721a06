// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSetupChi_Routing(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound, "NOT_FOUND"},
		{"log wrong method", http.MethodGet, "/api/v1/log", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{"login wrong method", http.MethodGet, "/api/v1/auth/login", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{"unknown api route requires credential", http.MethodGet, "/api/v1/nope", http.StatusUnauthorized, ErrCodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, "", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", got.Error, tt.wantCode)
			}
		})
	}
}

func TestSetupChi_RequestIDAndHeaders(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set("X-Request-ID", "probe-1")
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "probe-1" {
		t.Errorf("X-Request-ID = %q, want probe-1", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("ETag missing")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestSetupChi_Preflight(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/log", nil)
	req.Header.Set("Origin", "https://site.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code >= 300 {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
