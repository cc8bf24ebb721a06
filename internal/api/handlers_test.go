// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/sitelens/internal/analytics"
	"github.com/tomtom215/sitelens/internal/auth"
	"github.com/tomtom215/sitelens/internal/config"
	"github.com/tomtom215/sitelens/internal/models"
	"github.com/tomtom215/sitelens/internal/query"
)

const (
	testSecret   = "test_secret_with_at_least_32_characters_for_testing"
	testUser     = "admin"
	testPassword = "password123"
)

// fakeStore is an in-memory VisitorStore and analytics.Source.
type fakeStore struct {
	records []models.Visitor
	pingErr error
	listErr error
	version int64
}

func (s *fakeStore) ListVisitors(_ context.Context, req query.Request) (query.Result, error) {
	if s.listErr != nil {
		return query.Result{}, s.listErr
	}
	return query.Apply(s.records, req), nil
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) VisitorsInRange(_ context.Context, from, to time.Time) ([]models.Visitor, error) {
	var out []models.Visitor
	for i := range s.records {
		if analytics.InWindow(&s.records[i], from, to) {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *fakeStore) DataVersion() int64 { return s.version }

type fakePublisher struct {
	mu     sync.Mutex
	events []models.Event
	hints  []models.GeoInfo
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, ev *models.Event, hints models.GeoInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *ev)
	p.hints = append(p.hints, hints)
	return nil
}

type testEnv struct {
	handler   *Handler
	store     *fakeStore
	publisher *fakePublisher
	jwt       *auth.JWTManager
	authMW    *auth.Middleware
	server    http.Handler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		API: config.APIConfig{DefaultPageSize: 25, DefaultTopN: 5, MaxTopN: 10},
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			SessionTimeout:    2 * time.Hour,
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
			TrustedProxies:    []string{"10.0.0.1"},
		},
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	creds, err := auth.NewOperatorCredentials(testUser, string(hash))
	if err != nil {
		t.Fatalf("NewOperatorCredentials: %v", err)
	}
	revoked := auth.NewRevocationList()
	t.Cleanup(revoked.Close)
	authMW := auth.NewMiddleware(jwtManager, revoked, cfg.Security.TrustedProxies)

	store := &fakeStore{records: sampleVisitors(), version: 1}
	pub := &fakePublisher{}

	h := NewHandler(HandlerDeps{
		DB:          store,
		Statistics:  analytics.NewService(store, nil),
		Publisher:   pub,
		Credentials: creds,
		JWTManager:  jwtManager,
		Auth:        authMW,
		Config:      cfg,
	})
	chiMW := NewChiMiddlewareFromConfig(&cfg.Security, authMW.KeyByClientIP)

	return &testEnv{
		handler:   h,
		store:     store,
		publisher: pub,
		jwt:       jwtManager,
		authMW:    authMW,
		server:    NewRouter(h, authMW, chiMW).SetupChi(),
	}
}

func sampleVisitors() []models.Visitor {
	now := time.Now().UTC()
	return []models.Visitor{
		{Address: "203.0.113.1", Fingerprint: "aaa", Organization: "Acme BV", Country: "NL", City: "Amsterdam",
			Pages: []string{"/", "/pricing"}, FirstVisited: now.Add(-48 * time.Hour), LastVisited: now.Add(-time.Hour), VisitCount: 3},
		{Address: "203.0.113.2", Fingerprint: "bbb", Organization: "Beta NV", Country: "BE", City: "Ghent",
			Pages: []string{"/"}, FirstVisited: now.Add(-2 * time.Hour), LastVisited: now.Add(-2 * time.Hour), VisitCount: 1},
		{Address: "203.0.113.3", Fingerprint: "ccc", Organization: "Acme BV", Country: "NL", City: "Utrecht",
			Pages: []string{"/docs"}, FirstVisited: now.Add(-72 * time.Hour), LastVisited: now.Add(-30 * time.Minute), VisitCount: 2},
	}
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, _, err := e.jwt.GenerateToken(testUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.RemoteAddr = "198.51.100.20:40000"
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, r)
	return w
}

type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata models.Metadata `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func validEventJSON() string {
	return fmt.Sprintf(`{"type":"page_view","session_id":"s-1","fingerprint":"k3j9x","page":"/pricing","timestamp":%q,"address":"6.6.6.6"}`,
		time.Now().UTC().Format(time.RFC3339))
}

func TestLog_Accepted(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/log", validEventJSON(), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", w.Code, w.Body.String())
	}

	if len(env.publisher.events) != 1 {
		t.Fatalf("published = %d, want 1", len(env.publisher.events))
	}
	ev := env.publisher.events[0]
	if ev.Address != "198.51.100.20" {
		t.Errorf("Address = %q, want connection address (body value ignored)", ev.Address)
	}
	if ev.Type != models.EventPageView || ev.Page != "/pricing" {
		t.Errorf("event = %+v", ev)
	}
}

func TestLog_TrustedProxyAndGeoHints(t *testing.T) {
	env := setupTestEnv(t)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/log", strings.NewReader(validEventJSON()))
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "192.0.2.44")
	r.Header.Set("CF-IPCountry", "NL")
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := env.publisher.events[0].Address; got != "192.0.2.44" {
		t.Errorf("Address = %q, want forwarded client", got)
	}
	if got := env.publisher.hints[0].Country; got != "NL" {
		t.Errorf("hint country = %q, want NL", got)
	}
}

func TestLog_Rejected(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339)
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"type":`, ErrCodeInvalidRequest},
		{"unknown type", fmt.Sprintf(`{"type":"hover","session_id":"s","fingerprint":"abc","page":"/","timestamp":%q}`, ts), "VALIDATION_ERROR"},
		{"bad fingerprint", fmt.Sprintf(`{"type":"page_view","session_id":"s","fingerprint":"NOT-OK","page":"/","timestamp":%q}`, ts), "VALIDATION_ERROR"},
		{"page without slash", fmt.Sprintf(`{"type":"page_view","session_id":"s","fingerprint":"abc","page":"pricing","timestamp":%q}`, ts), "VALIDATION_ERROR"},
		{"missing payload", fmt.Sprintf(`{"type":"click","session_id":"s","fingerprint":"abc","page":"/","timestamp":%q}`, ts), "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			w := env.do(t, http.MethodPost, "/api/v1/log", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", got.Error, tt.wantCode)
			}
			if len(env.publisher.events) != 0 {
				t.Error("rejected event was published")
			}
		})
	}
}

func TestLog_PublishFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.publisher.err = errors.New("bus down")

	w := env.do(t, http.MethodPost, "/api/v1/log", validEventJSON(), "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"valid", `{"username":"admin","password":"password123"}`, http.StatusOK, ""},
		{"wrong password", `{"username":"admin","password":"nope-nope"}`, http.StatusUnauthorized, ErrCodeInvalidCredentials},
		{"wrong user", `{"username":"root","password":"password123"}`, http.StatusUnauthorized, ErrCodeInvalidCredentials},
		{"missing password", `{"username":"admin"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad body", `not json`, http.StatusBadRequest, ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			w := env.do(t, http.MethodPost, "/api/v1/auth/login", tt.body, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			got := decodeEnvelope(t, w)
			if tt.wantCode != "" {
				if got.Error == nil || got.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want %s", got.Error, tt.wantCode)
				}
				return
			}

			var resp models.LoginResponse
			if err := json.Unmarshal(got.Data, &resp); err != nil {
				t.Fatalf("decode login response: %v", err)
			}
			if resp.Token == "" || resp.Username != testUser {
				t.Errorf("login response = %+v", resp)
			}
			if d := time.Until(resp.ExpiresAt); d < 119*time.Minute || d > 121*time.Minute {
				t.Errorf("token expires in %v, want ~2h", d)
			}
			var cookie *http.Cookie
			for _, c := range w.Result().Cookies() {
				if c.Name == auth.TokenCookieName {
					cookie = c
				}
			}
			if cookie == nil || !cookie.HttpOnly || cookie.Value != resp.Token {
				t.Errorf("token cookie = %+v", cookie)
			}
		})
	}
}

func TestQueryEndpoints_RequireCredential(t *testing.T) {
	env := setupTestEnv(t)
	for _, path := range []string{"/api/v1/visitors", "/api/v1/statistics"} {
		t.Run(path, func(t *testing.T) {
			for _, token := range []string{"", "garbage.token.value"} {
				w := env.do(t, http.MethodGet, path, "", token)
				if w.Code != http.StatusUnauthorized {
					t.Fatalf("token %q: status = %d, want 401", token, w.Code)
				}
				if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != ErrCodeUnauthorized {
					t.Errorf("error = %+v, want UNAUTHORIZED", got.Error)
				}
			}
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t)

	if w := env.do(t, http.MethodGet, "/api/v1/visitors", "", token); w.Code != http.StatusOK {
		t.Fatalf("before logout: status = %d", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.TokenCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout did not clear the token cookie")
	}

	if w := env.do(t, http.MethodGet, "/api/v1/visitors", "", token); w.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401", w.Code)
	}

	// logout without a credential still succeeds
	if w := env.do(t, http.MethodPost, "/api/v1/auth/logout", "", ""); w.Code != http.StatusOK {
		t.Errorf("anonymous logout status = %d", w.Code)
	}
}

func TestVisitors(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t)

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantFirst string
		wantSize  int
	}{
		{"default sort last seen desc", "", 3, "203.0.113.3", 25},
		{"country filter", "?country=nl", 2, "203.0.113.3", 25},
		{"conjunction", "?country=NL&organization=beta", 0, "", 25},
		{"sort asc", "?sort=visit_count&order=asc", 3, "203.0.113.2", 25},
		{"unknown sort falls back", "?sort=password&page_size=7", 3, "203.0.113.3", 25},
		{"page size 10", "?page_size=10", 3, "203.0.113.3", 10},
		{"page past end", "?page=9", 3, "", 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/visitors"+tt.query, "", token)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			got := decodeEnvelope(t, w)
			if got.Status != "success" {
				t.Fatalf("status = %q", got.Status)
			}
			var page VisitorPage
			if err := json.Unmarshal(got.Data, &page); err != nil {
				t.Fatalf("decode page: %v", err)
			}
			if page.TotalItems != tt.wantTotal {
				t.Errorf("TotalItems = %d, want %d", page.TotalItems, tt.wantTotal)
			}
			if page.PageSize != tt.wantSize {
				t.Errorf("PageSize = %d, want %d", page.PageSize, tt.wantSize)
			}
			if tt.wantFirst == "" {
				if len(page.Items) != 0 {
					t.Errorf("Items = %d, want empty page", len(page.Items))
				}
				return
			}
			if len(page.Items) == 0 || page.Items[0].Address != tt.wantFirst {
				t.Errorf("first item = %+v, want %s", page.Items, tt.wantFirst)
			}
		})
	}
}

func TestVisitors_PagePastEndMarksNoCurrentLink(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/visitors?page=5&page_size=10", "", env.token(t))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var page VisitorPage
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Page != 5 || page.TotalPages != 1 || len(page.Items) != 0 {
		t.Errorf("page = %d of %d with %d items, want empty page 5 of 1", page.Page, page.TotalPages, len(page.Items))
	}
	for _, l := range page.Links {
		if l.Current {
			t.Errorf("link %+v marked current for page %d", l, page.Page)
		}
	}
}

func TestVisitors_StoreError(t *testing.T) {
	env := setupTestEnv(t)
	env.store.listErr = errors.New("disk full")

	w := env.do(t, http.MethodGet, "/api/v1/visitors", "", env.token(t))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != ErrCodeDatabaseError {
		t.Errorf("error = %+v", got.Error)
	}
}

func TestStatistics(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t)

	w := env.do(t, http.MethodGet, "/api/v1/statistics?window=7d&top=2", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var stats models.Statistics
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.Window != "7d" {
		t.Errorf("Window = %q, want 7d", stats.Window)
	}
	if stats.UniqueVisitors != 3 || stats.TotalVisits != 6 {
		t.Errorf("unique = %d, total = %d; want 3 and 6", stats.UniqueVisitors, stats.TotalVisits)
	}
	if stats.NewVisitors+stats.ReturningVisitors != stats.UniqueVisitors {
		t.Errorf("new %d + returning %d != unique %d", stats.NewVisitors, stats.ReturningVisitors, stats.UniqueVisitors)
	}
	if len(stats.TopCountries) != 2 || stats.TopCountries[0].Name != "NL" {
		t.Errorf("TopCountries = %+v", stats.TopCountries)
	}

	w = env.do(t, http.MethodGet, "/api/v1/statistics?window=bogus", "", token)
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.Window != "30d" {
		t.Errorf("invalid window resolved to %q, want 30d", stats.Window)
	}
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/health/live", "", ""); w.Code != http.StatusOK {
		t.Errorf("live status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/health/ready", "", ""); w.Code != http.StatusOK {
		t.Errorf("ready status = %d", w.Code)
	}

	env.store.pingErr = errors.New("gone")
	w := env.do(t, http.MethodGet, "/api/v1/health/ready", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with db down status = %d, want 503", w.Code)
	}
	var hs models.HealthStatus
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &hs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hs.DatabaseConnected {
		t.Error("DatabaseConnected = true with failing ping")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	w := env.do(t, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("metrics output missing go runtime collectors")
	}
}

func TestParseTimeParam(t *testing.T) {
	if parseTimeParam("", false) != nil || parseTimeParam("yesterday", false) != nil {
		t.Error("invalid input should yield nil")
	}
	from := parseTimeParam("2026-04-01", false)
	to := parseTimeParam("2026-04-01", true)
	if from == nil || to == nil {
		t.Fatal("date not parsed")
	}
	if !to.After(*from) || to.Sub(*from) >= 24*time.Hour {
		t.Errorf("to-of-day = %v, from = %v", to, from)
	}
	if ts := parseTimeParam("2026-04-01T10:00:00Z", true); ts == nil || ts.Hour() != 10 {
		t.Errorf("RFC 3339 parse = %v", ts)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("ok\nforged"); got != "ok\\x0aforged" {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
