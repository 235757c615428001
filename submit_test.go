/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Seednode/trexboard/ranking"
	"github.com/Seednode/trexboard/store"
	"github.com/Seednode/trexboard/store/supabase"
	"github.com/tidwall/gjson"
)

func testConfig() *Config {
	return &Config{
		backend: backendMemory,
		bind:    "127.0.0.1",
		port:    8080,
	}
}

func newTestRouter(t *testing.T, scores store.Store) http.Handler {
	t.Helper()

	errs := make(chan error, 64)
	return newRouter(testConfig(), scores, newMemoryDirectory(), newLobby(), errs)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder, methods string) {
	t.Helper()

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
		t.Fatalf("allow-headers = %q, want %q", got, corsAllowHeaders)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != methods {
		t.Fatalf("allow-methods = %q, want %q", got, methods)
	}
}

func TestSubmitScoreResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
		reply  string
	}{
		{name: "accepted", body: `{"name":"Rex","score":120}`, status: http.StatusOK, reply: `{"ok":true}`},
		{name: "fractional score", body: `{"name":"Rex","score":120.9}`, status: http.StatusOK, reply: `{"ok":true}`},
		{name: "numeric string score", body: `{"name":"Rex","score":"77"}`, status: http.StatusOK, reply: `{"ok":true}`},
		{name: "not json", body: `{"name":`, status: http.StatusBadRequest, reply: `{"error":"Invalid JSON"}`},
		{name: "empty body", body: ``, status: http.StatusBadRequest, reply: `{"error":"Invalid JSON"}`},
		{name: "missing name", body: `{"score":10}`, status: http.StatusBadRequest, reply: `{"error":"Missing name"}`},
		{name: "blank name", body: `{"name":"   ","score":10}`, status: http.StatusBadRequest, reply: `{"error":"Missing name"}`},
		{name: "array body", body: `[1,2]`, status: http.StatusBadRequest, reply: `{"error":"Missing name"}`},
		{name: "missing score", body: `{"name":"Rex"}`, status: http.StatusBadRequest, reply: `{"error":"Invalid score"}`},
		{name: "word score", body: `{"name":"Rex","score":"lots"}`, status: http.StatusBadRequest, reply: `{"error":"Invalid score"}`},
		{name: "negative score", body: `{"name":"Rex","score":-1}`, status: http.StatusBadRequest, reply: `{"error":"Score out of range"}`},
		{name: "huge score", body: `{"name":"Rex","score":1000000}`, status: http.StatusBadRequest, reply: `{"error":"Score out of range"}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestRouter(t, store.NewMemory())
			rec := do(t, h, http.MethodPost, "/submit-score", tc.body)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			if got := rec.Body.String(); got != tc.reply {
				t.Fatalf("body = %s, want %s", got, tc.reply)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Fatalf("content-type = %q", got)
			}
			assertCORS(t, rec, submitMethods)
		})
	}
}

func TestSubmitScoreStoresNormalizedRow(t *testing.T) {
	t.Parallel()

	scores := store.NewMemory()
	h := newTestRouter(t, scores)

	rec := do(t, h, http.MethodPost, "/submit-score", `{"name":"  Tiny    Rex  ","score":99.99}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	records, err := scores.Top(context.Background(), 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Tiny Rex" || records[0].Score != 99 {
		t.Fatalf("records = %+v", records)
	}
}

func TestSubmitScoreWithoutStore(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/submit-score", `{"name":"Rex","score":10}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "error").String(); got != missingConfigMessage {
		t.Fatalf("error = %q", got)
	}

	// Input is checked before configuration.
	rec = do(t, h, http.MethodPost, "/submit-score", `{"score":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Insert(context.Context, ranking.Submission) (ranking.Record, error) {
	return ranking.Record{}, f.err
}

func (f failingStore) Top(context.Context, int) ([]ranking.Record, error) {
	return nil, f.err
}

func TestSubmitScoreStoreFailure(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, failingStore{err: errors.New("new row violates check constraint")})

	rec := do(t, h, http.MethodPost, "/submit-score", `{"name":"Rex","score":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := rec.Body.String(); got != `{"error":"new row violates check constraint"}` {
		t.Fatalf("body = %s", got)
	}

	rec = do(t, h, http.MethodGet, "/leaderboard", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("leaderboard status = %d, want 502", rec.Code)
	}
}

func TestSubmitScoreRelaysPostgrestMessage(t *testing.T) {
	t.Parallel()

	refused := fmt.Errorf("insert score: %w", &supabase.Error{
		Status:  http.StatusForbidden,
		Message: `new row violates row-level security policy for table "scores"`,
	})
	h := newTestRouter(t, failingStore{err: refused})

	rec := do(t, h, http.MethodPost, "/submit-score", `{"name":"Rex","score":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "error").String(); got != `new row violates row-level security policy for table "scores"` {
		t.Fatalf("error = %q", got)
	}
}

func TestSubmitScoreMethods(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, store.NewMemory())

	rec := do(t, h, http.MethodOptions, "/submit-score", "")
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("preflight = %d %q", rec.Code, rec.Body.String())
	}
	assertCORS(t, rec, submitMethods)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, h, method, "/submit-score", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s status = %d, want 405", method, rec.Code)
		}
		if got := rec.Body.String(); got != `{"error":"Method not allowed"}` {
			t.Fatalf("%s body = %s", method, got)
		}
		assertCORS(t, rec, submitMethods)
	}
}

func TestLeaderboardOrderAndLimit(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, store.NewMemory())

	for _, body := range []string{
		`{"name":"Ann","score":50}`,
		`{"name":"Bob","score":80}`,
		`{"name":"Cat","score":80}`,
		`{"name":"Dan","score":30}`,
	} {
		if rec := do(t, h, http.MethodPost, "/submit-score", body); rec.Code != http.StatusOK {
			t.Fatalf("seed %s: status %d", body, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	assertCORS(t, rec, leaderboardMethods)

	var names []string
	for _, row := range gjson.Get(rec.Body.String(), "scores").Array() {
		names = append(names, row.Get("name").String())
	}
	if got := strings.Join(names, ","); got != "Bob,Cat,Ann,Dan" {
		t.Fatalf("order = %s, want Bob,Cat,Ann,Dan", got)
	}

	tests := map[string]int{
		"/leaderboard?limit=2":    2,
		"/leaderboard?limit=0":    1,
		"/leaderboard?limit=-5":   1,
		"/leaderboard?limit=500":  4,
		"/leaderboard?limit=nope": 4,
	}
	for target, want := range tests {
		rec := do(t, h, http.MethodGet, target, "")
		if got := len(gjson.Get(rec.Body.String(), "scores").Array()); got != want {
			t.Fatalf("%s returned %d rows, want %d", target, got, want)
		}
	}
}

func TestLeaderboardEmptyAndUnconfigured(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t, store.NewMemory()), http.MethodGet, "/leaderboard", "")
	if got := rec.Body.String(); got != `{"scores":[]}` {
		t.Fatalf("empty body = %s", got)
	}

	rec = do(t, newTestRouter(t, nil), http.MethodGet, "/leaderboard", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unconfigured status = %d, want 500", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	if rec := do(t, newTestRouter(t, store.NewMemory()), http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rec.Code)
	}
	if rec := do(t, newTestRouter(t, nil), http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("storeless status = %d", rec.Code)
	}

	rec := do(t, newTestRouter(t, failingStore{err: errors.New("down")}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing status = %d, want 503", rec.Code)
	}
}

func TestStaticRoutes(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, nil)

	tests := []struct {
		target      string
		contentType string
	}{
		{"/", "text/html; charset=utf-8"},
		{"/assets/app.js", "text/javascript; charset=utf-8"},
		{"/assets/app.css", "text/css; charset=utf-8"},
		{"/favicons/favicon.svg", "image/svg+xml"},
		{"/version", "text/plain; charset=utf-8"},
		{"/qr", "image/png"},
	}

	for _, tc := range tests {
		rec := do(t, h, http.MethodGet, tc.target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", tc.target, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != tc.contentType {
			t.Fatalf("%s content-type = %q, want %q", tc.target, got, tc.contentType)
		}
	}

	if rec := do(t, h, http.MethodGet, "/assets/missing.js", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing asset status = %d", rec.Code)
	}
}
