package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Simplici0/waterflow/internal/db"
	"github.com/Simplici0/waterflow/internal/hydraulics"
	"github.com/Simplici0/waterflow/internal/migrations"
	"github.com/Simplici0/waterflow/internal/seed"
)

const (
	testAdminEmail    = "admin@waterflow.test"
	testAdminPassword = "tank-and-tower"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := seed.Run(context.Background(), database, seed.Config{
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPassword,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	return newServer(database, "test-secret", hydraulics.DefaultSystem())
}

func serve(t *testing.T, s *server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, s *server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(t, s, req)
}

func postForm(t *testing.T, s *server, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(t, s, req)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, s *server) *http.Cookie {
	t.Helper()
	rec := postForm(t, s, "/login", url.Values{"email": {testAdminEmail}, "password": {testAdminPassword}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("login did not set %s cookie", sessionCookieName)
	return nil
}

func countRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestHandleSystem_ReturnsActiveSystem(t *testing.T) {
	s := newTestServer(t)

	sys := hydraulics.DefaultSystem()
	sys.Household.FrictionFactor = 0.02
	s.setSystem(sys)

	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/api/system", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	var got hydraulics.System
	decodeBody(t, rec, &got)
	if got != sys {
		t.Fatalf("system=%+v, want %+v", got, sys)
	}
}

func TestHandleMetrics_CountsOutcomes(t *testing.T) {
	s := newTestServer(t)

	postJSON(t, s, "/api/pressure", scenarioBody)
	postJSON(t, s, "/api/pressure", `{"tower_height":10,"tank_height":2,"supply_pipe_length":-1,"fitting_count":2,"house_pipe_length":20}`)

	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`waterflow_calculations_total{outcome="ok"} 1`,
		`waterflow_calculations_total{outcome="invalid"} 1`,
		`waterflow_calculations_total{outcome="domain"} 0`,
		"# TYPE waterflow_last_pressure_kpa gauge",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestParseFloatHelpers(t *testing.T) {
	if v, err := parsePositiveFloat(" 0.05 ", "d"); err != nil || v != 0.05 {
		t.Fatalf("parsePositiveFloat=%v,%v", v, err)
	}
	for _, raw := range []string{"0", "-1", "abc", "NaN", "Inf", ""} {
		if _, err := parsePositiveFloat(raw, "d"); err == nil {
			t.Fatalf("parsePositiveFloat(%q) expected error", raw)
		}
	}

	if v, err := parseNonNegativeFloat("0", "f"); err != nil || v != 0 {
		t.Fatalf("parseNonNegativeFloat=%v,%v", v, err)
	}
	for _, raw := range []string{"-0.1", "x", "+Inf"} {
		if _, err := parseNonNegativeFloat(raw, "f"); err == nil {
			t.Fatalf("parseNonNegativeFloat(%q) expected error", raw)
		}
	}

	if id, err := parseID("7"); err != nil || id != 7 {
		t.Fatalf("parseID=%v,%v", id, err)
	}
	for _, raw := range []string{"0", "-3", "seven"} {
		if _, err := parseID(raw); err == nil {
			t.Fatalf("parseID(%q) expected error", raw)
		}
	}
}
