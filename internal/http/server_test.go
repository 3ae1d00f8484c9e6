package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"seguimiento/internal/activity"
	"seguimiento/internal/core"
	"seguimiento/internal/gateway/memory"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

const (
	adminEmail = "admin@ungrd.gov.co"
	userEmail  = "user@ungrd.gov.co"
	password   = "secreto"
)

type fixture struct {
	t        *testing.T
	srv      *Server
	gw       *memory.Store
	sessions *session.Service
	recorder *activity.Recorder
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func seedGateway() *memory.Store {
	gw := memory.New(
		[]core.Record{
			{"PROYECTO": "Alpha", "ACTIVIDAD": "Talleres", "ENERO": "10", "META ANUAL": "100"},
			{"PROYECTO": "Alpha", "ACTIVIDAD": "Visitas", "ENERO": "2"},
			{"PROYECTO": "Beta", "ACTIVIDAD": "Obras", "ENERO": "5"},
		},
		[]core.Record{
			{"Proyecto": "Alpha", "BPIN": "111", "Tipo de Valor": "Total CDP", "Valor": "80", "Fecha Corte": "2025-02-28"},
			{"Proyecto": "Alpha", "BPIN": "111", "Tipo de Valor": "Total CDP", "Valor": "100", "Fecha Corte": "2025-03-31"},
			{"Proyecto": "Alpha", "BPIN": "111", "Tipo de Valor": "Total Comprometido", "Valor": "50", "Porcentaje": "40", "Fecha Corte": "2025-03-31"},
			{"Proyecto": "Alpha", "BPIN": "111", "Tipo de Valor": "Otro concepto", "Valor": "5", "Fecha Corte": "2025-03-31"},
			{"Proyecto": "Beta", "BPIN": "222", "Tipo de Valor": "Total CDP", "Valor": "30", "Fecha Corte": "2025-03-31"},
		},
		[]core.User{{Email: adminEmail, Password: password}, {Email: userEmail, Password: password}},
	)
	gw.SetAdmin(adminEmail, true)
	return gw
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	gw := seedGateway()
	logger := quietLogger()
	sessions := session.NewService(session.NewMemoryStore(), 0)
	rec := activity.NewRecorder(gw, activity.WithLogger(logger))
	srv := NewServer(":0", Deps{
		Gateway:  gw,
		Sessions: sessions,
		Activity: rec,
		Logger:   logger,
	}, opts...)
	return &fixture{t: t, srv: srv, gw: gw, sessions: sessions, recorder: rec}
}

// do sends a request through the full middleware chain. body may be nil,
// a string or a value to encode as JSON.
func (f *fixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	f.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			f.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(email string) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/login", loginRequest{Email: email, Password: password}, "")
	if rec.Code != http.StatusOK {
		f.t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body)
	}
	view := decodeData[sessionView](f.t, rec)
	if view.Token == "" {
		f.t.Fatalf("login returned no token")
	}
	return view.Token
}

// actions waits for pending log writes and returns the logged actions.
func (f *fixture) actions() []string {
	f.t.Helper()
	f.recorder.Wait()
	logs, err := f.gw.RecentActivity(context.Background(), 0)
	if err != nil {
		f.t.Fatalf("RecentActivity: %v", err)
	}
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestHealthAndHeaders(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	h := rec.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing: %v", h)
	}
	if h.Get("X-Request-ID") == "" {
		t.Fatalf("request id header missing")
	}
	if ct := h.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}

	rec = f.do(http.MethodGet, "/readyz", nil, "")
	if rec.Code != http.StatusOK || !decodeEnvelope(t, rec).Success {
		t.Fatalf("readyz = %d %s", rec.Code, rec.Body)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	f := newFixture(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/session"},
		{http.MethodGet, "/api/version"},
		{http.MethodGet, "/api/financiera/resumen"},
		{http.MethodGet, "/api/proyectos"},
		{http.MethodGet, "/api/logs"},
		{http.MethodPost, "/api/logout"},
		{http.MethodGet, "/api/admin/selectores"},
	}
	for _, rt := range routes {
		rec := f.do(rt.method, rt.path, nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without session: status %d", rt.method, rt.path, rec.Code)
		}
		rec = f.do(rt.method, rt.path, nil, "not-a-token")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with unknown token: status %d", rt.method, rt.path, rec.Code)
		}
	}
}

func TestBearerTokenAccepted(t *testing.T) {
	f := newFixture(t)
	token := f.login(userEmail)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer session status = %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	token := f.login(userEmail)
	for _, path := range []string{"/api/admin/selectores", "/api/admin/usuarios", "/api/debug/datos"} {
		if rec := f.do(http.MethodGet, path, nil, token); rec.Code != http.StatusForbidden {
			t.Errorf("GET %s as regular user: status %d", path, rec.Code)
		}
	}
	admin := f.login(adminEmail)
	if rec := f.do(http.MethodGet, "/api/admin/selectores", nil, admin); rec.Code != http.StatusOK {
		t.Fatalf("admin selectores status = %d", rec.Code)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	f := newFixture(t, WithRateLimit(2))
	body := loginRequest{Email: userEmail, Password: "bad"}
	for i := 0; i < 2; i++ {
		if rec := f.do(http.MethodPost, "/api/login", body, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i+1, rec.Code)
		}
	}
	rec := f.do(http.MethodPost, "/api/login", body, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After missing")
	}
	if rec := f.do(http.MethodGet, "/healthz", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("GET must not be rate limited, got %d", rec.Code)
	}
	if f.srv.metrics.snapshot().RateLimitHits != 1 {
		t.Fatalf("rate limit hits = %d", f.srv.metrics.snapshot().RateLimitHits)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodGet, "/api/nada", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/login", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status = %d", rec.Code)
	}
}
