package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/inspections", "/api/v1/inspections"},
		{"/api/v1/inspections/pending", "/api/v1/inspections/pending"},
		{"/api/v1/inspections/INS-1700000000000", "/api/v1/inspections/{id}"},
		{"/api/v1/inspections/42/perform", "/api/v1/inspections/{id}/perform"},
		{"/api/v1/status/error", "/api/v1/status/error"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидался %q", tt.path, got, tt.want)
		}
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	// Новый id генерируется
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, ожидался %d", rec.Code, http.StatusTeapot)
	}
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request id = %q, заголовок = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	// Входящий id сохраняется
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-1" {
		t.Errorf("request id = %q, ожидался %q", seen, "req-1")
	}
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	handler := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/inspections", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, ожидался %d", rec.Code, http.StatusCreated)
	}
}
