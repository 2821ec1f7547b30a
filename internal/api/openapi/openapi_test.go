package openapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupValidator оборачивает echo-обработчик в валидатор.
func setupValidator(t *testing.T) http.Handler {
	t.Helper()
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mw, err := Validator(doc, testLogger())
	if err != nil {
		t.Fatalf("Validator: %v", err)
	}
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Тело должно остаться доступным обработчику
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
}

func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Paths.Find("/api/v1/inspections/{id}/perform") == nil {
		t.Error("путь /api/v1/inspections/{id}/perform отсутствует в документе")
	}
}

func TestValidator(t *testing.T) {
	handler := setupValidator(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"корректная регистрация", http.MethodPost, "/api/v1/inspections",
			`{"date":"2024-05-01","site":"현장","office":"서울청","manager":"김"}`, http.StatusOK},
		{"неизвестное управление", http.MethodPost, "/api/v1/inspections",
			`{"date":"2024-05-01","site":"현장","office":"부산청","manager":"김"}`, http.StatusBadRequest},
		{"нет обязательного поля", http.MethodPost, "/api/v1/inspections",
			`{"date":"2024-05-01","office":"서울청","manager":"김"}`, http.StatusBadRequest},
		{"некорректный результат", http.MethodPost, "/api/v1/inspections/INS-1/perform",
			`{"result":"불량"}`, http.StatusBadRequest},
		{"пустой список экспорта", http.MethodPost, "/api/v1/inspections/export",
			`{"ids":[]}`, http.StatusBadRequest},
		{"месяц вне диапазона", http.MethodGet, "/api/v1/calendar?year=2024&month=13", "", http.StatusBadRequest},
		{"путь вне документа", http.MethodGet, "/unknown", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, ожидался %d (тело: %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("тело = %q, обработчик должен получить исходное тело", rec.Body.String())
			}
			if tt.want == http.StatusBadRequest {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("ответ не JSON: %v", err)
				}
				if resp.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("code = %q, ожидался VALIDATION_ERROR", resp.Error.Code)
				}
			}
		})
	}
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, ожидался 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "openapi: 3.0.3") {
		t.Errorf("тело начинается с %q", rec.Body.String()[:20])
	}
}
