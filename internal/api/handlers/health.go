package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/inspection-module/internal/config"
)

// Статусы проверок готовности.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker сообщает готовность одного компонента: "ok", "degraded" или "fail".
type ReadinessChecker interface {
	CheckReady() (status, message string)
}

type namedCheck struct {
	name    string
	checker ReadinessChecker
}

// HealthHandler обслуживает /health/live, /health/ready и /metrics.
// Обязательная проверка — хранилище записей ("records"); остальные добавляются
// через AddCheck и влияют на итог так же.
type HealthHandler struct {
	checks  []namedCheck
	metrics http.Handler
}

// NewHealthHandler создаёт обработчик. records == nil означает, что хранилище
// ещё не создано, и /health/ready отвечает 503.
func NewHealthHandler(records ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checks:  []namedCheck{{name: "records", checker: records}},
		metrics: promhttp.Handler(),
	}
}

// AddCheck регистрирует дополнительную проверку готовности.
// Вызывается до запуска сервера.
func (h *HealthHandler) AddCheck(name string, checker ReadinessChecker) {
	h.checks = append(h.checks, namedCheck{name: name, checker: checker})
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse — общий ответ live и ready. Checks заполняется только для ready.
type healthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

func newHealthResponse(status string) healthResponse {
	return healthResponse{
		Status:    status,
		Service:   config.ServiceName,
		Version:   config.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HealthLive — GET /health/live.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newHealthResponse(statusOK))
}

// HealthReady — GET /health/ready. 503 только при итоговом "fail".
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := newHealthResponse("")
	resp.Checks = make(map[string]checkResult, len(h.checks))

	statuses := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		res := checkResult{Status: statusFail, Message: "не инициализирован"}
		if c.checker != nil {
			res.Status, res.Message = c.checker.CheckReady()
		}
		resp.Checks[c.name] = res
		statuses = append(statuses, res.Status)
	}
	resp.Status = worstStatus(statuses...)

	code := http.StatusOK
	if resp.Status == statusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — GET /metrics.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// worstStatus: fail > degraded > ok. Неизвестный статус считается fail.
func worstStatus(statuses ...string) string {
	worst := statusOK
	for _, s := range statuses {
		switch s {
		case statusOK:
		case statusDegraded:
			worst = statusDegraded
		default:
			return statusFail
		}
	}
	return worst
}
