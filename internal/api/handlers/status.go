// status.go — обработчики состояния синхронизации: перезагрузка записей,
// баннер ошибки загрузки, уведомления.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/inspection-module/internal/api/errors"
	"github.com/bigkaa/goartstore/inspection-module/internal/service"
	"github.com/bigkaa/goartstore/inspection-module/internal/store"
)

// loadErrorBody — баннер ошибки загрузки.
type loadErrorBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// statusResponse — ответ GET /api/v1/status.
type statusResponse struct {
	Loaded        bool                   `json:"loaded"`
	Records       int                    `json:"records"`
	LoadError     *loadErrorBody         `json:"load_error"`
	Notifications []service.Notification `json:"notifications"`
}

// reloadResponse — ответ POST /api/v1/sync/reload.
type reloadResponse struct {
	Records int `json:"records"`
}

// Reload — POST /api/v1/sync/reload. Полностью заменяет коллекцию.
// При сбое источника текущая коллекция сохраняется, выставляется баннер, ответ — 502.
func (h *APIHandler) Reload(w http.ResponseWriter, r *http.Request) {
	err := h.store.Load(r.Context())
	if err != nil {
		var loadErr *store.LoadError
		if errors.As(err, &loadErr) {
			apierrors.RemoteUnavailable(w, loadErr.Description)
			return
		}
		h.logger.Error("Ошибка перезагрузки записей", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка перезагрузки записей")
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Records: h.store.Len()})
}

// GetStatus — GET /api/v1/status.
func (h *APIHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Loaded:        h.store.Loaded(),
		Records:       h.store.Len(),
		Notifications: h.notifier.List(),
	}
	if le := h.store.LoadStatus(); le != nil {
		resp.LoadError = &loadErrorBody{Title: le.Title, Description: le.Description}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DismissLoadError — DELETE /api/v1/status/error.
func (h *APIHandler) DismissLoadError(w http.ResponseWriter, _ *http.Request) {
	h.store.DismissLoadError()
	w.WriteHeader(http.StatusNoContent)
}
