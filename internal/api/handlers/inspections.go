// inspections.go — обработчики /api/v1/inspections: история, регистрация,
// выполнение, правка, выгрузка.
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/inspection-module/internal/api/errors"
	"github.com/bigkaa/goartstore/inspection-module/internal/aggregate"
	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/export"
	"github.com/bigkaa/goartstore/inspection-module/internal/service"
)

// inspectionListResponse — ответ GET /api/v1/inspections.
type inspectionListResponse struct {
	Items []model.InspectionRecord `json:"items"`
	Total int                      `json:"total"`
}

// exportRequest — тело POST /api/v1/inspections/export.
type exportRequest struct {
	IDs []model.RecordID `json:"ids" validate:"required,min=1"`
}

// ListInspections — GET /api/v1/inspections (история с фильтрами).
func (h *APIHandler) ListInspections(w http.ResponseWriter, r *http.Request) {
	filter, err := bindHistoryFilter(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	items := h.views.History(filter)
	writeJSON(w, http.StatusOK, inspectionListResponse{Items: items, Total: len(items)})
}

// RegisterInspection — POST /api/v1/inspections.
func (h *APIHandler) RegisterInspection(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := h.sync.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// EditInspection — PUT /api/v1/inspections/{id}.
func (h *APIHandler) EditInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req service.EditInput
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := h.sync.Edit(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PerformInspection — POST /api/v1/inspections/{id}/perform.
func (h *APIHandler) PerformInspection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req service.PerformInput
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := h.sync.Perform(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListPending — GET /api/v1/inspections/pending.
func (h *APIHandler) ListPending(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.views.Pending())
}

// ListYears — GET /api/v1/inspections/years.
func (h *APIHandler) ListYears(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.views.Years())
}

// ExportInspections — POST /api/v1/inspections/export.
// Книга собирается в буфер: при ошибке ещё можно ответить JSON.
func (h *APIHandler) ExportInspections(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	selected, err := export.Select(h.views.Records(), req.IDs)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, selected); err != nil {
		h.logger.Error("Ошибка формирования XLSX", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка формирования файла")
		return
	}

	filename := fmt.Sprintf("inspections-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeServiceError переводит ошибки сервиса в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись не найдена")
	case errors.Is(err, service.ErrAlreadyCompleted):
		apierrors.Conflict(w, "Инспекция уже выполнена")
	default:
		h.logger.Error("Ошибка сервиса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}

// bindHistoryFilter извлекает фильтры истории из query-параметров.
func bindHistoryFilter(r *http.Request) (aggregate.HistoryFilter, error) {
	q := r.URL.Query()
	var year, site, office, from, to *string

	params := []struct {
		name string
		dest **string
	}{
		{"year", &year},
		{"site", &site},
		{"office", &office},
		{"from", &from},
		{"to", &to},
	}
	for _, p := range params {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			return aggregate.HistoryFilter{}, fmt.Errorf("некорректный параметр %s: %w", p.name, err)
		}
	}

	filter := aggregate.HistoryFilter{
		Year:   deref(year),
		Site:   deref(site),
		Office: deref(office),
		From:   deref(from),
		To:     deref(to),
	}
	for _, bound := range []string{filter.From, filter.To} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, bound); err != nil {
			return aggregate.HistoryFilter{}, fmt.Errorf("некорректная дата %q, ожидается YYYY-MM-DD", bound)
		}
	}
	return filter, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
