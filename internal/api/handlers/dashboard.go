// dashboard.go — обработчики представлений: статистика по годам и календарь.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/inspection-module/internal/api/errors"
)

// GetDashboard — GET /api/v1/dashboard.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.views.Dashboard())
}

// GetCalendar — GET /api/v1/calendar?year=&month=.
// Без параметров — текущий месяц.
func (h *APIHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var year, month *int

	if err := runtime.BindQueryParameter("form", true, false, "year", q, &year); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("некорректный параметр year: %v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "month", q, &month); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("некорректный параметр month: %v", err))
		return
	}

	now := time.Now()
	y, m := now.Year(), now.Month()
	if year != nil {
		if *year < 1 || *year > 9999 {
			apierrors.ValidationError(w, "year вне диапазона 1..9999")
			return
		}
		y = *year
	}
	if month != nil {
		if *month < 1 || *month > 12 {
			apierrors.ValidationError(w, "month вне диапазона 1..12")
			return
		}
		m = time.Month(*month)
	}

	writeJSON(w, http.StatusOK, h.views.Calendar(y, m))
}
