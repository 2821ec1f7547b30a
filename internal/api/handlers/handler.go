// handler.go — основной обработчик API Inspection Module.
// Регистрирует маршруты в chi и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/inspection-module/internal/api/errors"
	"github.com/bigkaa/goartstore/inspection-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/service"
	"github.com/bigkaa/goartstore/inspection-module/internal/store"
)

// maxBodySize — ограничение тела JSON-запроса.
const maxBodySize = 1 << 20

// APIHandler — основной обработчик API Inspection Module.
type APIHandler struct {
	health   *HealthHandler
	store    *store.Store
	sync     *service.SyncService
	views    *service.ViewService
	notifier *service.Notifier
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	st *store.Store,
	syncSvc *service.SyncService,
	views *service.ViewService,
	notifier *service.Notifier,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		store:    st,
		sync:     syncSvc,
		views:    views,
		notifier: notifier,
		validate: newValidator(),
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// RegisterRoutes регистрирует все маршруты API.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.yaml", openapi.Handler)

		r.Route("/inspections", func(r chi.Router) {
			r.Get("/", h.ListInspections)
			r.Post("/", h.RegisterInspection)
			r.Get("/pending", h.ListPending)
			r.Get("/years", h.ListYears)
			r.Post("/export", h.ExportInspections)
			r.Put("/{id}", h.EditInspection)
			r.Post("/{id}/perform", h.PerformInspection)
		})

		r.Get("/dashboard", h.GetDashboard)
		r.Get("/calendar", h.GetCalendar)

		r.Post("/sync/reload", h.Reload)
		r.Get("/status", h.GetStatus)
		r.Delete("/status/error", h.DismissLoadError)
	})
}

// --- Вспомогательные функции ---

// newValidator создаёт валидатор с правилами предметной области:
// office — известное управление, result — итог выполненной инспекции.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("office", func(fl validator.FieldLevel) bool {
		return model.Office(fl.Field().String()).Known()
	})
	_ = v.RegisterValidation("result", func(fl validator.FieldLevel) bool {
		return model.Result(fl.Field().String()).Known()
	})
	return v
}

// decodeAndValidate читает JSON-тело и проверяет его по тегам validate.
// При ошибке ответ уже записан, возвращается false.
func (h *APIHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apierrors.ValidationError(w, validationMessage(err))
		return false
	}
	return true
}

// validationMessage формирует сообщение из ошибок валидатора.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: нарушено правило %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: нарушено правило %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// pathID извлекает id записи из пути.
func pathID(r *http.Request) (model.RecordID, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", fmt.Errorf("некорректный параметр id: %w", err)
	}
	rid := model.NewRecordID(id)
	if rid.IsZero() {
		return "", errors.New("пустой параметр id")
	}
	return rid, nil
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
