// sync.go — сценарии изменения записей: регистрация, выполнение инспекции, правка.
// Изменение сразу применяется к хранилищу, затем запись отправляется
// на write endpoint в фоне. Сбой отправки не откатывает локальное состояние.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/normalizer"
	"github.com/bigkaa/goartstore/inspection-module/internal/store"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrAlreadyCompleted — инспекция уже выполнена.
	ErrAlreadyCompleted = errors.New("инспекция уже выполнена")
)

// Тексты уведомлений о сохранении.
const (
	msgSavedLocal = "저장되었습니다 (로컬 모드)"
	msgSaving     = "서버에 저장 중..."
	msgSaved      = "저장 완료"
	msgSaveFailed = "서버 저장 실패"
)

// persistTotal — результаты фоновой отправки записей.
var persistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "im_sync_persist_total",
	Help: "Количество отправок записей на write endpoint (по результату: ok, failed, local).",
}, []string{"result"})

// Persister — write endpoint удалённого источника.
type Persister interface {
	// WriteConfigured сообщает, задан ли write endpoint.
	WriteConfigured() bool
	// Persist отправляет одну запись.
	Persist(ctx context.Context, record model.InspectionRecord) error
}

// RegisterInput — регистрация плановой инспекции.
type RegisterInput struct {
	Date    string       `json:"date" validate:"required,datetime=2006-01-02"`
	Site    string       `json:"site" validate:"required"`
	Office  model.Office `json:"office" validate:"required,office"`
	Manager string       `json:"manager" validate:"required"`
}

// PerformInput — результат выполненной инспекции.
// Поля расписания (nil — без изменений) могут быть уточнены при выполнении.
type PerformInput struct {
	Date    *string       `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Site    *string       `json:"site,omitempty" validate:"omitempty,min=1"`
	Office  *model.Office `json:"office,omitempty" validate:"omitempty,office"`
	Manager *string       `json:"manager,omitempty" validate:"omitempty,min=1"`
	Result  model.Result  `json:"result" validate:"required,result"`
	Details string        `json:"details"`
	Photos  []string      `json:"photos" validate:"dive,required"`
}

// EditInput — правка записи. Статус и ID правке не подлежат.
type EditInput struct {
	Date    *string       `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Site    *string       `json:"site,omitempty" validate:"omitempty,min=1"`
	Office  *model.Office `json:"office,omitempty" validate:"omitempty,office"`
	Manager *string       `json:"manager,omitempty" validate:"omitempty,min=1"`
	Result  *model.Result `json:"result,omitempty" validate:"omitempty,result"`
	Details *string       `json:"details,omitempty"`
	Photos  []string      `json:"photos,omitempty" validate:"omitempty,dive,required"`
}

// SyncService — сценарии изменения записей.
type SyncService struct {
	store          *store.Store
	persister      Persister
	ids            *normalizer.IDGenerator
	notifier       *Notifier
	persistTimeout time.Duration
	logger         *slog.Logger

	// wg — фоновые отправки в процессе
	wg sync.WaitGroup
}

// NewSyncService создаёт сервис сценариев.
// persister == nil — локальный режим (запись только в память).
// persistTimeout — таймаут фоновой отправки (IM_PERSIST_TIMEOUT).
func NewSyncService(
	st *store.Store,
	persister Persister,
	ids *normalizer.IDGenerator,
	notifier *Notifier,
	persistTimeout time.Duration,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		store:          st,
		persister:      persister,
		ids:            ids,
		notifier:       notifier,
		persistTimeout: persistTimeout,
		logger:         logger.With(slog.String("component", "sync_service")),
	}
}

// Register создаёт плановую инспекцию со статусом 대기.
func (s *SyncService) Register(_ context.Context, in RegisterInput) (model.InspectionRecord, error) {
	record := model.InspectionRecord{
		ID:      s.ids.Next(),
		Date:    in.Date,
		Site:    in.Site,
		Office:  in.Office,
		Manager: in.Manager,
		Status:  model.StatusPending,
		Result:  model.ResultUnset,
		Details: "",
		Photos:  []string{},
	}

	if err := s.store.Upsert(record); err != nil {
		return model.InspectionRecord{}, fmt.Errorf("регистрация инспекции: %w", err)
	}

	s.logger.Info("Инспекция зарегистрирована",
		slog.String("id", record.ID.String()),
		slog.String("office", string(record.Office)),
	)
	s.persist(record)
	return record, nil
}

// Perform фиксирует результат инспекции и переводит запись в 완료.
// Разрешено только для записей в статусе 대기.
func (s *SyncService) Perform(_ context.Context, id model.RecordID, in PerformInput) (model.InspectionRecord, error) {
	completed := model.StatusCompleted
	result := in.Result
	details := in.Details
	photos := in.Photos
	if photos == nil {
		photos = []string{}
	}

	fields := model.Fields{
		Date:    in.Date,
		Site:    in.Site,
		Office:  in.Office,
		Manager: in.Manager,
		Status:  &completed,
		Result:  &result,
		Details: &details,
		Photos:  photos,
	}

	updated, err := s.store.UpdateIf(id, fields, func(current model.InspectionRecord) error {
		if current.Completed() {
			return ErrAlreadyCompleted
		}
		return nil
	})
	if err != nil {
		return model.InspectionRecord{}, s.mapStoreError(err)
	}

	s.logger.Info("Инспекция выполнена",
		slog.String("id", updated.ID.String()),
		slog.String("result", string(updated.Result)),
	)
	s.persist(updated)
	return updated, nil
}

// Edit правит поля записи, не меняя статус.
func (s *SyncService) Edit(_ context.Context, id model.RecordID, in EditInput) (model.InspectionRecord, error) {
	fields := model.Fields{
		Date:    in.Date,
		Site:    in.Site,
		Office:  in.Office,
		Manager: in.Manager,
		Result:  in.Result,
		Details: in.Details,
		Photos:  in.Photos,
	}

	updated, ok := s.store.UpdateByID(id, fields)
	if !ok {
		return model.InspectionRecord{}, ErrNotFound
	}

	s.logger.Info("Инспекция изменена", slog.String("id", updated.ID.String()))
	s.persist(updated)
	return updated, nil
}

// Wait ожидает завершения фоновых отправок (graceful shutdown, тесты).
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// persist отправляет запись на write endpoint в фоне.
// Результат виден только через уведомления и метрики.
func (s *SyncService) persist(record model.InspectionRecord) {
	if s.persister == nil || !s.persister.WriteConfigured() {
		persistTotal.WithLabelValues("local").Inc()
		s.notifier.Notify(msgSavedLocal, NotifySuccess)
		return
	}

	loading := s.notifier.Notify(msgSaving, NotifyLoading)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Отправка не привязана к контексту HTTP-запроса: запрос уже завершён.
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		err := s.persister.Persist(ctx, record)
		s.notifier.Dismiss(loading.ID)
		if err != nil {
			persistTotal.WithLabelValues("failed").Inc()
			s.notifier.Notify(msgSaveFailed, NotifyError)
			s.logger.Warn("Ошибка сохранения записи на write endpoint",
				slog.String("id", record.ID.String()),
				slog.String("error", err.Error()),
			)
			return
		}

		persistTotal.WithLabelValues("ok").Inc()
		s.notifier.Notify(msgSaved, NotifySuccess)
		s.logger.Debug("Запись сохранена", slog.String("id", record.ID.String()))
	}()
}

// mapStoreError переводит ошибки хранилища в ошибки сервиса.
func (s *SyncService) mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
