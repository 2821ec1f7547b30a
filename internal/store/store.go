// Пакет store — in-memory хранилище записей инспекций на время сессии.
// Локальные изменения применяются сразу (optimistic), удалённое сохранение —
// отдельный best-effort канал на стороне сервисного слоя.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/normalizer"
)

// Ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrEmptyID — запись без идентификатора.
	ErrEmptyID = errors.New("запись без идентификатора")
)

// loadErrorTitle — заголовок баннера ошибки загрузки.
const loadErrorTitle = "데이터 로딩 실패"

// Prometheus-метрики хранилища.
var (
	storeRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "im_store_records",
		Help: "Текущее количество записей в хранилище.",
	})
	storeLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "im_store_loads_total",
		Help: "Количество загрузок хранилища (по источнику данных).",
	}, []string{"source"})
)

// LoadError — сбой начальной загрузки, показываемый пользователю баннером.
type LoadError struct {
	// Title — заголовок баннера
	Title string `json:"title"`
	// Description — описание причины
	Description string `json:"description"`
	// Err — исходная ошибка
	Err error `json:"-"`
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Description)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Source — удалённый источник записей.
type Source interface {
	// ReadConfigured сообщает, задан ли read endpoint.
	ReadConfigured() bool
	// FetchAll читает все записи.
	FetchAll(ctx context.Context) (normalizer.Payload, error)
}

// Store — владелец коллекции записей.
// Безопасен для конкурентного использования.
type Store struct {
	mu      sync.RWMutex
	records []model.InspectionRecord
	loaded  bool
	loadErr *LoadError

	source Source
	norm   *normalizer.Normalizer
	seed   []model.InspectionRecord
	group  singleflight.Group
	logger *slog.Logger
}

// New создаёт хранилище.
// source — удалённый источник (nil — всегда резервный набор).
// seed — резервный набор записей.
func New(source Source, norm *normalizer.Normalizer, seed []model.InspectionRecord, logger *slog.Logger) *Store {
	return &Store{
		records: []model.InspectionRecord{},
		source:  source,
		norm:    norm,
		seed:    cloneAll(seed),
		logger:  logger.With(slog.String("component", "store")),
	}
}

// loadTimeout ограничивает общий запрос к источнику, объединённый singleflight.
const loadTimeout = 30 * time.Second

// Load заменяет коллекцию целиком данными удалённого источника.
// Если источник не настроен — при первой загрузке коллекция заполняется
// резервным набором без ошибки. При сбое первой загрузки коллекция также
// заполняется резервным набором; при сбое повторной загрузки текущая коллекция
// сохраняется. Ошибка возвращается как *LoadError.
// Одновременные вызовы объединяются в один запрос к источнику, который
// не зависит от отмены ctx отдельного вызывающего.
func (s *Store) Load(ctx context.Context) error {
	_, err, _ := s.group.Do("load", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return nil, s.load(fetchCtx)
	})
	return err
}

func (s *Store) load(ctx context.Context) error {
	if s.source == nil || !s.source.ReadConfigured() {
		if s.Loaded() {
			return nil
		}
		s.replace(cloneAll(s.seed), nil)
		storeLoadsTotal.WithLabelValues("seed").Inc()
		s.logger.Info("Read endpoint не настроен, используется резервный набор",
			slog.Int("records", len(s.seed)),
		)
		return nil
	}

	payload, err := s.source.FetchAll(ctx)
	if err != nil {
		loadErr := &LoadError{
			Title:       loadErrorTitle,
			Description: err.Error(),
			Err:         err,
		}
		if s.Loaded() {
			s.setLoadError(loadErr)
			storeLoadsTotal.WithLabelValues("kept").Inc()
			s.logger.Warn("Ошибка повторной загрузки, сохранены текущие записи",
				slog.String("error", err.Error()),
			)
			return loadErr
		}
		s.replace(cloneAll(s.seed), loadErr)
		storeLoadsTotal.WithLabelValues("fallback").Inc()
		s.logger.Warn("Ошибка загрузки записей, используется резервный набор",
			slog.String("error", err.Error()),
		)
		return loadErr
	}

	records, dropped := dedupe(s.norm.Normalize(payload))
	if dropped > 0 {
		s.logger.Warn("Отброшены записи с повторяющимся id",
			slog.Int("dropped", dropped),
		)
	}
	s.replace(records, nil)
	storeLoadsTotal.WithLabelValues("remote").Inc()
	s.logger.Info("Записи загружены",
		slog.String("kind", payload.Kind.String()),
		slog.Int("records", len(records)),
	)
	return nil
}

// setLoadError выставляет баннер ошибки, не трогая коллекцию.
func (s *Store) setLoadError(loadErr *LoadError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = loadErr
}

// replace заменяет коллекцию и статус загрузки.
func (s *Store) replace(records []model.InspectionRecord, loadErr *LoadError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.loaded = true
	s.loadErr = loadErr
	storeRecords.Set(float64(len(records)))
}

// Upsert добавляет или заменяет запись.
// Новая запись добавляется в начало коллекции, существующая заменяется
// на своём месте. Применяется немедленно, до подтверждения удалённой стороной.
func (s *Store) Upsert(record model.InspectionRecord) error {
	record.ID = model.NewRecordID(record.ID.String())
	if record.ID.IsZero() {
		return ErrEmptyID
	}
	if record.Photos == nil {
		record.Photos = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(record.Clone())
	return nil
}

// upsertLocked выполняется под write lock.
func (s *Store) upsertLocked(record model.InspectionRecord) {
	if i := s.indexLocked(record.ID); i >= 0 {
		s.records[i] = record
		return
	}
	s.records = append([]model.InspectionRecord{record}, s.records...)
	storeRecords.Set(float64(len(s.records)))
}

// UpdateByID накладывает fields на существующую запись и проводит результат
// через Upsert. Для неизвестного id ничего не делает и возвращает false.
func (s *Store) UpdateByID(id model.RecordID, fields model.Fields) (model.InspectionRecord, bool) {
	updated, err := s.UpdateIf(id, fields, nil)
	if err != nil {
		return model.InspectionRecord{}, false
	}
	return updated, true
}

// UpdateIf — UpdateByID с проверкой текущего состояния записи.
// check вызывается под блокировкой; его ошибка отменяет изменение.
// Для неизвестного id возвращает ErrNotFound.
func (s *Store) UpdateIf(
	id model.RecordID,
	fields model.Fields,
	check func(current model.InspectionRecord) error,
) (model.InspectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.InspectionRecord{}, ErrNotFound
	}
	current := s.records[i]
	if check != nil {
		if err := check(current.Clone()); err != nil {
			return model.InspectionRecord{}, err
		}
	}

	updated := current.Merge(fields)
	s.upsertLocked(updated)
	return updated.Clone(), nil
}

// Get возвращает копию записи по id.
func (s *Store) Get(id model.RecordID) (model.InspectionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.InspectionRecord{}, false
	}
	return s.records[i].Clone(), true
}

// Snapshot возвращает глубокую копию коллекции.
// Последующие изменения хранилища не видны через снимок.
func (s *Store) Snapshot() []model.InspectionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records)
}

// Len возвращает количество записей.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Loaded сообщает, выполнялась ли загрузка.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadStatus возвращает последнюю ошибку загрузки (nil — ошибки нет или она скрыта).
func (s *Store) LoadStatus() *LoadError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr == nil {
		return nil
	}
	e := *s.loadErr
	return &e
}

// DismissLoadError скрывает баннер ошибки загрузки.
func (s *Store) DismissLoadError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = nil
}

// CheckReady реализует проверку готовности для /health/ready:
// ok — данные загружены, degraded — работает резервный набор после ошибки,
// fail — загрузка ещё не выполнялась.
func (s *Store) CheckReady() (status, message string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case !s.loaded:
		return "fail", "записи ещё не загружены"
	case s.loadErr != nil:
		return "degraded", s.loadErr.Description
	default:
		return "ok", ""
	}
}

// indexLocked ищет позицию записи по нормализованному id. -1 — не найдена.
func (s *Store) indexLocked(id model.RecordID) int {
	for i := range s.records {
		if s.records[i].ID.Equal(id) {
			return i
		}
	}
	return -1
}

// dedupe оставляет первое вхождение каждого id.
func dedupe(records []model.InspectionRecord) ([]model.InspectionRecord, int) {
	seen := make(map[model.RecordID]struct{}, len(records))
	out := make([]model.InspectionRecord, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

// cloneAll возвращает глубокую копию среза записей (никогда не nil).
func cloneAll(records []model.InspectionRecord) []model.InspectionRecord {
	out := make([]model.InspectionRecord, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}
