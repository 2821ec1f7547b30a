package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/normalizer"
	"github.com/bigkaa/goartstore/inspection-module/internal/store"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Mock persister ---

// mockPersister — мок Persister для unit-тестов.
type mockPersister struct {
	configured bool
	persistFn  func(ctx context.Context, record model.InspectionRecord) error

	mu    sync.Mutex
	saved []model.InspectionRecord
}

func (m *mockPersister) WriteConfigured() bool {
	return m.configured
}

func (m *mockPersister) Persist(ctx context.Context, record model.InspectionRecord) error {
	m.mu.Lock()
	m.saved = append(m.saved, record)
	m.mu.Unlock()
	if m.persistFn != nil {
		return m.persistFn(ctx, record)
	}
	return nil
}

// newTestStore создаёт хранилище, заполненное записями.
func newTestStore(t *testing.T, records ...model.InspectionRecord) *store.Store {
	t.Helper()
	norm := normalizer.New(normalizer.NewIDGenerator(time.Now))
	st := store.New(nil, norm, records, testLogger())
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return st
}

// newTestSync создаёт SyncService с моком persister (nil — локальный режим).
func newTestSync(t *testing.T, st *store.Store, p Persister) (*SyncService, *Notifier) {
	t.Helper()
	notifier := NewNotifier(100, time.Minute)
	ids := normalizer.NewIDGenerator(time.Now)
	return NewSyncService(st, p, ids, notifier, time.Second, testLogger()), notifier
}

func pendingRecord(id string) model.InspectionRecord {
	return model.InspectionRecord{
		ID:      model.RecordID(id),
		Date:    "2024-05-01",
		Site:    "현장",
		Office:  model.OfficeDaejeon,
		Manager: "이영희",
		Status:  model.StatusPending,
		Result:  model.ResultUnset,
		Photos:  []string{},
	}
}

// hasMessage проверяет наличие уведомления с указанным текстом.
func hasMessage(notes []Notification, msg string) bool {
	for _, n := range notes {
		if n.Message == msg {
			return true
		}
	}
	return false
}

// --- Register ---

func TestSyncService_Register_Local(t *testing.T) {
	st := newTestStore(t, pendingRecord("A"))
	svc, notifier := newTestSync(t, st, nil)

	rec, err := svc.Register(context.Background(), RegisterInput{
		Date:    "2024-06-01",
		Site:    "신규 현장",
		Office:  model.OfficeSeoul,
		Manager: "김철수",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !strings.HasPrefix(rec.ID.String(), normalizer.IDPrefix) {
		t.Errorf("ID = %q, ожидался префикс %q", rec.ID, normalizer.IDPrefix)
	}
	if rec.Status != model.StatusPending {
		t.Errorf("Status = %q, ожидался %q", rec.Status, model.StatusPending)
	}
	if rec.Result != model.ResultUnset {
		t.Errorf("Result = %q, ожидался %q", rec.Result, model.ResultUnset)
	}

	snap := st.Snapshot()
	if len(snap) != 2 || snap[0].ID != rec.ID {
		t.Fatalf("новая запись должна быть первой, получено %+v", snap)
	}
	if !hasMessage(notifier.List(), msgSavedLocal) {
		t.Errorf("ожидалось уведомление %q", msgSavedLocal)
	}
}

func TestSyncService_Register_Remote(t *testing.T) {
	st := newTestStore(t)
	p := &mockPersister{configured: true}
	svc, notifier := newTestSync(t, st, p)

	rec, err := svc.Register(context.Background(), RegisterInput{
		Date: "2024-06-01", Site: "현장", Office: model.OfficeJeju, Manager: "박",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc.Wait()

	if len(p.saved) != 1 || p.saved[0].ID != rec.ID {
		t.Fatalf("ожидалась одна отправка записи %q, получено %+v", rec.ID, p.saved)
	}
	notes := notifier.List()
	if !hasMessage(notes, msgSaved) {
		t.Errorf("ожидалось уведомление %q", msgSaved)
	}
	if hasMessage(notes, msgSaving) {
		t.Error("уведомление о сохранении должно быть скрыто после завершения")
	}
}

// --- Perform ---

func TestSyncService_Perform(t *testing.T) {
	st := newTestStore(t, pendingRecord("A"))
	svc, _ := newTestSync(t, st, nil)

	rec, err := svc.Perform(context.Background(), "A", PerformInput{
		Result:  model.ResultTier2,
		Details: "균열 발견",
		Photos:  []string{"p1.jpg", "p2.jpg"},
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if rec.Status != model.StatusCompleted {
		t.Errorf("Status = %q, ожидался %q", rec.Status, model.StatusCompleted)
	}
	if rec.Result != model.ResultTier2 {
		t.Errorf("Result = %q, ожидался %q", rec.Result, model.ResultTier2)
	}
	if rec.Site != "현장" {
		t.Errorf("Site = %q, поле расписания не должно меняться", rec.Site)
	}
	if len(rec.Photos) != 2 {
		t.Errorf("Photos = %v, ожидалось 2 фото", rec.Photos)
	}

	// Повторное выполнение запрещено
	_, err = svc.Perform(context.Background(), "A", PerformInput{Result: model.ResultGood})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("повторный Perform: err = %v, ожидался ErrAlreadyCompleted", err)
	}
	got, _ := st.Get("A")
	if got.Result != model.ResultTier2 {
		t.Errorf("Result после отказа = %q, запись не должна меняться", got.Result)
	}
}

func TestSyncService_Perform_OverridesSchedule(t *testing.T) {
	st := newTestStore(t, pendingRecord("A"))
	svc, _ := newTestSync(t, st, nil)

	site := "변경된 현장"
	rec, err := svc.Perform(context.Background(), "A", PerformInput{
		Site:   &site,
		Result: model.ResultGood,
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if rec.Site != site {
		t.Errorf("Site = %q, ожидался %q", rec.Site, site)
	}
	if rec.Photos == nil {
		t.Error("Photos не должен быть nil")
	}
}

func TestSyncService_NotFound(t *testing.T) {
	st := newTestStore(t, pendingRecord("A"))
	svc, _ := newTestSync(t, st, nil)

	if _, err := svc.Perform(context.Background(), "missing", PerformInput{Result: model.ResultGood}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Perform: err = %v, ожидался ErrNotFound", err)
	}
	details := "x"
	if _, err := svc.Edit(context.Background(), "missing", EditInput{Details: &details}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Edit: err = %v, ожидался ErrNotFound", err)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, хранилище не должно меняться", st.Len())
	}
}

// --- Edit ---

func TestSyncService_Edit_PreservesStatus(t *testing.T) {
	done := pendingRecord("B")
	done.Status = model.StatusCompleted
	done.Result = model.ResultGood
	st := newTestStore(t, pendingRecord("A"), done)
	svc, _ := newTestSync(t, st, nil)

	manager := "최민수"
	result := model.ResultTier3
	rec, err := svc.Edit(context.Background(), "B", EditInput{Manager: &manager, Result: &result})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if rec.Status != model.StatusCompleted {
		t.Errorf("Status = %q, правка не должна менять статус", rec.Status)
	}
	if rec.Manager != manager || rec.Result != result {
		t.Errorf("запись = %+v, ожидались manager=%q result=%q", rec, manager, result)
	}
	if rec.Site != done.Site {
		t.Errorf("Site = %q, не переданное поле не должно меняться", rec.Site)
	}

	// Порядок записей не меняется
	snap := st.Snapshot()
	if snap[0].ID != "A" || snap[1].ID != "B" {
		t.Errorf("порядок = [%s %s], ожидался [A B]", snap[0].ID, snap[1].ID)
	}
}

// --- Persist failure ---

func TestSyncService_PersistFailure_KeepsLocalState(t *testing.T) {
	st := newTestStore(t, pendingRecord("A"))
	p := &mockPersister{
		configured: true,
		persistFn: func(ctx context.Context, record model.InspectionRecord) error {
			return errors.New("connection refused")
		},
	}
	svc, notifier := newTestSync(t, st, p)

	if _, err := svc.Perform(context.Background(), "A", PerformInput{Result: model.ResultGood}); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	svc.Wait()

	got, ok := st.Get("A")
	if !ok || got.Status != model.StatusCompleted {
		t.Errorf("локальное состояние должно сохраниться, получено %+v", got)
	}
	notes := notifier.List()
	if !hasMessage(notes, msgSaveFailed) {
		t.Errorf("ожидалось уведомление %q", msgSaveFailed)
	}
	if hasMessage(notes, msgSaved) {
		t.Errorf("уведомление %q не ожидалось", msgSaved)
	}
}
