// Пакет service — бизнес-логика Inspection Module.
// Notifier — временные уведомления с автоматическим скрытием по TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NotificationType — вид уведомления.
type NotificationType string

// Виды уведомлений.
const (
	NotifyInfo    NotificationType = "info"
	NotifyLoading NotificationType = "loading"
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
)

// notificationsTotal — количество выданных уведомлений по виду.
var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "im_notifications_total",
	Help: "Общее количество выданных уведомлений (по виду).",
}, []string{"type"})

// Notification — временное уведомление для интерфейса.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
}

// Notifier хранит уведомления до истечения TTL.
// Уведомление не несёт данных: его потеря не влияет на записи.
type Notifier struct {
	cache *expirable.LRU[string, Notification]
}

// NewNotifier создаёт хранилище уведомлений.
// maxSize — максимальное количество одновременно живых уведомлений.
// ttl — время до автоматического скрытия (IM_NOTIFY_TTL).
func NewNotifier(maxSize int, ttl time.Duration) *Notifier {
	cache := expirable.NewLRU[string, Notification](maxSize, nil, ttl)
	return &Notifier{cache: cache}
}

// Notify публикует уведомление и возвращает его.
func (n *Notifier) Notify(message string, typ NotificationType) Notification {
	note := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	n.cache.Add(note.ID, note)
	notificationsTotal.WithLabelValues(string(typ)).Inc()
	return note
}

// Dismiss скрывает уведомление досрочно.
func (n *Notifier) Dismiss(id string) {
	n.cache.Remove(id)
}

// List возвращает живые уведомления, новые первыми.
// Истёкшие, но ещё не вычищенные элементы пропускаются.
func (n *Notifier) List() []Notification {
	keys := n.cache.Keys()
	out := make([]Notification, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		note, ok := n.cache.Peek(keys[i])
		if !ok || note.ID == "" {
			continue
		}
		out = append(out, note)
	}
	return out
}
