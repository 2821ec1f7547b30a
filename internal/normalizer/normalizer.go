package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
)

// IDPrefix — префикс синтезированных идентификаторов.
// Отличает локальные ID от числовых автоинкрементов таблицы.
const IDPrefix = "INS-"

// IDGenerator выдаёт уникальные возрастающие идентификаторы вида INS-<unix ms>.
// Если два ID запрошены в одну миллисекунду, второй получает следующую.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDGenerator создаёт генератор. now == nil — используется time.Now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next возвращает следующий идентификатор.
func (g *IDGenerator) Next() model.RecordID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return model.RecordID(IDPrefix + strconv.FormatInt(ms, 10))
}

// Normalizer приводит сырые объекты к InspectionRecord.
type Normalizer struct {
	ids *IDGenerator
}

// New создаёт нормализатор с указанным генератором ID.
func New(ids *IDGenerator) *Normalizer {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	return &Normalizer{ids: ids}
}

// Normalize возвращает записи в порядке элементов Payload.
// Результат никогда не nil.
func (n *Normalizer) Normalize(p Payload) []model.InspectionRecord {
	out := make([]model.InspectionRecord, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, n.Record(item))
	}
	return out
}

// Record приводит один сырой объект к записи.
// Некорректные поля превращаются в пустые строки, а не в ошибки.
func (n *Normalizer) Record(item map[string]any) model.InspectionRecord {
	norm := foldKeys(item)

	id := model.NewRecordID(stringify(norm["id"]))
	if id.IsZero() {
		id = n.ids.Next()
	}

	return model.InspectionRecord{
		ID:      id,
		Date:    stringify(norm["date"]),
		Site:    stringify(norm["site"]),
		Office:  model.Office(stringify(norm["office"])),
		Manager: stringify(norm["manager"]),
		Status:  model.Status(stringify(norm["status"])),
		Result:  model.Result(stringify(norm["result"])),
		Details: stringify(norm["details"]),
		Photos:  SplitPhotos(stringify(norm["photos"])),
	}
}

// SplitPhotos разбивает строку имён файлов через запятую.
// Пустые сегменты отбрасываются, результат никогда не nil.
func SplitPhotos(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// foldKeys приводит имена полей к нижнему регистру.
// Ключи обходятся в отсортированном порядке, поэтому при коллизии ("ID" и "id")
// результат детерминирован: побеждает ключ, уже записанный в нижнем регистре.
func foldKeys(item map[string]any) map[string]any {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(item))
	for _, k := range keys {
		out[strings.ToLower(k)] = item[k]
	}
	return out
}

// stringify приводит значение произвольного JSON-типа к строке.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
