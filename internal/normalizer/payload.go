// Пакет normalizer — приведение разнородных ответов read endpoint
// к каноническим записям InspectionRecord.
//
// Форма ответа (массив, объект, объект с массивом в "data") разбирается
// один раз в Decode и дальше существует только как Payload.
package normalizer

import (
	"bytes"
	"encoding/json"
)

// Kind — форма ответа удалённого источника.
type Kind int

// Формы ответа.
const (
	// KindEmpty — null, скаляр или некорректный JSON
	KindEmpty Kind = iota
	// KindArray — массив записей
	KindArray
	// KindObject — одиночная запись
	KindObject
	// KindWrapped — объект с массивом записей в поле "data"
	KindWrapped
)

// String возвращает имя формы для логов.
func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindWrapped:
		return "wrapped"
	default:
		return "empty"
	}
}

// Payload — разобранный ответ read endpoint.
// Items — сырые объекты записей в исходном порядке.
type Payload struct {
	Kind  Kind
	Items []map[string]any
}

// Decode разбирает тело ответа. Никогда не возвращает ошибку:
// всё, что не является массивом или объектом, даёт KindEmpty.
func Decode(body []byte) Payload {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Payload{Kind: KindEmpty}
	}
	return FromValue(raw)
}

// FromValue строит Payload из уже декодированного значения.
func FromValue(raw any) Payload {
	switch v := raw.(type) {
	case []any:
		return Payload{Kind: KindArray, Items: objects(v)}
	case map[string]any:
		if data, ok := v["data"].([]any); ok {
			return Payload{Kind: KindWrapped, Items: objects(data)}
		}
		return Payload{Kind: KindObject, Items: []map[string]any{v}}
	default:
		return Payload{Kind: KindEmpty}
	}
}

// objects приводит элементы массива к объектам.
// Элемент-не-объект становится пустым объектом: запись сохраняет позицию
// и получает синтезированный ID.
func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			obj = map[string]any{}
		}
		out = append(out, obj)
	}
	return out
}
