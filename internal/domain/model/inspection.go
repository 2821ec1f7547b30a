// Пакет model — доменные модели Inspection Module.
// InspectionRecord — единственная сущность: плановая или выполненная инспекция объекта.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout — формат даты инспекции (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// RecordID — идентификатор записи инспекции.
// Удалённый источник (таблица) отдаёт ID то числом, то строкой,
// поэтому ID нормализуется один раз при приёме: всегда обрезанная строка.
type RecordID string

// NewRecordID создаёт идентификатор из строкового представления.
func NewRecordID(s string) RecordID {
	return RecordID(strings.TrimSpace(s))
}

// String возвращает строковое представление идентификатора.
func (id RecordID) String() string {
	return string(id)
}

// IsZero сообщает, что идентификатор пуст.
func (id RecordID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Equal сравнивает идентификаторы в нормализованной форме.
func (id RecordID) Equal(other RecordID) bool {
	return NewRecordID(string(id)) == NewRecordID(string(other))
}

// UnmarshalJSON принимает как JSON-строку, так и JSON-число.
func (id *RecordID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = NewRecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = NewRecordID(n.String())
	return nil
}

// Office — региональное управление, которому принадлежит объект.
type Office string

// Известные управления.
const (
	OfficeSeoul   Office = "서울청"
	OfficeDaejeon Office = "대전청"
	OfficeWonju   Office = "원주청"
	OfficeJeju    Office = "제주도"
)

// Offices — закрытый набор управлений в порядке отображения.
var Offices = []Office{OfficeSeoul, OfficeDaejeon, OfficeWonju, OfficeJeju}

// Known сообщает, входит ли управление в закрытый набор.
func (o Office) Known() bool {
	for _, known := range Offices {
		if o == known {
			return true
		}
	}
	return false
}

// Status — этап жизненного цикла записи.
type Status string

// Статусы записи. Переход только Pending → Completed.
const (
	StatusPending   Status = "대기"
	StatusCompleted Status = "완료"
)

// Result — итог инспекции.
type Result string

// Итоги инспекции. ResultUnset — заполнитель до выполнения.
const (
	ResultGood  Result = "양호"
	ResultTier2 Result = "2차 초과"
	ResultTier3 Result = "3차 초과"
	ResultUnset Result = "-"
)

// Known сообщает, является ли значение итогом выполненной инспекции.
func (r Result) Known() bool {
	switch r {
	case ResultGood, ResultTier2, ResultTier3:
		return true
	}
	return false
}

// InspectionRecord — запись инспекции.
type InspectionRecord struct {
	// ID — стабильный уникальный идентификатор
	ID RecordID `json:"id" yaml:"id"`
	// Date — дата в формате YYYY-MM-DD (может быть пустой или некорректной)
	Date string `json:"date" yaml:"date"`
	// Site — наименование объекта
	Site string `json:"site" yaml:"site"`
	// Office — управление
	Office Office `json:"office" yaml:"office"`
	// Manager — ответственный
	Manager string `json:"manager" yaml:"manager"`
	// Status — 대기 / 완료
	Status Status `json:"status" yaml:"status"`
	// Result — итог инспекции или "-"
	Result Result `json:"result" yaml:"result"`
	// Details — описание результатов
	Details string `json:"details" yaml:"details"`
	// Photos — имена файлов фотографий (никогда не nil в хранилище)
	Photos []string `json:"photos" yaml:"photos"`
}

// Completed сообщает, что инспекция выполнена.
func (r InspectionRecord) Completed() bool {
	return r.Status == StatusCompleted
}

// Clone возвращает копию записи с собственным срезом Photos.
func (r InspectionRecord) Clone() InspectionRecord {
	c := r
	c.Photos = make([]string, len(r.Photos))
	copy(c.Photos, r.Photos)
	return c
}

// Fields — частичное обновление записи. nil — поле не меняется.
type Fields struct {
	Date    *string
	Site    *string
	Office  *Office
	Manager *string
	Status  *Status
	Result  *Result
	Details *string
	Photos  []string
}

// Merge накладывает fields поверх записи (поверхностная перезапись полей).
// ID не меняется никогда.
func (r InspectionRecord) Merge(f Fields) InspectionRecord {
	out := r.Clone()
	if f.Date != nil {
		out.Date = *f.Date
	}
	if f.Site != nil {
		out.Site = *f.Site
	}
	if f.Office != nil {
		out.Office = *f.Office
	}
	if f.Manager != nil {
		out.Manager = *f.Manager
	}
	if f.Status != nil {
		out.Status = *f.Status
	}
	if f.Result != nil {
		out.Result = *f.Result
	}
	if f.Details != nil {
		out.Details = *f.Details
	}
	if f.Photos != nil {
		out.Photos = make([]string, len(f.Photos))
		copy(out.Photos, f.Photos)
	}
	return out
}

// WireRecord — форма записи для write endpoint:
// photos склеены через запятую, пустая дата заменена текущей.
type WireRecord struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Site    string `json:"site"`
	Office  string `json:"office"`
	Manager string `json:"manager"`
	Status  string `json:"status"`
	Result  string `json:"result"`
	Details string `json:"details"`
	Photos  string `json:"photos"`
}

// Wire преобразует запись в форму для отправки. today — текущий момент.
func (r InspectionRecord) Wire(today time.Time) WireRecord {
	date := r.Date
	if date == "" {
		date = today.UTC().Format(DateLayout)
	}
	return WireRecord{
		ID:      r.ID.String(),
		Date:    date,
		Site:    r.Site,
		Office:  string(r.Office),
		Manager: r.Manager,
		Status:  string(r.Status),
		Result:  string(r.Result),
		Details: r.Details,
		Photos:  strings.Join(r.Photos, ","),
	}
}
