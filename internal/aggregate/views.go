package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
)

// AllFilter — значение фильтра "все" из интерфейса.
const AllFilter = "전체"

// HistoryFilter — фильтры таблицы истории. Пустое значение (или AllFilter) —
// фильтр не применяется.
type HistoryFilter struct {
	// Year — префикс даты (год)
	Year string
	// Site — подстрока названия объекта без учёта регистра
	Site string
	// Office — управление, точное совпадение
	Office string
	// From — нижняя граница даты включительно (YYYY-MM-DD)
	From string
	// To — верхняя граница даты включительно (YYYY-MM-DD)
	To string
}

// FilterHistory отбирает записи для таблицы истории.
// Записи с некорректной датой не попадают в историю.
// Результат отсортирован по дате, новые первыми.
func FilterHistory(records []model.InspectionRecord, f HistoryFilter) []model.InspectionRecord {
	type dated struct {
		rec  model.InspectionRecord
		date time.Time
	}

	site := strings.ToLower(f.Site)
	var matched []dated
	for _, r := range records {
		t, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		if active(f.Year) && !strings.HasPrefix(r.Date, f.Year) {
			continue
		}
		if site != "" && !strings.Contains(strings.ToLower(r.Site), site) {
			continue
		}
		if active(f.Office) && string(r.Office) != f.Office {
			continue
		}
		if f.From != "" && r.Date < f.From {
			continue
		}
		if f.To != "" && r.Date > f.To {
			continue
		}
		matched = append(matched, dated{rec: r.Clone(), date: t})
	}

	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].date.After(matched[b].date)
	})

	out := make([]model.InspectionRecord, len(matched))
	for i := range matched {
		out[i] = matched[i].rec
	}
	return out
}

// UniqueYears возвращает годы корректных дат, по убыванию.
func UniqueYears(records []model.InspectionRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := ParseDate(r.Date); !ok || !strings.Contains(r.Date, "-") {
			continue
		}
		year, _, _ := strings.Cut(r.Date, "-")
		seen[year] = struct{}{}
	}

	years := make([]string, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years
}

// CalendarDay — ячейка календаря.
type CalendarDay struct {
	Day     int                      `json:"day"`
	Date    string                   `json:"date"`
	Records []model.InspectionRecord `json:"records"`
}

// Month — сетка месяца.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	// FirstWeekday — день недели первого числа (0 — воскресенье)
	FirstWeekday time.Weekday  `json:"first_weekday"`
	Days         []CalendarDay `json:"days"`
}

// DayRecords возвращает записи с датой ровно year-month-day.
func DayRecords(records []model.InspectionRecord, year int, month time.Month, day int) []model.InspectionRecord {
	date := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
	out := []model.InspectionRecord{}
	for _, r := range records {
		if r.Date == date {
			out = append(out, r.Clone())
		}
	}
	return out
}

// MonthCalendar строит сетку месяца с записями по дням.
func MonthCalendar(records []model.InspectionRecord, year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDate := make(map[string][]model.InspectionRecord)
	for _, r := range records {
		byDate[r.Date] = append(byDate[r.Date], r.Clone())
	}

	m := Month{
		Year:         first.Year(),
		Month:        first.Month(),
		FirstWeekday: first.Weekday(),
		Days:         make([]CalendarDay, 0, daysInMonth),
	}
	for day := 1; day <= daysInMonth; day++ {
		date := first.AddDate(0, 0, day-1).Format(model.DateLayout)
		dayRecords := byDate[date]
		if dayRecords == nil {
			dayRecords = []model.InspectionRecord{}
		}
		m.Days = append(m.Days, CalendarDay{Day: day, Date: date, Records: dayRecords})
	}
	return m
}

// OfficeGroup — записи одного управления.
type OfficeGroup struct {
	Office  model.Office             `json:"office"`
	Records []model.InspectionRecord `json:"records"`
}

// PendingByOffice группирует невыполненные записи по известным управлениям
// в порядке model.Offices. Записи неизвестных управлений не попадают в группы.
func PendingByOffice(records []model.InspectionRecord) []OfficeGroup {
	groups := make([]OfficeGroup, len(model.Offices))
	index := make(map[model.Office]int, len(model.Offices))
	for i, o := range model.Offices {
		groups[i] = OfficeGroup{Office: o, Records: []model.InspectionRecord{}}
		index[o] = i
	}

	for _, r := range records {
		if r.Completed() {
			continue
		}
		if i, ok := index[r.Office]; ok {
			groups[i].Records = append(groups[i].Records, r.Clone())
		}
	}
	return groups
}

// active сообщает, что фильтр задан.
func active(v string) bool {
	return v != "" && v != AllFilter
}
