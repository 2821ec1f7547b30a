// Пакет aggregate — чистые функции получения статистики из снимка записей.
// Ни одна функция не изменяет входной срез и не хранит ссылок на него.
package aggregate

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
)

// UnknownYear — корзина записей с отсутствующей или некорректной датой.
const UnknownYear = "Unknown"

// MinScale — минимальная высота шкалы квартального графика.
const MinScale = 10

// Quarters — номера кварталов.
var Quarters = []int{1, 2, 3, 4}

// YearGroup — записи одного года.
type YearGroup struct {
	Year    string
	Records []model.InspectionRecord
}

// Stats — статистика года.
type Stats struct {
	// Total — все записи, включая неизвестные управления
	Total int
	// ByOffice — только известные управления
	ByOffice map[model.Office]int
	// ByQuarter — записи по кварталам 1..4
	ByQuarter map[int]int
	// ByQuarterOffice — перекрёстная таблица квартал × управление
	ByQuarterOffice map[int]map[model.Office]int
	// ScaleMax — верх шкалы графика: max(10, максимум по кварталам)
	ScaleMax int
}

// ParseDate разбирает дату записи: YYYY-MM-DD или RFC 3339.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// YearOf возвращает год записи: подстроку до первого "-", если это 4 цифры.
// Иначе — UnknownYear.
func YearOf(date string) string {
	if len(date) < 4 {
		return UnknownYear
	}
	year, _, _ := strings.Cut(date, "-")
	if len(year) != 4 {
		return UnknownYear
	}
	for i := 0; i < len(year); i++ {
		if year[i] < '0' || year[i] > '9' {
			return UnknownYear
		}
	}
	return year
}

// QuarterOf возвращает квартал даты 1..4. Некорректная дата — 1.
func QuarterOf(date string) int {
	t, ok := ParseDate(date)
	if !ok {
		return 1
	}
	return (int(t.Month())-1)/3 + 1
}

// GroupByYear разбивает записи по годам.
// Годы упорядочены по убыванию, UnknownYear всегда последний.
// Порядок записей внутри года сохраняется.
func GroupByYear(records []model.InspectionRecord) []YearGroup {
	index := make(map[string]int)
	var groups []YearGroup
	for _, r := range records {
		year := YearOf(r.Date)
		i, ok := index[year]
		if !ok {
			i = len(groups)
			index[year] = i
			groups = append(groups, YearGroup{Year: year})
		}
		groups[i].Records = append(groups[i].Records, r.Clone())
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ya, yb := groups[a].Year, groups[b].Year
		if ya == UnknownYear {
			return false
		}
		if yb == UnknownYear {
			return true
		}
		na, _ := strconv.Atoi(ya)
		nb, _ := strconv.Atoi(yb)
		return na > nb
	})
	if groups == nil {
		groups = []YearGroup{}
	}
	return groups
}

// YearStats считает статистику по записям одного года.
// Детерминирована: одинаковый вход — одинаковый результат.
func YearStats(records []model.InspectionRecord) Stats {
	st := Stats{
		ByOffice:        officeCounts(),
		ByQuarter:       make(map[int]int, len(Quarters)),
		ByQuarterOffice: make(map[int]map[model.Office]int, len(Quarters)),
	}
	for _, q := range Quarters {
		st.ByQuarter[q] = 0
		st.ByQuarterOffice[q] = officeCounts()
	}

	for _, r := range records {
		st.Total++
		q := QuarterOf(r.Date)
		st.ByQuarter[q]++
		if r.Office.Known() {
			st.ByOffice[r.Office]++
			st.ByQuarterOffice[q][r.Office]++
		}
	}

	st.ScaleMax = MinScale
	for _, q := range Quarters {
		if st.ByQuarter[q] > st.ScaleMax {
			st.ScaleMax = st.ByQuarter[q]
		}
	}
	return st
}

// OfficeShares возвращает долю каждого управления в процентах от Total,
// округлённую до целого (половина — от нуля). При Total == 0 доли нулевые.
func OfficeShares(st Stats) map[model.Office]int {
	shares := officeCounts()
	if st.Total == 0 {
		return shares
	}
	total := decimal.NewFromInt(int64(st.Total))
	hundred := decimal.NewFromInt(100)
	for office, count := range st.ByOffice {
		shares[office] = int(decimal.NewFromInt(int64(count)).
			Mul(hundred).
			Div(total).
			Round(0).
			IntPart())
	}
	return shares
}

// officeCounts возвращает нулевые счётчики для всех известных управлений.
func officeCounts() map[model.Office]int {
	m := make(map[model.Office]int, len(model.Offices))
	for _, o := range model.Offices {
		m[o] = 0
	}
	return m
}
