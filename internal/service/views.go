// views.go — сервис производных представлений: дашборд, история, календарь.
// Каждый вызов работает с собственным снимком хранилища.
package service

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/inspection-module/internal/aggregate"
	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/store"
)

// Prometheus-метрики представлений.
var (
	viewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "im_views_total",
		Help: "Общее количество построенных представлений (по виду).",
	}, []string{"view"})
	viewDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "im_view_duration_seconds",
		Help:    "Длительность построения представлений.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})
)

// OfficeCount — счётчик управления с долей от итога года.
type OfficeCount struct {
	Office  model.Office `json:"office"`
	Count   int          `json:"count"`
	Percent int          `json:"percent"`
}

// QuarterCount — столбец квартального графика.
type QuarterCount struct {
	Quarter  int           `json:"quarter"`
	Total    int           `json:"total"`
	ByOffice []OfficeCount `json:"by_office"`
}

// YearSection — раздел дашборда за один год.
type YearSection struct {
	Year     string         `json:"year"`
	Total    int            `json:"total"`
	ScaleMax int            `json:"scale_max"`
	Offices  []OfficeCount  `json:"offices"`
	Quarters []QuarterCount `json:"quarters"`
}

// ViewService — сервис представлений.
type ViewService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewViewService создаёт сервис представлений.
func NewViewService(st *store.Store, logger *slog.Logger) *ViewService {
	return &ViewService{
		store:  st,
		logger: logger.With(slog.String("component", "view_service")),
	}
}

// Dashboard строит разделы по годам (новые первыми, Unknown последним).
func (v *ViewService) Dashboard() []YearSection {
	defer v.observe("dashboard", time.Now())

	groups := aggregate.GroupByYear(v.store.Snapshot())
	sections := make([]YearSection, 0, len(groups))
	for _, g := range groups {
		sections = append(sections, buildSection(g))
	}
	return sections
}

// History возвращает отфильтрованную историю, новые даты первыми.
func (v *ViewService) History(filter aggregate.HistoryFilter) []model.InspectionRecord {
	defer v.observe("history", time.Now())
	return aggregate.FilterHistory(v.store.Snapshot(), filter)
}

// Years возвращает годы для фильтра истории.
func (v *ViewService) Years() []string {
	return aggregate.UniqueYears(v.store.Snapshot())
}

// Calendar строит сетку месяца.
func (v *ViewService) Calendar(year int, month time.Month) aggregate.Month {
	defer v.observe("calendar", time.Now())
	return aggregate.MonthCalendar(v.store.Snapshot(), year, month)
}

// Pending возвращает невыполненные инспекции по управлениям.
func (v *ViewService) Pending() []aggregate.OfficeGroup {
	defer v.observe("pending", time.Now())
	return aggregate.PendingByOffice(v.store.Snapshot())
}

// Records возвращает снимок всех записей.
func (v *ViewService) Records() []model.InspectionRecord {
	return v.store.Snapshot()
}

// observe обновляет метрики представления.
func (v *ViewService) observe(view string, start time.Time) {
	duration := time.Since(start)
	viewsTotal.WithLabelValues(view).Inc()
	viewDuration.WithLabelValues(view).Observe(duration.Seconds())
	v.logger.Debug("Представление построено",
		slog.String("view", view),
		slog.Duration("duration", duration),
	)
}

// buildSection превращает группу года в раздел с упорядоченными счётчиками.
func buildSection(g aggregate.YearGroup) YearSection {
	st := aggregate.YearStats(g.Records)
	shares := aggregate.OfficeShares(st)

	section := YearSection{
		Year:     g.Year,
		Total:    st.Total,
		ScaleMax: st.ScaleMax,
		Offices:  make([]OfficeCount, 0, len(model.Offices)),
		Quarters: make([]QuarterCount, 0, len(aggregate.Quarters)),
	}
	for _, o := range model.Offices {
		section.Offices = append(section.Offices, OfficeCount{
			Office:  o,
			Count:   st.ByOffice[o],
			Percent: shares[o],
		})
	}
	for _, q := range aggregate.Quarters {
		qc := QuarterCount{
			Quarter:  q,
			Total:    st.ByQuarter[q],
			ByOffice: make([]OfficeCount, 0, len(model.Offices)),
		}
		for _, o := range model.Offices {
			count := st.ByQuarterOffice[q][o]
			percent := 0
			if qc.Total > 0 {
				percent = count * 100 / qc.Total
			}
			qc.ByOffice = append(qc.ByOffice, OfficeCount{Office: o, Count: count, Percent: percent})
		}
		section.Quarters = append(section.Quarters, qc)
	}
	return section
}
