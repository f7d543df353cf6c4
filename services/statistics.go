package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"case_registry_go/models"

	"gorm.io/gorm"
)

// SeriesMonths is the number of months in the monthly series, current month included
const SeriesMonths = 12

// MonthlyCount aggregates the cases registered in one calendar month
type MonthlyCount struct {
	Month       string `json:"month"` // YYYY-MM
	Label       string `json:"label"`
	Registered  int64  `json:"registered"`
	Resolved    int64  `json:"resolved"`
	PendingLike int64  `json:"pending_like"`
	Other       int64  `json:"other"`
}

// CaseSummary is the dashboard view over all cases
type CaseSummary struct {
	Total          int64                         `json:"total"`
	ByType         map[models.CaseType]int64     `json:"by_type"`
	ByStatus       map[models.CaseStatus]int64   `json:"by_status"`
	ByPriority     map[models.CasePriority]int64 `json:"by_priority"`
	ResolvedCount  int64                         `json:"resolved_count"`
	ResolutionRate float64                       `json:"resolution_rate"`
	MonthlySeries  []MonthlyCount                `json:"monthly_series"`
}

// StatisticsService computes read-only aggregates
type StatisticsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewStatisticsService creates a statistics service using the system clock
func NewStatisticsService(db *gorm.DB) *StatisticsService {
	return &StatisticsService{DB: db, Now: time.Now}
}

type groupCountRow struct {
	GroupKey string
	Count    int64
}

type caseMonthRow struct {
	CreatedAt time.Time
	Status    models.CaseStatus
}

func (s *StatisticsService) groupCount(ctx context.Context, column string) (map[string]int64, error) {
	var rows []groupCountRow
	err := s.DB.WithContext(ctx).Model(&models.Case{}).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count cases by %s: %w", column, err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.GroupKey] = r.Count
	}
	return counts, nil
}

// Summary returns totals, per-enum breakdowns with every key present, the resolution rate
// and the 12-month series ending in the current month
func (s *StatisticsService) Summary(ctx context.Context) (*CaseSummary, error) {
	defer observeOperation("statistics", time.Now())

	byType, err := s.groupCount(ctx, "type")
	if err != nil {
		return nil, err
	}
	byStatus, err := s.groupCount(ctx, "status")
	if err != nil {
		return nil, err
	}
	byPriority, err := s.groupCount(ctx, "priority")
	if err != nil {
		return nil, err
	}

	summary := &CaseSummary{
		ByType:     make(map[models.CaseType]int64, len(models.AllCaseTypes)),
		ByStatus:   make(map[models.CaseStatus]int64, len(models.AllCaseStatuses)),
		ByPriority: make(map[models.CasePriority]int64, len(models.AllCasePriorities)),
	}
	for _, t := range models.AllCaseTypes {
		summary.ByType[t] = byType[string(t)]
		summary.Total += byType[string(t)]
	}
	for _, st := range models.AllCaseStatuses {
		summary.ByStatus[st] = byStatus[string(st)]
	}
	for _, p := range models.AllCasePriorities {
		summary.ByPriority[p] = byPriority[string(p)]
	}
	summary.ResolvedCount = summary.ByStatus[models.CaseStatusResolved]
	summary.ResolutionRate = ResolutionRate(summary.ResolvedCount, summary.Total)

	now := s.now()
	start := seriesStart(now)

	var rows []caseMonthRow
	err = s.DB.WithContext(ctx).Model(&models.Case{}).
		Select("created_at, status").
		Where("created_at >= ?", start.UTC()).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly series: %w", err)
	}
	summary.MonthlySeries = buildMonthlySeries(now, rows)

	return summary, nil
}

func (s *StatisticsService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ResolutionRate returns resolved/total as a percentage rounded to two decimals, 0 when there are no cases
func ResolutionRate(resolved, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(resolved)/float64(total)*100*100) / 100
}

// seriesStart is the first instant of the oldest month in the series, in now's location
func seriesStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()-(SeriesMonths-1), 1, 0, 0, 0, 0, now.Location())
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// buildMonthlySeries buckets rows into exactly SeriesMonths months, oldest first.
// Months are calendar months in now's location.
func buildMonthlySeries(now time.Time, rows []caseMonthRow) []MonthlyCount {
	start := seriesStart(now)
	series := make([]MonthlyCount, SeriesMonths)
	index := make(map[string]int, SeriesMonths)
	for i := 0; i < SeriesMonths; i++ {
		month := start.AddDate(0, i, 0)
		series[i] = MonthlyCount{
			Month: monthKey(month),
			Label: month.Format("Jan 2006"),
		}
		index[series[i].Month] = i
	}

	for _, r := range rows {
		i, ok := index[monthKey(r.CreatedAt.In(now.Location()))]
		if !ok {
			continue
		}
		series[i].Registered++
		switch {
		case r.Status == models.CaseStatusResolved:
			series[i].Resolved++
		case r.Status.IsPendingLike():
			series[i].PendingLike++
		default:
			series[i].Other++
		}
	}
	return series
}
