package jobs

import (
	"log"
	"time"

	"case_registry_go/metrics"
	"case_registry_go/models"

	"gorm.io/gorm"
)

// openStatuses are the statuses whose due date still matters
var openStatuses = []models.CaseStatus{
	models.CaseStatusPending,
	models.CaseStatusUnderReview,
	models.CaseStatusInProgress,
}

// ScanOverdueCases counts open cases whose due date has passed, per type,
// and publishes the counts to the overdue gauge. Every type is reported.
func ScanOverdueCases(database *gorm.DB, now time.Time) (map[models.CaseType]int64, error) {
	log.Println("Starting overdue case scan...")

	// Due dates are stored in UTC
	now = now.UTC()

	type row struct {
		Type  models.CaseType
		Total int64
	}
	var rows []row

	err := database.Model(&models.Case{}).
		Select("type, COUNT(*) AS total").
		Where("status IN ?", openStatuses).
		Where("due_date < ?", now).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		log.Printf("Error counting overdue cases: %v", err)
		return nil, err
	}

	counts := make(map[models.CaseType]int64, len(models.AllCaseTypes))
	for _, t := range models.AllCaseTypes {
		counts[t] = 0
	}
	var total int64
	for _, r := range rows {
		counts[r.Type] = r.Total
		total += r.Total
	}

	for t, n := range counts {
		metrics.OverdueCases.WithLabelValues(string(t)).Set(float64(n))
	}

	log.Printf("Overdue case scan completed: %d overdue", total)
	return counts, nil
}
