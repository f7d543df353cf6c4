package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"case_registry_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultCaseListLimit = 50
	maxCaseListLimit     = 500
)

// CaseFilter narrows a case listing. Zero values are ignored.
type CaseFilter struct {
	Type        models.CaseType
	Status      models.CaseStatus
	Priority    models.CasePriority
	AssigneeID  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string
	Limit       int
	Offset      int
}

// CaseListItem is a case row with the aggregates shown in listings
type CaseListItem struct {
	models.Case
	TrackingCount   int64 `json:"tracking_count"`
	AttachmentCount int64 `json:"attachment_count"`
	IsOverdue       bool  `json:"is_overdue"`
	DaysRemaining   int   `json:"days_remaining"`
}

// CaseList is one page of cases plus the total matching the filter
type CaseList struct {
	Items  []CaseListItem `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Validate checks the enum fields of the filter
func (f *CaseFilter) Validate() error {
	var problems []string
	if f.Type != "" && !models.IsValidCaseType(f.Type) {
		problems = append(problems, fmt.Sprintf("unknown case type %q", f.Type))
	}
	if f.Status != "" && !models.IsValidCaseStatus(f.Status) {
		problems = append(problems, fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.Priority != "" && !models.IsValidCasePriority(f.Priority) {
		problems = append(problems, fmt.Sprintf("unknown priority %q", f.Priority))
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		problems = append(problems, "created_to must not be before created_from")
	}
	if f.Limit < 0 || f.Offset < 0 {
		problems = append(problems, "limit and offset must not be negative")
	}
	return newValidationError(problems)
}

func (f *CaseFilter) apply(query *gorm.DB) *gorm.DB {
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}
	if f.AssigneeID != "" {
		query = query.Where("assignee_id = ?", f.AssigneeID)
	}
	if f.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		query = query.Where("created_at <= ?", *f.CreatedTo)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(code) LIKE ? OR LOWER(facts_description) LIKE ? OR LOWER(rights_affected) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return query
}

// preloadCaseDetail loads everything a case detail view needs.
// Entries and attachments come newest first.
func preloadCaseDetail(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Complainant").
		Preload("Respondent").
		Preload("Assignee").
		Preload("TrackingEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("TrackingEntries.Attachments").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at DESC")
		})
}

// FindCase loads a case with its parties, assignee, ledger and attachments
func FindCase(ctx context.Context, db *gorm.DB, id string) (*models.Case, error) {
	var c models.Case
	err := preloadCaseDetail(db.WithContext(ctx)).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCaseByCode loads a case by its human-readable code
func FindCaseByCode(ctx context.Context, db *gorm.DB, code string) (*models.Case, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := ParseCaseCode(code); err != nil {
		return nil, err
	}

	var c models.Case
	err := preloadCaseDetail(db.WithContext(ctx)).First(&c, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// findCaseRow loads the bare case row without relations
func findCaseRow(db *gorm.DB, id string) (*models.Case, error) {
	var c models.Case
	err := db.First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// lockCase reads the case row for update. Postgres takes a row lock;
// sqlite already serializes writers through its immediate transactions.
func lockCase(tx *gorm.DB, id string) (*models.Case, error) {
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return findCaseRow(tx, id)
}

type caseCountRow struct {
	CaseID string
	Count  int64
}

func countByCase(db *gorm.DB, model interface{}, caseIDs []string) (map[string]int64, error) {
	var rows []caseCountRow
	err := db.Model(model).
		Select("case_id, COUNT(*) AS count").
		Where("case_id IN ?", caseIDs).
		Group("case_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.CaseID] = r.Count
	}
	return counts, nil
}

// ListCases returns cases matching filter, newest first, with parties and assignee loaded
func ListCases(ctx context.Context, db *gorm.DB, filter CaseFilter, now time.Time) (*CaseList, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit == 0 {
		limit = defaultCaseListLimit
	}
	if limit > maxCaseListLimit {
		limit = maxCaseListLimit
	}

	db = db.WithContext(ctx)

	var total int64
	if err := filter.apply(db.Model(&models.Case{})).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}

	var cases []models.Case
	err := filter.apply(db.Model(&models.Case{})).
		Preload("Complainant").
		Preload("Respondent").
		Preload("Assignee").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	list := &CaseList{Items: make([]CaseListItem, 0, len(cases)), Total: total, Limit: limit, Offset: filter.Offset}
	if len(cases) == 0 {
		return list, nil
	}

	ids := make([]string, len(cases))
	for i := range cases {
		ids[i] = cases[i].ID
	}
	entryCounts, err := countByCase(db, &models.TrackingEntry{}, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count tracking entries: %w", err)
	}
	attachmentCounts, err := countByCase(db, &models.Attachment{}, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count attachments: %w", err)
	}

	for i := range cases {
		c := cases[i]
		list.Items = append(list.Items, CaseListItem{
			Case:            c,
			TrackingCount:   entryCounts[c.ID],
			AttachmentCount: attachmentCounts[c.ID],
			IsOverdue:       IsOverdue(&c, now),
			DaysRemaining:   DaysRemaining(&c, now),
		})
	}
	return list, nil
}
