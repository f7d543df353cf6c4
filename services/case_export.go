package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"case_registry_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	exportSheetCases   = "Cases"
	exportSheetSummary = "Summary"
	exportDateFormat   = "2006-01-02"
)

var exportCaseHeaders = []string{
	"Code",
	"Type",
	"Status",
	"Priority",
	"Registered",
	"Due Date",
	"Resolved",
	"Overdue",
	"Complainant",
	"Respondent",
	"Assignee",
	"Anonymous",
	"Confidential",
	"Mediation",
	"Tags",
	"Facts",
}

// ExportCasesXLSX writes the cases matching filter and the summary into a workbook.
// Anonymous and confidential cases never expose the complainant's name.
func ExportCasesXLSX(ctx context.Context, db *gorm.DB, filter CaseFilter, summary *CaseSummary, now time.Time) (*bytes.Buffer, error) {
	defer observeOperation("export", time.Now())

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var cases []models.Case
	err := filter.apply(db.WithContext(ctx).Model(&models.Case{})).
		Preload("Complainant").
		Preload("Respondent").
		Order("created_at DESC").
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cases for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheetCases)
	for i, header := range exportCaseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheetCases, cell, header)
	}

	for i := range cases {
		c := &cases[i]
		row := i + 2
		values := []interface{}{
			c.Code,
			string(c.Type),
			string(c.Status),
			string(c.Priority),
			c.CreatedAt.Format(exportDateFormat),
			c.DueDate.Format(exportDateFormat),
			formatOptionalDate(c.ResolvedAt),
			yesNo(IsOverdue(c, now)),
			exportComplainantName(c),
			exportRespondentName(c),
			derefString(c.AssigneeName),
			yesNo(c.IsAnonymous),
			yesNo(c.IsConfidential),
			yesNo(c.RequiresMediation),
			strings.Join(c.Tags, ", "),
			c.FactsDescription,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(exportSheetCases, cell, v)
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(exportSheetCases, "A1", "P1", headerStyle)
	f.SetColWidth(exportSheetCases, "A", "O", 18)
	f.SetColWidth(exportSheetCases, "P", "P", 60)

	if summary != nil {
		if err := writeSummarySheet(f, summary, headerStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

func writeSummarySheet(f *excelize.File, summary *CaseSummary, headerStyle int) error {
	if _, err := f.NewSheet(exportSheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	row := 1
	set := func(label string, value interface{}) {
		f.SetCellValue(exportSheetSummary, fmt.Sprintf("A%d", row), label)
		f.SetCellValue(exportSheetSummary, fmt.Sprintf("B%d", row), value)
		row++
	}
	section := func(title string) {
		row++
		f.SetCellValue(exportSheetSummary, fmt.Sprintf("A%d", row), title)
		f.SetCellStyle(exportSheetSummary, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), headerStyle)
		row++
	}

	set("Total cases", summary.Total)
	set("Resolved", summary.ResolvedCount)
	set("Resolution rate (%)", summary.ResolutionRate)

	section("By type")
	for _, t := range models.AllCaseTypes {
		set(string(t), summary.ByType[t])
	}
	section("By status")
	for _, st := range models.AllCaseStatuses {
		set(string(st), summary.ByStatus[st])
	}
	section("By priority")
	for _, p := range models.AllCasePriorities {
		set(string(p), summary.ByPriority[p])
	}

	section("Monthly")
	for col, header := range []string{"Month", "Registered", "Resolved", "Pending", "Other"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		f.SetCellValue(exportSheetSummary, cell, header)
	}
	row++
	for _, m := range summary.MonthlySeries {
		for col, v := range []interface{}{m.Label, m.Registered, m.Resolved, m.PendingLike, m.Other} {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(exportSheetSummary, cell, v)
		}
		row++
	}

	f.SetColWidth(exportSheetSummary, "A", "A", 24)
	return nil
}

func exportComplainantName(c *models.Case) string {
	if c.Complainant == nil || c.IsAnonymous || c.IsConfidential {
		return ""
	}
	return c.Complainant.FullName()
}

func exportRespondentName(c *models.Case) string {
	if c.Respondent == nil || c.IsConfidential {
		return ""
	}
	return c.Respondent.FullName()
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportDateFormat)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
