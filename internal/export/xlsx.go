// Package export writes an alert set as a spreadsheet or a Word report.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"epiwatch/internal/alert"
)

const (
	alertsSheet  = "Alerts"
	summarySheet = "Summary"
)

var alertHeader = []any{"source", "title", "keyword", "date", "country", "link"}

func buildWorkbook(set alert.AlertSet) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", alertsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(alertsSheet, "A1", &alertHeader); err != nil {
		return nil, err
	}
	for i, a := range set.Alerts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{a.Source, a.Title, a.Keyword, a.Date, a.Country, a.Link}
		if err := f.SetSheetRow(alertsSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(alertsSheet, "B", "B", 60); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(alertsSheet, "F", "F", 50); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	rows := [][]any{
		{"Total Alerts", set.Summary.Total},
		{"Top Keyword", set.Summary.TopKeyword},
		{"Top Source", set.Summary.TopSource},
		{"From", set.Start},
		{"To", set.End},
		{"Run ID", set.RunID},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteXLSX writes the alert set as a workbook with an Alerts sheet and a
// Summary sheet.
func WriteXLSX(w io.Writer, set alert.AlertSet) error {
	f, err := buildWorkbook(set)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func SaveXLSX(path string, set alert.AlertSet) error {
	f, err := buildWorkbook(set)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
