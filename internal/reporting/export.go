package reporting

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetOverall = "Overall"
	sheetUsers   = "Users"
)

// ExportXLSX renders a report as a workbook with an overall sheet and a
// per-user sheet, rows in report order.
func ExportXLSX(r KPIReport) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheetOverall); err != nil {
		return nil, err
	}
	o := r.Overall
	overall := [][]any{
		{"Range", string(r.Range)},
		{"Generated at", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Window start", r.Cutoff.UTC().Format(time.RFC3339)},
		{"Total calls", o.TotalCalls},
		{"Completed calls", o.CompletedCalls},
		{"Failed calls", o.FailedCalls},
		{"Success rate (%)", o.SuccessRate},
		{"Total duration (s)", o.TotalDuration},
		{"Average duration (s)", o.AverageDuration},
		{"Total cost", o.TotalCost},
		{"Average cost", o.AverageCost},
		{"Calls today", o.CallsToday},
		{"Calls last 7 days", o.CallsThisWeek},
		{"Calls last 30 days", o.CallsThisMonth},
		{"Active users", o.ActiveUsers},
		{"Unattributed calls", len(r.UnattributedCalls)},
	}
	for i, row := range overall {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(sheetOverall, cell, &row); err != nil {
			return nil, fmt.Errorf("write overall row %d: %w", i, err)
		}
	}

	if _, err := xl.NewSheet(sheetUsers); err != nil {
		return nil, err
	}
	header := []any{"User", "Email", "Total", "Completed", "Failed", "Success rate (%)",
		"Last 7 days", "Last 30 days", "Total duration (s)", "Average duration (s)",
		"Total cost", "Average cost", "Last call"}
	if err := xl.SetSheetRow(sheetUsers, "A1", &header); err != nil {
		return nil, err
	}
	for i, u := range r.Users {
		last := ""
		if u.LastCallDate != nil {
			last = u.LastCallDate.UTC().Format(time.RFC3339)
		}
		row := []any{u.DisplayName, u.Email, u.TotalCalls, u.CompletedCalls, u.FailedCalls,
			u.SuccessRate, u.CallsThisWeek, u.CallsThisMonth, u.TotalDuration,
			u.AverageDuration, u.TotalCost, u.AverageCost, last}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(sheetUsers, cell, &row); err != nil {
			return nil, fmt.Errorf("write user row %d: %w", i, err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names the workbook after its range and generation date.
func ExportFilename(r KPIReport) string {
	return fmt.Sprintf("kpi_%s_%s.xlsx", r.Range, r.GeneratedAt.Format("20060102"))
}
