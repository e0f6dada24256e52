package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"

	recordsSheet = "Records"
	statsSheet   = "Summary"
	rawSheet     = "Attendance"
	defaultSheet = "Sheet1"
)

var recordHeaders = []any{
	"Employee", "Region", "Area", "Designation", "Date", "Status",
	"Time In", "Time Out", "Work Duration", "Late (min, est.)", "Overtime (min, est.)", "Warnings",
}

var rawHeaders = []any{
	"Employee ID", "Employee", "Region", "Area", "Designation", "Enrolled",
	"Working Days", "Present Days", "Absent Days", "Late Days", "Late Minutes", "Overtime Minutes",
	"Clock In", "Clock Out",
}

// WorkbookInfo describes an xlsx artifact.
type WorkbookInfo struct {
	Sheets []string
	Rows   int
}

// WriteRecordsWorkbook renders a reconciled view as a workbook with a Records sheet and
// a Summary sheet of its page-local statistics.
func WriteRecordsWorkbook(w io.Writer, view report.View) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(defaultSheet, recordsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	rows := make([][]any, 0, len(view.Records))
	for _, rec := range view.Records {
		timeOut := ""
		if rec.TimeOut != nil {
			timeOut = *rec.TimeOut
		}
		rows = append(rows, []any{
			rec.EmployeeName, rec.RegionName, rec.AreaName, rec.Designation, rec.Date, string(rec.Status),
			rec.TimeIn, timeOut, rec.WorkDuration, rec.LateMinutes, rec.OvertimeMinutes, joinWarnings(rec.Warnings),
		})
	}
	if err := writeTable(f, recordsSheet, recordHeaders, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(statsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeTable(f, statsSheet, []any{"Metric", "Value"}, statRows(view)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteRawWorkbook renders raw per-employee attendance as the spreadsheet export
// artifact. Clock arrays are written as-is, one event per line.
func WriteRawWorkbook(w io.Writer, q attendance.QueryDescriptor, raws []attendance.RawEmployeeAttendance) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(defaultSheet, rawSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetCellValue(rawSheet, "A1", fmt.Sprintf("Attendance %s to %s", q.StartDate, q.EndDate)); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}

	rows := make([][]any, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, []any{
			raw.EmployeeID, raw.EmployeeName, raw.RegionName, raw.AreaName, raw.Designation, raw.Enrolled,
			raw.WorkingDays, raw.PresentDays, raw.AbsentDays, raw.LateDays, raw.LateMinutes, raw.OvertimeMinutes,
			joinLines(raw.ClockIn), joinLines(raw.ClockOut),
		})
	}
	if err := writeTableAt(f, rawSheet, 3, rawHeaders, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// InspectWorkbook opens an xlsx artifact and counts the non-empty rows of every sheet.
func InspectWorkbook(r io.Reader) (WorkbookInfo, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return WorkbookInfo{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	info := WorkbookInfo{Sheets: f.GetSheetList()}
	if len(info.Sheets) == 0 {
		return WorkbookInfo{}, fmt.Errorf("no worksheet found")
	}

	for _, sheet := range info.Sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return WorkbookInfo{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		info.Rows += len(rows)
	}
	return info, nil
}

func writeTable(f *excelize.File, sheet string, headers []any, rows [][]any) error {
	return writeTableAt(f, sheet, 1, headers, rows)
}

func writeTableAt(f *excelize.File, sheet string, startRow int, headers []any, rows [][]any) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	first, err := excelize.CoordinatesToCellName(1, startRow)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), startRow)
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, first, &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func statRows(view report.View) [][]any {
	s := view.Stats
	return [][]any{
		{"Period", fmt.Sprintf("%s to %s", view.Descriptor.StartDate, view.Descriptor.EndDate)},
		{"Employees on page", s.TotalEmployees},
		{"Enrolled", s.EnrolledEmployees},
		{"Average attendance %", s.AverageAttendance},
		{"Low attendance (< 80%)", s.LowAttendance},
		{"Perfect attendance", s.PerfectAttendance},
		{"Complete records", s.CompleteRecords},
		{"Incomplete records", s.IncompleteRecords},
		{"Scope", "current page only"},
	}
}

func joinWarnings(warnings []string) string {
	return strings.Join(warnings, "; ")
}

func joinLines(values []string) string {
	return strings.Join(values, "\n")
}
