package export

import (
	"fmt"
	"io"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/jung-kurt/gofpdf"
)

// maxPDFRecords caps the record table; the workbook carries the full page.
const maxPDFRecords = 200

// WriteSummaryPDF renders the view's statistics followed by its records table.
func WriteSummaryPDF(w io.Writer, view report.View, generatedAt time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Attendance Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", view.Descriptor.StartDate, view.Descriptor.EndDate))
	pdf.Ln(7)
	if view.Descriptor.SearchText != "" {
		pdf.Cell(0, 7, tr(fmt.Sprintf("Search: %s", view.Descriptor.SearchText)))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Page %d, %d per page", view.Descriptor.Page, view.Descriptor.PageSize))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(90, 8, "Metric")
	pdf.Cell(60, 8, "Value")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	s := view.Stats
	metrics := []struct {
		label string
		value string
	}{
		{"Employees on page", fmt.Sprintf("%d", s.TotalEmployees)},
		{"Enrolled", fmt.Sprintf("%d", s.EnrolledEmployees)},
		{"Average attendance", fmt.Sprintf("%.1f%%", s.AverageAttendance)},
		{"Low attendance (< 80%)", fmt.Sprintf("%d", s.LowAttendance)},
		{"Perfect attendance", fmt.Sprintf("%d", s.PerfectAttendance)},
		{"Complete records", fmt.Sprintf("%d", s.CompleteRecords)},
		{"Incomplete records", fmt.Sprintf("%d", s.IncompleteRecords)},
	}
	for _, m := range metrics {
		pdf.Cell(90, 7, m.label)
		pdf.Cell(60, 7, m.value)
		pdf.Ln(7)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Figures cover the current page only. Late and overtime minutes are estimates.")
	pdf.Ln(10)

	columns := []struct {
		title string
		width float64
	}{
		{"Employee", 60}, {"Date", 25}, {"Status", 25}, {"In", 18},
		{"Out", 18}, {"Duration", 28}, {"Late", 18}, {"Overtime", 22},
	}

	pdf.SetFont("Helvetica", "B", 10)
	for _, col := range columns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, rec := range view.Records {
		if i == maxPDFRecords {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "I", 9)
			pdf.Cell(0, 6, fmt.Sprintf("%d more records omitted", len(view.Records)-maxPDFRecords))
			pdf.Ln(6)
			break
		}

		timeOut := "-"
		if rec.TimeOut != nil {
			timeOut = *rec.TimeOut
		}
		values := []string{
			tr(rec.EmployeeName), rec.Date, string(rec.Status), rec.TimeIn,
			timeOut, rec.WorkDuration, fmt.Sprintf("%d", rec.LateMinutes), fmt.Sprintf("%d", rec.OvertimeMinutes),
		}
		for j, col := range columns {
			pdf.CellFormat(col.width, 6, values[j], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 8, fmt.Sprintf("Generated at: %s", generatedAt.Format("02 January 2006 15:04:05")))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
