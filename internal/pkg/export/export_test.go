package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleView() report.View {
	out := "17:30"
	return report.View{
		Version: 3,
		Status:  report.ViewOK,
		Descriptor: attendance.QueryDescriptor{
			StartDate: "2024-01-01",
			EndDate:   "2024-01-31",
			Page:      1,
			PageSize:  20,
		},
		Records: []attendance.AttendanceRecord{
			{ID: "A-1", EmployeeName: "Alice", Date: "2024-01-02", Status: attendance.StatusIncomplete, TimeIn: "09:00", WorkDuration: "Incomplete", IsIncomplete: true},
			{ID: "A-0", EmployeeName: "Alice", Date: "2024-01-01", Status: attendance.StatusLate, TimeIn: "09:10", TimeOut: &out, WorkDuration: "8h 20m", LateMinutes: 10},
		},
		Stats: report.AggregateStats{TotalEmployees: 1, AverageAttendance: 50, LowAttendance: 1, CompleteRecords: 1, IncompleteRecords: 1, PageLocal: true},
	}
}

func TestWriteRecordsWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecordsWorkbook(&buf, sampleView()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Records", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Employee", rows[0][0])
	assert.Equal(t, "2024-01-02", rows[1][4])
	assert.Equal(t, "Incomplete", rows[1][5])
	assert.Equal(t, "17:30", rows[2][7])

	value, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 to 2024-01-31", value)
}

func TestWriteRawWorkbookAndInspect(t *testing.T) {
	raws := []attendance.RawEmployeeAttendance{
		{EmployeeID: "e1", EmployeeName: "Alice", ClockIn: []string{"2024-01-01T09:00:00"}, WorkingDays: 1, PresentDays: 1},
		{EmployeeID: "e2", EmployeeName: "Bashir"},
	}
	q := attendance.QueryDescriptor{StartDate: "2024-01-01", EndDate: "2024-01-31"}

	var buf bytes.Buffer
	require.NoError(t, WriteRawWorkbook(&buf, q, raws))

	info, err := InspectWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Attendance"}, info.Sheets)
	// title, blank row, header, two employees
	assert.Equal(t, 5, info.Rows)
}

func TestInspectWorkbookRejectsGarbage(t *testing.T) {
	_, err := InspectWorkbook(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

func TestWriteSummaryPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryPDF(&buf, sampleView(), time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteSummaryPDF_ManyRecords(t *testing.T) {
	view := sampleView()
	for i := 0; i < maxPDFRecords+5; i++ {
		view.Records = append(view.Records, view.Records[0])
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryPDF(&buf, view, time.Now()))
	assert.NotZero(t, buf.Len())
}
