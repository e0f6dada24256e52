package attendance

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/validator"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Engine pairs clock-in/clock-out arrays into classified attendance records.
// It holds no state between runs.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an Engine that reads zone-less timestamps in loc (UTC when nil).
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

var _ attendance.Reconciler = (*Engine)(nil)

// Reconcile implements attendance.Reconciler.
func (e *Engine) Reconcile(raws []attendance.RawEmployeeAttendance) attendance.ReconcileResult {
	result := attendance.ReconcileResult{
		Records:  make([]attendance.AttendanceRecord, 0),
		Warnings: make([]attendance.DataQualityWarning, 0),
	}

	for _, raw := range raws {
		records, warnings := e.reconcileEmployee(raw)
		result.Records = append(result.Records, records...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	// Most recent first. Stable, so ties keep employee order then pair index.
	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].Date > result.Records[j].Date
	})

	return result
}

func (e *Engine) reconcileEmployee(raw attendance.RawEmployeeAttendance) ([]attendance.AttendanceRecord, []attendance.DataQualityWarning) {
	var (
		records  []attendance.AttendanceRecord
		warnings []attendance.DataQualityWarning
	)

	warn := func(i int, kind attendance.WarningKind, value string) attendance.DataQualityWarning {
		w := attendance.DataQualityWarning{
			EmployeeName: raw.EmployeeName,
			PairIndex:    i,
			Kind:         kind,
			Value:        value,
		}
		warnings = append(warnings, w)
		return w
	}

	n := max(len(raw.ClockIn), len(raw.ClockOut))
	for i := 0; i < n; i++ {
		clockIn := valueAt(raw.ClockIn, i)
		clockOut := valueAt(raw.ClockOut, i)

		if validator.IsEmpty(clockIn) {
			if !validator.IsEmpty(clockOut) {
				warn(i, attendance.WarningOrphanClockOut, clockOut)
			}
			continue
		}

		timeIn, ok := validator.ParseTimestamp(clockIn, e.loc)
		if !ok {
			warn(i, attendance.WarningUnparsableClockIn, clockIn)
			continue
		}

		record := attendance.AttendanceRecord{
			ID:               fmt.Sprintf("%s-%d", raw.EmployeeName, i),
			EmployeeID:       raw.EmployeeID,
			EmployeeName:     raw.EmployeeName,
			RegionName:       raw.RegionName,
			AreaName:         raw.AreaName,
			Designation:      raw.Designation,
			Date:             timeIn.Format(dateLayout),
			TimeIn:           timeIn.Format(timeLayout),
			MinutesEstimated: true,
		}

		var timeOut *time.Time
		if !validator.IsEmpty(clockOut) {
			if t, ok := validator.ParseTimestamp(clockOut, e.loc); ok {
				timeOut = &t
			} else {
				w := warn(i, attendance.WarningUnparsableClockOut, clockOut)
				record.Warnings = append(record.Warnings, w.String())
			}
		}

		switch {
		case timeOut == nil:
			record.IsIncomplete = true
			record.WorkDuration = attendance.DurationIncomplete
		case timeOut.Before(timeIn):
			out := timeOut.Format(timeLayout)
			record.TimeOut = &out
			record.WorkDuration = attendance.DurationNotApplicable
			w := warn(i, attendance.WarningClockOutBeforeIn, clockOut)
			record.Warnings = append(record.Warnings, w.String())
		default:
			out := timeOut.Format(timeLayout)
			minutes := int(timeOut.Sub(timeIn) / time.Minute)
			record.TimeOut = &out
			record.WorkMinutes = &minutes
			record.WorkDuration = formatWorkDuration(minutes)
		}

		record.Status = classify(i, raw.LateDays, record.IsIncomplete)

		// Positional estimates: the source only reports window totals.
		if raw.LateDays > 0 && i < raw.LateDays {
			record.LateMinutes = raw.LateMinutes / raw.LateDays
		}
		if raw.PresentDays > 0 {
			record.OvertimeMinutes = raw.OvertimeMinutes / raw.PresentDays
		}

		records = append(records, record)
	}

	return records, warnings
}

// classify applies the positional late heuristic: the first lateDays records are Late.
func classify(i, lateDays int, incomplete bool) attendance.Status {
	switch {
	case incomplete:
		return attendance.StatusIncomplete
	case i < lateDays:
		return attendance.StatusLate
	default:
		return attendance.StatusPresent
	}
}

func formatWorkDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
