package attendance

import (
	"math"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
)

const lowAttendanceThreshold = 80.0

// CalculateStats derives page-local summary metrics from the filtered employees and
// their reconciled records.
func CalculateStats(employees []attendance.RawEmployeeAttendance, records []attendance.AttendanceRecord) report.AggregateStats {
	stats := report.AggregateStats{
		TotalEmployees: len(employees),
		PageLocal:      true,
	}

	var percentSum float64
	for _, emp := range employees {
		if emp.Enrolled {
			stats.EnrolledEmployees++
		}

		percent := emp.PresentPercent()
		percentSum += percent

		switch {
		case percent >= 100:
			stats.PerfectAttendance++
		case percent < lowAttendanceThreshold:
			stats.LowAttendance++
		}
	}

	if len(employees) > 0 {
		stats.AverageAttendance = roundTo(percentSum/float64(len(employees)), 1)
	}

	for _, rec := range records {
		if rec.IsIncomplete {
			stats.IncompleteRecords++
		} else {
			stats.CompleteRecords++
		}
	}

	return stats
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
