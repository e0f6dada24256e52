package attendance

import "encoding/json"

// RawEmployeeAttendance is one employee's slice of an attendance-report response.
// ClockIn and ClockOut are index-aligned; ClockOut may be shorter.
type RawEmployeeAttendance struct {
	EmployeeID      string   `json:"employee_id"`
	EmployeeName    string   `json:"employee_name"`
	RegionName      string   `json:"region_name"`
	AreaName        string   `json:"area_name"`
	Designation     string   `json:"designation"`
	Enrolled        bool     `json:"enrolled"`
	ClockIn         []string `json:"clock_in"`
	ClockOut        []string `json:"clock_out"`
	WorkingDays     int      `json:"working_days"`
	PresentDays     int      `json:"present_days"`
	AbsentDays      int      `json:"absent_days"`
	LateDays        int      `json:"late_days"`
	LateMinutes     int      `json:"late_minutes"`
	OvertimeMinutes int      `json:"overtime_minutes"`
}

// PresentPercent is present days over working days, 0 when nothing was scheduled.
func (r RawEmployeeAttendance) PresentPercent() float64 {
	if r.WorkingDays <= 0 {
		return 0
	}
	return float64(r.PresentDays) / float64(r.WorkingDays) * 100
}

// RawReport is the decoded JSON page returned by the Source.
type RawReport struct {
	Data    []RawEmployeeAttendance `json:"data"`
	Summary json.RawMessage         `json:"summary,omitempty"`
}

type Status string

const (
	StatusPresent    Status = "Present"
	StatusLate       Status = "Late"
	StatusIncomplete Status = "Incomplete"
)

const (
	DurationIncomplete    = "Incomplete"
	DurationNotApplicable = "N/A"
)

// AttendanceRecord is one reconciled clock-in event.
//
// LateMinutes and OvertimeMinutes are estimates: the employee's window totals spread
// evenly over records, not per-event measurements. MinutesEstimated is always true.
type AttendanceRecord struct {
	ID               string   `json:"id"`
	EmployeeID       string   `json:"employee_id,omitempty"`
	EmployeeName     string   `json:"employee_name"`
	RegionName       string   `json:"region_name,omitempty"`
	AreaName         string   `json:"area_name,omitempty"`
	Designation      string   `json:"designation,omitempty"`
	Date             string   `json:"date"`
	Status           Status   `json:"status"`
	TimeIn           string   `json:"time_in"`
	TimeOut          *string  `json:"time_out"`
	WorkDuration     string   `json:"work_duration"`
	WorkMinutes      *int     `json:"work_minutes,omitempty"`
	IsIncomplete     bool     `json:"is_incomplete"`
	LateMinutes      int      `json:"late_minutes"`
	OvertimeMinutes  int      `json:"overtime_minutes"`
	MinutesEstimated bool     `json:"minutes_estimated"`
	Warnings         []string `json:"warnings,omitempty"`
}

type WarningKind string

const (
	WarningUnparsableClockIn  WarningKind = "unparsable_clock_in"
	WarningUnparsableClockOut WarningKind = "unparsable_clock_out"
	WarningClockOutBeforeIn   WarningKind = "clock_out_before_clock_in"
	WarningOrphanClockOut     WarningKind = "orphan_clock_out"
)

// DataQualityWarning describes one anomaly met while reconciling. It never aborts a run.
type DataQualityWarning struct {
	EmployeeName string      `json:"employee_name"`
	PairIndex    int         `json:"pair_index"`
	Kind         WarningKind `json:"kind"`
	Value        string      `json:"value,omitempty"`
}

func (w DataQualityWarning) String() string {
	if w.Value == "" {
		return string(w.Kind)
	}
	return string(w.Kind) + ": " + w.Value
}

// ReconcileResult is the output of one reconciliation run.
type ReconcileResult struct {
	Records  []AttendanceRecord   `json:"records"`
	Warnings []DataQualityWarning `json:"warnings"`
}
