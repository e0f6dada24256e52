package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Reconcile_LateAndIncomplete(t *testing.T) {
	engine := NewEngine(time.UTC)

	result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
		EmployeeName:    "A",
		ClockIn:         []string{"2024-01-01T09:10:00", "2024-01-02T09:00:00"},
		ClockOut:        []string{"2024-01-01T17:30:00"},
		LateDays:        1,
		LateMinutes:     10,
		PresentDays:     1,
		OvertimeMinutes: 30,
	}})

	require.Len(t, result.Records, 2)
	assert.Empty(t, result.Warnings)

	// Most recent first
	incomplete := result.Records[0]
	assert.Equal(t, "A-1", incomplete.ID)
	assert.Equal(t, "2024-01-02", incomplete.Date)
	assert.Equal(t, attendance.StatusIncomplete, incomplete.Status)
	assert.True(t, incomplete.IsIncomplete)
	assert.Nil(t, incomplete.TimeOut)
	assert.Equal(t, "Incomplete", incomplete.WorkDuration)
	assert.Equal(t, 0, incomplete.LateMinutes)
	assert.Equal(t, 30, incomplete.OvertimeMinutes)

	late := result.Records[1]
	assert.Equal(t, "A-0", late.ID)
	assert.Equal(t, "2024-01-01", late.Date)
	assert.Equal(t, attendance.StatusLate, late.Status)
	assert.False(t, late.IsIncomplete)
	assert.Equal(t, "09:10", late.TimeIn)
	require.NotNil(t, late.TimeOut)
	assert.Equal(t, "17:30", *late.TimeOut)
	assert.Equal(t, "8h 20m", late.WorkDuration)
	require.NotNil(t, late.WorkMinutes)
	assert.Equal(t, 500, *late.WorkMinutes)
	assert.Equal(t, 10, late.LateMinutes)
	assert.Equal(t, 30, late.OvertimeMinutes)
	assert.True(t, late.MinutesEstimated)
}

func TestEngine_Reconcile_OrphanClockOutDropped(t *testing.T) {
	engine := NewEngine(time.UTC)

	result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
		EmployeeName: "B",
		ClockIn:      []string{},
		ClockOut:     []string{"2024-01-01T17:00:00"},
	}})

	assert.Empty(t, result.Records)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, attendance.WarningOrphanClockOut, result.Warnings[0].Kind)
	assert.Equal(t, 0, result.Warnings[0].PairIndex)
}

func TestEngine_Reconcile_UnparsableClockInSkipsOnlyThatRecord(t *testing.T) {
	engine := NewEngine(time.UTC)

	result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
		EmployeeName: "C",
		ClockIn:      []string{"not-a-time", "2024-01-03T08:00:00"},
		ClockOut:     []string{"2024-01-02T17:00:00", "2024-01-03T16:00:00"},
	}})

	require.Len(t, result.Records, 1)
	assert.Equal(t, "C-1", result.Records[0].ID)
	assert.Equal(t, "8h 0m", result.Records[0].WorkDuration)
	assert.Equal(t, attendance.StatusPresent, result.Records[0].Status)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, attendance.WarningUnparsableClockIn, result.Warnings[0].Kind)
	assert.Equal(t, "not-a-time", result.Warnings[0].Value)
}

func TestEngine_Reconcile_ClockOutBeforeClockInIsReported(t *testing.T) {
	engine := NewEngine(time.UTC)

	result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
		EmployeeName: "D",
		ClockIn:      []string{"2024-01-01T17:00:00"},
		ClockOut:     []string{"2024-01-01T09:00:00"},
	}})

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "N/A", rec.WorkDuration)
	assert.Nil(t, rec.WorkMinutes)
	assert.False(t, rec.IsIncomplete)
	require.NotNil(t, rec.TimeOut)
	assert.Equal(t, "09:00", *rec.TimeOut)
	assert.Equal(t, []string{"clock_out_before_clock_in: 2024-01-01T09:00:00"}, rec.Warnings)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, attendance.WarningClockOutBeforeIn, result.Warnings[0].Kind)
}

func TestEngine_Reconcile_UnparsableClockOutIsIncomplete(t *testing.T) {
	engine := NewEngine(time.UTC)

	result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
		EmployeeName: "E",
		ClockIn:      []string{"2024-01-01T09:00:00"},
		ClockOut:     []string{"??"},
		LateDays:     1,
	}})

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.True(t, rec.IsIncomplete)
	assert.Nil(t, rec.TimeOut)
	assert.Equal(t, attendance.StatusIncomplete, rec.Status)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, attendance.WarningUnparsableClockOut, result.Warnings[0].Kind)
}

func TestEngine_Reconcile_RecordCountAndIncompleteness(t *testing.T) {
	engine := NewEngine(time.UTC)

	cases := []struct {
		name     string
		clockIn  []string
		clockOut []string
	}{
		{"all paired", []string{"2024-02-01T09:00:00", "2024-02-02T09:00:00"}, []string{"2024-02-01T17:00:00", "2024-02-02T17:00:00"}},
		{"one missing", []string{"2024-02-01T09:00:00", "2024-02-02T09:00:00", "2024-02-03T09:00:00"}, []string{"2024-02-01T17:00:00", "2024-02-02T17:00:00"}},
		{"none paired", []string{"2024-02-01T09:00:00", "2024-02-02T09:00:00"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
				EmployeeName: "P",
				ClockIn:      tc.clockIn,
				ClockOut:     tc.clockOut,
			}})

			require.Len(t, result.Records, len(tc.clockIn))

			incomplete := 0
			for _, rec := range result.Records {
				assert.Equal(t, rec.IsIncomplete, rec.TimeOut == nil)
				if rec.IsIncomplete {
					incomplete++
				}
			}
			assert.Equal(t, len(tc.clockIn)-len(tc.clockOut), incomplete)
		})
	}
}

func TestEngine_Reconcile_LateMinutesDistribution(t *testing.T) {
	engine := NewEngine(time.UTC)

	clockIn := []string{"2024-03-01T09:30:00", "2024-03-02T09:20:00", "2024-03-03T09:00:00", "2024-03-04T09:00:00"}
	clockOut := []string{"2024-03-01T17:00:00", "2024-03-02T17:00:00", "2024-03-03T17:00:00", "2024-03-04T17:00:00"}

	cases := []struct {
		name        string
		lateDays    int
		lateMinutes int
	}{
		{"divides evenly", 2, 40},
		{"rounds down", 3, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
				EmployeeName: "L",
				ClockIn:      clockIn,
				ClockOut:     clockOut,
				LateDays:     tc.lateDays,
				LateMinutes:  tc.lateMinutes,
				PresentDays:  4,
			}})

			sum, late := 0, 0
			for _, rec := range result.Records {
				if rec.Status == attendance.StatusLate {
					late++
					sum += rec.LateMinutes
				} else {
					assert.Equal(t, 0, rec.LateMinutes)
				}
			}
			assert.Equal(t, tc.lateDays, late)
			assert.LessOrEqual(t, tc.lateMinutes-sum, tc.lateDays)
			assert.GreaterOrEqual(t, tc.lateMinutes-sum, 0)
			if tc.lateMinutes%tc.lateDays == 0 {
				assert.Equal(t, tc.lateMinutes, sum)
			}
		})
	}
}

func TestEngine_Reconcile_DeterministicOrdering(t *testing.T) {
	engine := NewEngine(time.UTC)

	input := []attendance.RawEmployeeAttendance{
		{
			EmployeeName: "Zed",
			ClockIn:      []string{"2024-01-01T08:00:00", "2024-01-02T08:00:00"},
			ClockOut:     []string{"2024-01-01T16:00:00"},
		},
		{
			EmployeeName: "Amy",
			ClockIn:      []string{"2024-01-02T07:00:00", "2024-01-01T07:00:00"},
			ClockOut:     []string{"2024-01-02T15:00:00", "2024-01-01T15:00:00"},
		},
	}

	first := engine.Reconcile(input)
	second := engine.Reconcile(input)

	var ids []string
	for _, rec := range first.Records {
		ids = append(ids, rec.ID)
	}
	// Date descending; ties keep employee order then pair index
	assert.Equal(t, []string{"Zed-1", "Amy-0", "Zed-0", "Amy-1"}, ids)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestEngine_Reconcile_ZoneLessTimestampsUseConfiguredLocation(t *testing.T) {
	dhaka := time.FixedZone("BDT", 6*60*60)
	engine := NewEngine(dhaka)

	result := engine.Reconcile([]attendance.RawEmployeeAttendance{{
		EmployeeName: "T",
		ClockIn:      []string{"2024-01-01T23:30:00Z"},
		ClockOut:     []string{"2024-01-02 08:00:00"},
	}})

	require.Len(t, result.Records, 1)
	// Offset-bearing values keep their own offset for the date portion
	assert.Equal(t, "2024-01-01", result.Records[0].Date)
	assert.Equal(t, "2h 30m", result.Records[0].WorkDuration)
}

func TestEngine_Reconcile_EmptyInput(t *testing.T) {
	result := NewEngine(nil).Reconcile(nil)

	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
	assert.NotNil(t, result.Warnings)
}
