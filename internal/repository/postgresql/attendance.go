package postgresql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/export"
)

const (
	clockLayoutSQL  = `YYYY-MM-DD HH24:MI:SS`
	exportBatchSize = 500
)

// attendanceSource serves raw attendance pages straight from the attendance tables.
// Endpoint credentials are ignored; access is governed by the pool's role.
type attendanceSource struct {
	db  *database.DB
	loc *time.Location
}

// NewAttendanceSource returns a Source reading from PostgreSQL. Clock events are
// rendered as wall time in loc.
func NewAttendanceSource(db *database.DB, loc *time.Location) attendance.Source {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceSource{db: db, loc: loc}
}

type reportSummary struct {
	TotalEmployees  int64 `json:"total_employees"`
	WorkingDays     int   `json:"working_days"`
	PresentDays     int64 `json:"present_days"`
	AbsentDays      int64 `json:"absent_days"`
	LateDays        int64 `json:"late_days"`
	LateMinutes     int64 `json:"late_minutes"`
	OvertimeMinutes int64 `json:"overtime_minutes"`
	Page            int   `json:"page"`
	PerPage         int   `json:"per_page"`
}

// FetchReport implements attendance.Source.
func (s *attendanceSource) FetchReport(ctx context.Context, ep attendance.Endpoint, q attendance.QueryDescriptor) (attendance.RawReport, error) {
	offset := (q.Page - 1) * q.PageSize
	if offset < 0 {
		offset = 0
	}

	rows, summary, err := s.queryPage(ctx, q, q.PageSize, offset)
	if err != nil {
		return attendance.RawReport{}, err
	}
	summary.Page = q.Page
	summary.PerPage = q.PageSize

	raw, err := json.Marshal(summary)
	if err != nil {
		return attendance.RawReport{}, fmt.Errorf("encode report summary: %w", err)
	}

	return attendance.RawReport{Data: rows, Summary: raw}, nil
}

// ExportReport implements attendance.Source. All pages are read in one snapshot so
// the workbook is consistent even while attendance is being written.
func (s *attendanceSource) ExportReport(ctx context.Context, ep attendance.Endpoint, q attendance.QueryDescriptor) (attendance.ExportFile, error) {
	var all []attendance.RawEmployeeAttendance

	err := WithTransaction(ctx, s.db, ReadSnapshot, func(txCtx context.Context) error {
		for offset := 0; ; offset += exportBatchSize {
			rows, _, err := s.queryPage(txCtx, q, exportBatchSize, offset)
			if err != nil {
				return err
			}
			all = append(all, rows...)
			if len(rows) < exportBatchSize {
				return nil
			}
		}
	})
	if err != nil {
		return attendance.ExportFile{}, err
	}

	if len(all) == 0 {
		return attendance.ExportFile{}, attendance.ErrExportEmpty
	}

	var buf bytes.Buffer
	if err := export.WriteRawWorkbook(&buf, q, all); err != nil {
		return attendance.ExportFile{}, fmt.Errorf("render attendance workbook: %w", err)
	}

	return attendance.ExportFile{
		Filename:    fmt.Sprintf("attendance-report_%s_%s.xlsx", q.StartDate, q.EndDate),
		ContentType: export.ContentTypeXLSX,
		Body:        io.NopCloser(&buf),
	}, nil
}

func (s *attendanceSource) queryPage(ctx context.Context, q attendance.QueryDescriptor, limit, offset int) ([]attendance.RawEmployeeAttendance, reportSummary, error) {
	sql, args, err := s.buildReportQuery(q, limit, offset)
	if err != nil {
		return nil, reportSummary{}, err
	}

	querier := GetQuerier(ctx, s.db)
	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, reportSummary{}, fmt.Errorf("%w: query attendance report: %v", attendance.ErrSourceFailed, err)
	}
	defer rows.Close()

	var (
		result  = make([]attendance.RawEmployeeAttendance, 0)
		summary reportSummary
	)
	for rows.Next() {
		var r attendance.RawEmployeeAttendance
		if err := rows.Scan(
			&r.EmployeeID,
			&r.EmployeeName,
			&r.RegionName,
			&r.AreaName,
			&r.Designation,
			&r.Enrolled,
			&r.ClockIn,
			&r.ClockOut,
			&r.WorkingDays,
			&r.PresentDays,
			&r.AbsentDays,
			&r.LateDays,
			&r.LateMinutes,
			&r.OvertimeMinutes,
			&summary.TotalEmployees,
			&summary.PresentDays,
			&summary.AbsentDays,
			&summary.LateDays,
			&summary.LateMinutes,
			&summary.OvertimeMinutes,
		); err != nil {
			return nil, reportSummary{}, fmt.Errorf("%w: scan attendance row: %v", attendance.ErrSourceFailed, err)
		}
		summary.WorkingDays = r.WorkingDays
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, reportSummary{}, fmt.Errorf("%w: read attendance rows: %v", attendance.ErrSourceFailed, err)
	}

	return result, summary, nil
}

// buildReportQuery renders the page query. Placeholders $1..$5 are fixed (window
// dates, window timestamps, zone name); employee filters follow from $6.
func (s *attendanceSource) buildReportQuery(q attendance.QueryDescriptor, limit, offset int) (string, []interface{}, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04:05", q.StartBoundary(), s.loc)
	if err != nil {
		return "", nil, fmt.Errorf("parse start boundary: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04:05", q.EndBoundary(), s.loc)
	if err != nil {
		return "", nil, fmt.Errorf("parse end boundary: %w", err)
	}

	// Calendar dates travel as UTC midnights; the date codec keeps only the Y-M-D part.
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	args := []interface{}{startDay, endDay, start, end, s.loc.String()}
	conditions := []string{"e.deleted_at IS NULL"}
	argIdx := 6

	add := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	add("e.id::text", q.EmployeeID)
	add("e.location_id::text", q.RegionID)
	add("e.area_id::text", q.AreaID)
	add("e.territory_id::text", q.TerritoryID)
	add("e.rff_point_id::text", q.RFFPointID)
	add("e.designation_id::text", q.DesignationID)

	statusCondition, err := statusFilter(q.Status)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`
		WITH window_days AS (
			SELECT COUNT(*)::int AS days
			FROM generate_series($1::date, $2::date, interval '1 day') AS d(day)
			WHERE NOT EXISTS (SELECT 1 FROM holidays h WHERE h.date = d.day::date)
		),
		filtered AS (
			SELECT
				e.id::text                    AS id,
				e.name                        AS name,
				COALESCE(l.name, '')          AS region_name,
				COALESCE(ar.name, '')         AS area_name,
				COALESCE(dg.name, '')         AS designation,
				(e.enrolled_at IS NOT NULL)   AS enrolled
			FROM employees e
			LEFT JOIN locations l ON l.id = e.location_id
			LEFT JOIN areas ar ON ar.id = e.area_id
			LEFT JOIN designations dg ON dg.id = e.designation_id
			WHERE %s
		),
		events AS (
			SELECT
				a.employee_id::text AS employee_id,
				a.clock_in,
				a.clock_out,
				COALESCE(a.late_minutes, 0)     AS late_minutes,
				COALESCE(a.overtime_minutes, 0) AS overtime_minutes,
				(a.clock_in AT TIME ZONE $5)::date AS day
			FROM attendances a
			WHERE a.clock_in BETWEEN $3 AND $4
		),
		per_employee AS (
			SELECT
				f.id, f.name, f.region_name, f.area_name, f.designation, f.enrolled,
				COALESCE(array_agg(to_char(ev.clock_in AT TIME ZONE $5, '%s') ORDER BY ev.clock_in)
					FILTER (WHERE ev.clock_in IS NOT NULL), '{}')::text[] AS clock_in,
				COALESCE(array_agg(COALESCE(to_char(ev.clock_out AT TIME ZONE $5, '%s'), '') ORDER BY ev.clock_in)
					FILTER (WHERE ev.clock_in IS NOT NULL), '{}')::text[] AS clock_out,
				COUNT(DISTINCT ev.day)::int                                   AS present_days,
				(COUNT(DISTINCT ev.day) FILTER (WHERE ev.late_minutes > 0))::int AS late_days,
				COALESCE(SUM(ev.late_minutes), 0)::int                        AS late_minutes,
				COALESCE(SUM(ev.overtime_minutes), 0)::int                    AS overtime_minutes,
				COALESCE(BOOL_OR(ev.clock_in IS NOT NULL AND ev.clock_out IS NULL), false) AS has_incomplete
			FROM filtered f
			LEFT JOIN events ev ON ev.employee_id = f.id
			GROUP BY f.id, f.name, f.region_name, f.area_name, f.designation, f.enrolled
		)
		SELECT
			pe.id, pe.name, pe.region_name, pe.area_name, pe.designation, pe.enrolled,
			pe.clock_in, pe.clock_out,
			wd.days,
			pe.present_days,
			GREATEST(wd.days - pe.present_days, 0) AS absent_days,
			pe.late_days,
			pe.late_minutes,
			pe.overtime_minutes,
			COUNT(*) OVER ()                                           AS total_employees,
			SUM(pe.present_days) OVER ()                               AS total_present,
			SUM(GREATEST(wd.days - pe.present_days, 0)) OVER ()        AS total_absent,
			SUM(pe.late_days) OVER ()                                  AS total_late,
			SUM(pe.late_minutes) OVER ()                               AS total_late_minutes,
			SUM(pe.overtime_minutes) OVER ()                           AS total_overtime_minutes
		FROM per_employee pe
		CROSS JOIN window_days wd
		WHERE %s
		ORDER BY pe.name, pe.id
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), clockLayoutSQL, clockLayoutSQL, statusCondition, argIdx, argIdx+1)

	args = append(args, limit, offset)
	return sql, args, nil
}

var errUnknownStatus = errors.New("unknown attendance status filter")

func statusFilter(status string) (string, error) {
	switch strings.ToLower(status) {
	case "":
		return "TRUE", nil
	case "present":
		return "pe.present_days > 0", nil
	case "late":
		return "pe.late_days > 0", nil
	case "absent":
		return "wd.days - pe.present_days > 0", nil
	case "incomplete":
		return "pe.has_incomplete", nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownStatus, status)
	}
}
