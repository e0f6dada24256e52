package source

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"strconv"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
)

const (
	reportPath           = "attendance-report"
	defaultExportName    = "attendance-report.xlsx"
	defaultExportContent = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// reportParams builds the attendance-report query. Date bounds are inclusive and only
// non-empty filters are sent.
func reportParams(q attendance.QueryDescriptor, format string) url.Values {
	params := url.Values{}
	params.Set("start_date", q.StartBoundary())
	params.Set("end_date", q.EndBoundary())

	optional := []struct {
		key   string
		value string
	}{
		{"user_id", q.EmployeeID},
		{"location_id", q.RegionID},
		{"area_id", q.AreaID},
		{"territory_id", q.TerritoryID},
		{"rff_point_id", q.RFFPointID},
		{"designation_id", q.DesignationID},
		{"status", q.Status},
	}
	for _, p := range optional {
		if p.value != "" {
			params.Set(p.key, p.value)
		}
	}

	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("per_page", strconv.Itoa(q.PageSize))
	}
	params.Set("format", format)
	return params
}

// FetchReport implements attendance.Source.
func (c *Client) FetchReport(ctx context.Context, ep attendance.Endpoint, q attendance.QueryDescriptor) (attendance.RawReport, error) {
	var report attendance.RawReport
	if err := c.getJSON(ctx, ep, reportPath, reportParams(q, attendance.FormatJSON), &report); err != nil {
		return attendance.RawReport{}, err
	}
	if report.Data == nil {
		report.Data = []attendance.RawEmployeeAttendance{}
	}
	return report, nil
}

// ExportReport implements attendance.Source. The body is returned unread.
func (c *Client) ExportReport(ctx context.Context, ep attendance.Endpoint, q attendance.QueryDescriptor) (attendance.ExportFile, error) {
	req, err := c.newRequest(ctx, ep, reportPath, reportParams(q, attendance.FormatExcel))
	if err != nil {
		return attendance.ExportFile{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return attendance.ExportFile{}, err
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "application/json" {
		resp.Body.Close()
		return attendance.ExportFile{}, fmt.Errorf("export returned %s instead of a file: %w", mediaType, attendance.ErrExportEmpty)
	}
	if contentType == "" {
		contentType = defaultExportContent
	}

	return attendance.ExportFile{
		Filename:    filenameHint(resp.Header.Get("Content-Disposition")),
		ContentType: contentType,
		Body:        resp.Body,
	}, nil
}

// filenameHint reads the filename parameter of a Content-Disposition header.
func filenameHint(disposition string) string {
	if disposition == "" {
		return defaultExportName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return defaultExportName
	}
	return params["filename"]
}
