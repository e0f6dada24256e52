package report

import (
	"encoding/json"
	"strings"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/validator"
)

// ========================================
// AGGREGATE STATISTICS
// ========================================

// AggregateStats are computed over the currently filtered page only. PageLocal is
// always true; they are not population-wide totals.
type AggregateStats struct {
	TotalEmployees    int     `json:"total_employees"`
	EnrolledEmployees int     `json:"enrolled_employees"`
	AverageAttendance float64 `json:"average_attendance"`
	LowAttendance     int     `json:"low_attendance"`
	PerfectAttendance int     `json:"perfect_attendance"`
	CompleteRecords   int     `json:"complete_records"`
	IncompleteRecords int     `json:"incomplete_records"`
	PageLocal         bool    `json:"page_local"`
}

// ========================================
// REPORT VIEW
// ========================================

type ViewStatus string

const (
	ViewIdle   ViewStatus = "idle"
	ViewOK     ViewStatus = "ok"
	ViewEmpty  ViewStatus = "empty"
	ViewFailed ViewStatus = "failed"
)

// View is the committed state of one session's report: the reconciled page after
// search filtering plus its statistics. Version increases with every descriptor that
// triggered a fetch.
type View struct {
	Version    uint64                          `json:"version"`
	Status     ViewStatus                      `json:"status"`
	Descriptor attendance.QueryDescriptor      `json:"descriptor"`
	Records    []attendance.AttendanceRecord   `json:"records"`
	Warnings   []attendance.DataQualityWarning `json:"warnings"`
	Stats      AggregateStats                  `json:"stats"`
	Summary    json.RawMessage                 `json:"summary,omitempty"`
	Unresolved []hierarchy.Level               `json:"unresolved_filters,omitempty"`
	FetchedAt  string                          `json:"fetched_at,omitempty"`
	Error      string                          `json:"error,omitempty"`
}

// ========================================
// SEARCH
// ========================================

type SearchRequest struct {
	Text string `json:"text"`
}

func (r *SearchRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Text = strings.TrimSpace(r.Text)
	if len(r.Text) > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "text",
			Message: "text must not exceed 100 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SearchAccepted struct {
	Version uint64 `json:"version"`
	Text    string `json:"text"`
}

// ========================================
// EXPORT
// ========================================

type ExportResult struct {
	Filename    string   `json:"filename"`
	Path        string   `json:"path"`
	URL         string   `json:"url"`
	ContentType string   `json:"content_type"`
	Size        int64    `json:"size"`
	Sheets      []string `json:"sheets,omitempty"`
	Rows        int      `json:"rows,omitempty"`
	GeneratedAt string   `json:"generated_at"`
}

// Principal identifies the session owner and carries the bearer token forwarded to
// the Source.
type Principal struct {
	UserID string
	Token  string
}

// RenderedFile is a document generated locally from the current view.
type RenderedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ========================================
// EVENTS
// ========================================

// ViewEvent is pushed to a session's stream whenever a view is committed. Clients
// compare Version with the one they hold and re-read /records when it is newer.
type ViewEvent struct {
	Version    uint64            `json:"version"`
	Status     ViewStatus        `json:"status"`
	Records    int               `json:"records"`
	Warnings   int               `json:"warnings"`
	Stats      AggregateStats    `json:"stats"`
	Unresolved []hierarchy.Level `json:"unresolved_filters,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func NewViewEvent(v View) ViewEvent {
	return ViewEvent{
		Version:    v.Version,
		Status:     v.Status,
		Records:    len(v.Records),
		Warnings:   len(v.Warnings),
		Stats:      v.Stats,
		Unresolved: v.Unresolved,
		Error:      v.Error,
	}
}

// SSETokenResponse represents the SSE token response
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
