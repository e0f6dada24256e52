package attendance

import (
	"io"
	"strings"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/validator"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	FormatJSON  = "json"
	FormatExcel = "excel"
)

var validStatuses = []string{"present", "late", "absent", "incomplete"}

// ========================================
// QUERY DESCRIPTOR
// ========================================

// FilterSelection is the Region -> Area -> Territory -> RFF Point chain. An empty id
// means "All".
type FilterSelection struct {
	RegionID    string `json:"region_id,omitempty"`
	AreaID      string `json:"area_id,omitempty"`
	TerritoryID string `json:"territory_id,omitempty"`
	RFFPointID  string `json:"rff_point_id,omitempty"`
}

// QueryDescriptor fully determines one fetch from the Source. Two equal descriptors
// must yield equal pages.
type QueryDescriptor struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD

	FilterSelection

	EmployeeID    string `json:"user_id,omitempty"`
	DesignationID string `json:"designation_id,omitempty"`
	Status        string `json:"status,omitempty"`
	SearchText    string `json:"search_text,omitempty"`

	// Pagination
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (q *QueryDescriptor) Validate() error {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(q.StartDate)
	if validator.IsEmpty(q.StartDate) {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date is required",
		})
	} else if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(q.EndDate)
	if validator.IsEmpty(q.EndDate) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date is required",
		})
	} else if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && start.After(end) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if q.Status != "" {
		q.Status = strings.ToLower(q.Status)
		if !validator.IsInSlice(q.Status, validStatuses) {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: present, late, absent, incomplete",
			})
		}
	}

	if q.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if q.Page == 0 {
		q.Page = 1
	}

	if q.PageSize < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page_size",
			Message: "page_size must be a positive number",
		})
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		errs = append(errs, validator.ValidationError{
			Field:   "page_size",
			Message: "page_size must not exceed 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FetchKey is the descriptor with the page-local search text removed. Equal keys mean
// the already-fetched page can be reused.
func (q QueryDescriptor) FetchKey() QueryDescriptor {
	q.SearchText = ""
	return q
}

// StartBoundary is the inclusive lower bound sent to the Source.
func (q QueryDescriptor) StartBoundary() string {
	return q.StartDate + " 00:00:00"
}

// EndBoundary is the inclusive upper bound sent to the Source.
func (q QueryDescriptor) EndBoundary() string {
	return q.EndDate + " 23:59:59"
}

// Endpoint carries the caller's credentials and the Source base address explicitly
// into every fetch.
type Endpoint struct {
	BaseURL string
	Token   string
}

// ExportFile is a binary artifact produced by the Source. Body must be closed by the caller.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}
