package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/source"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var apiErr *source.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		Unauthorized(w, "Attendance source rejected the credentials")
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, report.ErrMissingPrincipal):
		Unauthorized(w, err.Error())
	case errors.Is(err, jwt.ErrInvalidTokenType):
		Unauthorized(w, "Invalid token type")

	// Query composer errors
	case errors.Is(err, attendance.ErrStaleDescriptor):
		Conflict(w, "Query was superseded by a newer one")
	case errors.Is(err, attendance.ErrNoQuery):
		NotFound(w, "No attendance query has been applied")
	case errors.Is(err, attendance.ErrExportEmpty):
		BadGateway(w, "Attendance source returned an empty export")
	case errors.Is(err, attendance.ErrSourceFailed), errors.Is(err, source.ErrMissingBaseURL):
		BadGateway(w, "Attendance source is unavailable")

	// Filter resolver errors
	case errors.Is(err, hierarchy.ErrInvalidLevel):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, hierarchy.ErrSupersededFetch):
		Conflict(w, "Filter selection was superseded by a newer one")

	// Report rendering errors
	case errors.Is(err, report.ErrReportGenerationFailed):
		InternalServerError(w, "Failed to generate report")
	case errors.Is(err, storage.ErrNotFound):
		NotFound(w, "File not found")
	case errors.Is(err, storage.ErrInvalidPath):
		BadRequest(w, "Invalid file path", nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
