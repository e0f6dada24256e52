package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

const keepaliveInterval = 30 * time.Second

// AttendanceHandler defines the attendance report handler interface
type AttendanceHandler interface {
	// Filters
	GetFilters(w http.ResponseWriter, r *http.Request)
	SelectFilter(w http.ResponseWriter, r *http.Request)

	// Query
	ApplyQuery(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)

	// View
	GetRecords(w http.ResponseWriter, r *http.Request)
	GetStats(w http.ResponseWriter, r *http.Request)

	// Exports
	Export(w http.ResponseWriter, r *http.Request)
	DownloadWorkbook(w http.ResponseWriter, r *http.Request)
	DownloadSummaryPDF(w http.ResponseWriter, r *http.Request)

	// SSE
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	reportService report.ReportService
	jwtService    jwt.Service
}

func NewAttendanceHandler(reportService report.ReportService, jwtService jwt.Service) AttendanceHandler {
	return &attendanceHandlerImpl{
		reportService: reportService,
		jwtService:    jwtService,
	}
}

// GetFilters handles GET /attendance/filters
func (h *attendanceHandlerImpl) GetFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.reportService.Filters(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, filters)
}

// SelectFilter handles PUT /attendance/filters/{level}
func (h *attendanceHandlerImpl) SelectFilter(w http.ResponseWriter, r *http.Request) {
	var req hierarchy.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", nil)
		return
	}
	req.Level = hierarchy.Level(chi.URLParam(r, "level"))

	filters, err := h.reportService.SelectFilter(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, filters)
}

// ApplyQuery handles PUT /attendance/query
func (h *attendanceHandlerImpl) ApplyQuery(w http.ResponseWriter, r *http.Request) {
	var q attendance.QueryDescriptor
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		response.BadRequest(w, "invalid request body", nil)
		return
	}

	view, err := h.reportService.ApplyQuery(r.Context(), q)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, view)
}

// Refresh handles POST /attendance/query/refresh
func (h *attendanceHandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.reportService.Refresh(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, view)
}

// Search handles PUT /attendance/query/search
func (h *attendanceHandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	var req report.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", nil)
		return
	}

	accepted, err := h.reportService.Search(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Search scheduled", accepted)
}

// GetRecords handles GET /attendance/records
func (h *attendanceHandlerImpl) GetRecords(w http.ResponseWriter, r *http.Request) {
	view, err := h.reportService.CurrentView(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, view, &response.Meta{
		Page:    view.Descriptor.Page,
		Limit:   view.Descriptor.PageSize,
		Version: view.Version,
	})
}

// GetStats handles GET /attendance/stats
func (h *attendanceHandlerImpl) GetStats(w http.ResponseWriter, r *http.Request) {
	view, err := h.reportService.CurrentView(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, view.Stats, &response.Meta{Version: view.Version})
}

// Export handles POST /attendance/export
func (h *attendanceHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	var q attendance.QueryDescriptor
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		response.BadRequest(w, "invalid request body", nil)
		return
	}

	result, err := h.reportService.Export(r.Context(), q)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Export saved", result)
}

// DownloadWorkbook handles GET /attendance/records.xlsx
func (h *attendanceHandlerImpl) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	file, err := h.reportService.RenderWorkbook(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}

// DownloadSummaryPDF handles GET /attendance/summary.pdf
func (h *attendanceHandlerImpl) DownloadSummaryPDF(w http.ResponseWriter, r *http.Request) {
	file, err := h.reportService.RenderSummaryPDF(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}

// GetSSEToken generates a short-lived token for SSE connections
func (h *attendanceHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	_, claims, _ := jwtauth.FromContext(r.Context())
	userID := jwt.UserIDFromClaims(claims)
	if userID == "" {
		response.HandleError(w, report.ErrMissingPrincipal)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(userID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, report.SSETokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream handles GET /attendance/events. Browsers cannot set headers on an
// EventSource, so the short-lived SSE token travels in the query string.
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	userID, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, report.ErrStreamNotSupported.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.reportService.Subscribe(r.Context(), userID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q}\n\n", userID)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Warn("Dropping unencodable SSE event", "event", event.Event, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
