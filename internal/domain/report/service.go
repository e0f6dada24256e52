package report

import (
	"context"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/sse"
)

const (
	EventView    = "report.view"
	EventFilters = "filters.updated"
)

// ReportService drives one attendance report session per authenticated user.
type ReportService interface {
	// Filters returns the current selection and every option list
	Filters(ctx context.Context) (hierarchy.FiltersResponse, error)

	// SelectFilter changes one level of the geographic chain
	SelectFilter(ctx context.Context, req hierarchy.SelectRequest) (hierarchy.FiltersResponse, error)

	// ApplyQuery fetches and reconciles the page for a descriptor
	ApplyQuery(ctx context.Context, q attendance.QueryDescriptor) (View, error)

	// Refresh re-fetches the committed descriptor
	Refresh(ctx context.Context) (View, error)

	// Search re-filters the fetched page without a fetch
	Search(ctx context.Context, req SearchRequest) (SearchAccepted, error)

	// CurrentView returns the last committed view
	CurrentView(ctx context.Context) (View, error)

	// Export saves the upstream spreadsheet for a descriptor
	Export(ctx context.Context, q attendance.QueryDescriptor) (ExportResult, error)

	// RenderWorkbook and RenderSummaryPDF render the current view locally
	RenderWorkbook(ctx context.Context) (RenderedFile, error)
	RenderSummaryPDF(ctx context.Context) (RenderedFile, error)

	// Subscribe streams view and filter updates for a user's session
	Subscribe(ctx context.Context, userID string) (<-chan sse.Event, func())

	// SweepIdle closes sessions unused for longer than the idle TTL
	SweepIdle(ctx context.Context) (int, error)
}
