package hierarchy

import (
	"context"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
)

// OptionSource supplies the filter option lists. Each child list is keyed only by its
// immediate parent id.
type OptionSource interface {
	ListRegions(ctx context.Context, ep attendance.Endpoint) ([]Option, error)
	ListAreas(ctx context.Context, ep attendance.Endpoint, regionID string) ([]Option, error)
	ListTerritories(ctx context.Context, ep attendance.Endpoint, areaID string) ([]Option, error)
	ListRFFPoints(ctx context.Context, ep attendance.Endpoint, territoryID string) ([]Option, error)
	ListDesignations(ctx context.Context, ep attendance.Endpoint) ([]Option, error)
}
