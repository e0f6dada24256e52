package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/database"
)

type hierarchyRepository struct {
	db *database.DB
}

func NewHierarchyRepository(db *database.DB) hierarchy.OptionSource {
	return &hierarchyRepository{db: db}
}

// ListRegions implements hierarchy.OptionSource.
func (r *hierarchyRepository) ListRegions(ctx context.Context, ep attendance.Endpoint) ([]hierarchy.Option, error) {
	return r.listOptions(ctx, "locations", "", "")
}

// ListAreas implements hierarchy.OptionSource.
func (r *hierarchyRepository) ListAreas(ctx context.Context, ep attendance.Endpoint, regionID string) ([]hierarchy.Option, error) {
	return r.listOptions(ctx, "areas", "location_id", regionID)
}

// ListTerritories implements hierarchy.OptionSource.
func (r *hierarchyRepository) ListTerritories(ctx context.Context, ep attendance.Endpoint, areaID string) ([]hierarchy.Option, error) {
	return r.listOptions(ctx, "territories", "area_id", areaID)
}

// ListRFFPoints implements hierarchy.OptionSource.
func (r *hierarchyRepository) ListRFFPoints(ctx context.Context, ep attendance.Endpoint, territoryID string) ([]hierarchy.Option, error) {
	return r.listOptions(ctx, "rff_points", "territory_id", territoryID)
}

// ListDesignations implements hierarchy.OptionSource.
func (r *hierarchyRepository) ListDesignations(ctx context.Context, ep attendance.Endpoint) ([]hierarchy.Option, error) {
	return r.listOptions(ctx, "designations", "", "")
}

// listOptions reads id/name pairs from table. table and parentColumn are fixed
// identifiers chosen above, never caller input.
func (r *hierarchyRepository) listOptions(ctx context.Context, table, parentColumn, parentID string) ([]hierarchy.Option, error) {
	sql := fmt.Sprintf(`SELECT id::text, name FROM %s WHERE deleted_at IS NULL`, table)
	var args []interface{}
	if parentColumn != "" {
		sql += fmt.Sprintf(` AND %s::text = $1`, parentColumn)
		args = append(args, parentID)
	}
	sql += ` ORDER BY name, id`

	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", attendance.ErrSourceFailed, table, err)
	}
	defer rows.Close()

	options := make([]hierarchy.Option, 0)
	for rows.Next() {
		var o hierarchy.Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", attendance.ErrSourceFailed, table, err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", attendance.ErrSourceFailed, table, err)
	}

	return options, nil
}
