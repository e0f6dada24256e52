package hierarchy

import (
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/validator"
)

var selectableLevels = []string{
	string(LevelRegion),
	string(LevelArea),
	string(LevelTerritory),
	string(LevelRFFPoint),
}

// SelectRequest changes one level of the chain. An empty ID clears the level to "All".
type SelectRequest struct {
	Level Level  `json:"-"`
	ID    string `json:"id"`
}

func (r *SelectRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(string(r.Level), selectableLevels) {
		errs = append(errs, validator.ValidationError{
			Field:   "level",
			Message: "level must be one of: region, area, territory, rff-point",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FiltersResponse is everything the presentation layer needs to render the filter bar.
type FiltersResponse struct {
	Selection    attendance.FilterSelection `json:"selection"`
	Regions      LevelState                 `json:"regions"`
	Areas        LevelState                 `json:"areas"`
	Territories  LevelState                 `json:"territories"`
	RFFPoints    LevelState                 `json:"rff_points"`
	Designations LevelState                 `json:"designations"`
	Unresolved   []Level                    `json:"unresolved,omitempty"`
}
