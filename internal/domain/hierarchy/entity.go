package hierarchy

// Option is one selectable entry of a filter list.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Level identifies one dependent option list.
type Level string

const (
	LevelRegion    Level = "region"
	LevelArea      Level = "area"
	LevelTerritory Level = "territory"
	LevelRFFPoint  Level = "rff-point"
)

// LevelStatus is the per-level fetch state machine: empty -> loading -> populated | error.
type LevelStatus string

const (
	StatusEmpty     LevelStatus = "empty"
	StatusLoading   LevelStatus = "loading"
	StatusPopulated LevelStatus = "populated"
	StatusError     LevelStatus = "error"
)

// LevelState is an immutable snapshot of one dependent list.
type LevelState struct {
	Status   LevelStatus `json:"status"`
	ParentID string      `json:"parent_id,omitempty"`
	Options  []Option    `json:"options"`
	Error    string      `json:"error,omitempty"`
}

// Contains reports whether id is one of the loaded options.
func (s LevelState) Contains(id string) bool {
	for _, o := range s.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
