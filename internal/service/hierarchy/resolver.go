package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"golang.org/x/sync/errgroup"
)

// chain lists the geographic levels root first. The option list shown for chain[i+1]
// is keyed by the id selected at chain[i].
var chain = []hierarchy.Level{
	hierarchy.LevelRegion,
	hierarchy.LevelArea,
	hierarchy.LevelTerritory,
	hierarchy.LevelRFFPoint,
}

type slot struct {
	state      hierarchy.LevelState
	generation uint64
}

// Resolver keeps one session's Region -> Area -> Territory -> RFF Point selection and
// the option lists that depend on it. Fetches run outside the lock; a result is
// committed only if its slot has not been invalidated in the meantime.
type Resolver struct {
	source   hierarchy.OptionSource
	onChange func(hierarchy.FiltersResponse)

	mu           sync.Mutex
	selection    attendance.FilterSelection
	lists        map[hierarchy.Level]*slot
	designations slot
}

func NewResolver(source hierarchy.OptionSource, onChange func(hierarchy.FiltersResponse)) *Resolver {
	r := &Resolver{
		source:       source,
		onChange:     onChange,
		lists:        make(map[hierarchy.Level]*slot, len(chain)),
		designations: slot{state: emptyState()},
	}
	for _, level := range chain {
		r.lists[level] = &slot{state: emptyState()}
	}
	return r
}

// EnsureInitialized loads the region and designation lists concurrently unless they
// are already populated. A failed list is retried on the next call.
func (r *Resolver) EnsureInitialized(ctx context.Context, ep attendance.Endpoint) (hierarchy.FiltersResponse, error) {
	r.mu.Lock()
	regions := r.lists[hierarchy.LevelRegion]
	var regionGen, designationGen uint64
	loadRegions := needsLoad(regions.state)
	if loadRegions {
		regionGen = r.beginLocked(regions, "")
	}
	loadDesignations := needsLoad(r.designations.state)
	if loadDesignations {
		designationGen = r.beginLocked(&r.designations, "")
	}
	r.mu.Unlock()

	if !loadRegions && !loadDesignations {
		return r.Snapshot(), nil
	}
	r.publish()

	var g errgroup.Group
	if loadRegions {
		g.Go(func() error {
			options, err := r.source.ListRegions(ctx, ep)
			r.commit(regions, regionGen, options, err)
			if err != nil {
				return fmt.Errorf("failed to load regions: %w", err)
			}
			return nil
		})
	}
	if loadDesignations {
		g.Go(func() error {
			options, err := r.source.ListDesignations(ctx, ep)
			r.commit(&r.designations, designationGen, options, err)
			if err != nil {
				return fmt.Errorf("failed to load designations: %w", err)
			}
			return nil
		})
	}
	err := g.Wait()

	snapshot := r.Snapshot()
	r.emit(snapshot)
	return snapshot, err
}

// Select sets level to id ("" means All), clears every descendant id and list, and
// fetches the immediate child list. If another selection invalidates that child list
// before the fetch returns, the result is dropped and ErrSupersededFetch is returned
// with the current snapshot.
func (r *Resolver) Select(ctx context.Context, ep attendance.Endpoint, level hierarchy.Level, id string) (hierarchy.FiltersResponse, error) {
	idx := levelIndex(level)
	if idx < 0 {
		return hierarchy.FiltersResponse{}, hierarchy.ErrInvalidLevel
	}

	r.mu.Lock()
	setSelection(&r.selection, level, id)
	for _, descendant := range chain[idx+1:] {
		setSelection(&r.selection, descendant, "")
		s := r.lists[descendant]
		s.generation++
		s.state = emptyState()
	}

	var (
		child *slot
		gen   uint64
	)
	if idx+1 < len(chain) && id != "" {
		child = r.lists[chain[idx+1]]
		gen = r.beginLocked(child, id)
	}
	r.mu.Unlock()
	r.publish()

	if child == nil {
		return r.Snapshot(), nil
	}

	childLevel := chain[idx+1]
	options, err := r.fetchChildren(ctx, ep, childLevel, id)
	if !r.commit(child, gen, options, err) {
		slog.Debug("Discarding superseded filter options", "level", childLevel, "parent_id", id)
		return r.Snapshot(), hierarchy.ErrSupersededFetch
	}
	if err != nil {
		slog.Warn("Failed to load filter options", "level", childLevel, "parent_id", id, "error", err)
	}

	snapshot := r.Snapshot()
	r.emit(snapshot)
	return snapshot, nil
}

func (r *Resolver) fetchChildren(ctx context.Context, ep attendance.Endpoint, level hierarchy.Level, parentID string) ([]hierarchy.Option, error) {
	switch level {
	case hierarchy.LevelArea:
		return r.source.ListAreas(ctx, ep, parentID)
	case hierarchy.LevelTerritory:
		return r.source.ListTerritories(ctx, ep, parentID)
	case hierarchy.LevelRFFPoint:
		return r.source.ListRFFPoints(ctx, ep, parentID)
	default:
		return nil, hierarchy.ErrInvalidLevel
	}
}

// Selection returns the current chain.
func (r *Resolver) Selection() attendance.FilterSelection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection
}

// Snapshot returns every list and the current selection.
func (r *Resolver) Snapshot() hierarchy.FiltersResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	return hierarchy.FiltersResponse{
		Selection:    r.selection,
		Regions:      r.lists[hierarchy.LevelRegion].state,
		Areas:        r.lists[hierarchy.LevelArea].state,
		Territories:  r.lists[hierarchy.LevelTerritory].state,
		RFFPoints:    r.lists[hierarchy.LevelRFFPoint].state,
		Designations: r.designations.state,
		Unresolved:   r.unresolvedLocked(r.selection),
	}
}

// Unresolved lists the levels of sel whose id cannot be confirmed against the loaded
// option lists: the list failed, is still loading, belongs to another parent, or does
// not contain the id.
func (r *Resolver) Unresolved(sel attendance.FilterSelection) []hierarchy.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unresolvedLocked(sel)
}

func (r *Resolver) unresolvedLocked(sel attendance.FilterSelection) []hierarchy.Level {
	var out []hierarchy.Level
	parentID := ""
	for _, level := range chain {
		id := selectionAt(sel, level)
		if id != "" {
			state := r.lists[level].state
			if state.Status != hierarchy.StatusPopulated || state.ParentID != parentID || !state.Contains(id) {
				out = append(out, level)
			}
		}
		parentID = id
	}
	return out
}

// beginLocked moves s to Loading for parentID and returns the generation a result
// must match to be committed.
func (r *Resolver) beginLocked(s *slot, parentID string) uint64 {
	s.generation++
	s.state = hierarchy.LevelState{
		Status:   hierarchy.StatusLoading,
		ParentID: parentID,
		Options:  []hierarchy.Option{},
	}
	return s.generation
}

// commit stores a fetch result if gen is still current and reports whether it did.
func (r *Resolver) commit(s *slot, gen uint64, options []hierarchy.Option, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.generation != gen {
		return false
	}

	next := hierarchy.LevelState{ParentID: s.state.ParentID}
	if err != nil {
		next.Status = hierarchy.StatusError
		next.Options = []hierarchy.Option{}
		next.Error = err.Error()
	} else {
		next.Status = hierarchy.StatusPopulated
		next.Options = options
		if next.Options == nil {
			next.Options = []hierarchy.Option{}
		}
	}
	s.state = next
	return true
}

func (r *Resolver) publish() {
	if r.onChange != nil {
		r.emit(r.Snapshot())
	}
}

func (r *Resolver) emit(snapshot hierarchy.FiltersResponse) {
	if r.onChange != nil {
		r.onChange(snapshot)
	}
}

func needsLoad(state hierarchy.LevelState) bool {
	return state.Status == hierarchy.StatusEmpty || state.Status == hierarchy.StatusError
}

func emptyState() hierarchy.LevelState {
	return hierarchy.LevelState{
		Status:  hierarchy.StatusEmpty,
		Options: []hierarchy.Option{},
	}
}

func levelIndex(level hierarchy.Level) int {
	for i, l := range chain {
		if l == level {
			return i
		}
	}
	return -1
}

func selectionAt(sel attendance.FilterSelection, level hierarchy.Level) string {
	switch level {
	case hierarchy.LevelRegion:
		return sel.RegionID
	case hierarchy.LevelArea:
		return sel.AreaID
	case hierarchy.LevelTerritory:
		return sel.TerritoryID
	case hierarchy.LevelRFFPoint:
		return sel.RFFPointID
	}
	return ""
}

func setSelection(sel *attendance.FilterSelection, level hierarchy.Level, id string) {
	switch level {
	case hierarchy.LevelRegion:
		sel.RegionID = id
	case hierarchy.LevelArea:
		sel.AreaID = id
	case hierarchy.LevelTerritory:
		sel.TerritoryID = id
	case hierarchy.LevelRFFPoint:
		sel.RFFPointID = id
	}
}
