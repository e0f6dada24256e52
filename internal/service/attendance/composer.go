package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/debounce"
)

// ExportSink stores an export artifact as it is streamed from the Source.
type ExportSink interface {
	SaveExport(ctx context.Context, owner string, filename string, contentType string, body io.Reader) (report.ExportResult, error)
}

type ComposerOptions struct {
	// SearchDebounce delays page-local re-filtering after SetSearch
	SearchDebounce time.Duration

	// OnChange receives every committed view, outside the composer lock
	OnChange func(report.View)

	// Unresolved reports which filter ids are absent from the current option lists
	Unresolved func(attendance.FilterSelection) []hierarchy.Level
}

// Composer owns one report session's query state. Every descriptor that needs a
// fetch gets a new version; a response is committed only while its version is still
// the latest.
type Composer struct {
	source attendance.Source
	engine attendance.Reconciler
	opts   ComposerOptions
	search *debounce.Debouncer
	now    func() time.Time

	mu          sync.Mutex
	version     uint64
	cancel      context.CancelFunc
	committed   attendance.QueryDescriptor
	viewVersion uint64
	hasPage     bool
	failed      bool
	fetchErr    error
	fetchedAt   time.Time
	employees   []attendance.RawEmployeeAttendance
	result      attendance.ReconcileResult
	summary     json.RawMessage
	searchText  string
	view        report.View
}

func NewComposer(source attendance.Source, engine attendance.Reconciler, opts ComposerOptions) *Composer {
	c := &Composer{
		source: source,
		engine: engine,
		opts:   opts,
		now:    time.Now,
		view: report.View{
			Status:   report.ViewIdle,
			Records:  []attendance.AttendanceRecord{},
			Warnings: []attendance.DataQualityWarning{},
			Stats:    report.AggregateStats{PageLocal: true},
		},
	}
	c.search = debounce.New(opts.SearchDebounce, c.refilter)
	return c
}

// Apply runs a descriptor. When only the search text differs from the committed
// descriptor the fetched page is re-filtered in place and no fetch is made.
func (c *Composer) Apply(ctx context.Context, ep attendance.Endpoint, q attendance.QueryDescriptor) (report.View, error) {
	if err := q.Validate(); err != nil {
		return report.View{}, err
	}

	c.mu.Lock()
	if c.hasPage && !c.failed && c.committed == q.FetchKey() {
		// A fetch for another descriptor is still running; this descriptor is newer,
		// so that response must not commit.
		if c.cancel != nil {
			c.version++
			c.viewVersion = c.version
			c.cancel()
			c.cancel = nil
		}
		c.searchText = q.SearchText
		c.rebuildLocked()
		view := c.view
		c.mu.Unlock()

		c.publish(view)
		return view, nil
	}
	c.mu.Unlock()

	return c.fetch(ctx, ep, q)
}

// Refresh re-fetches the committed descriptor, e.g. after a failure.
func (c *Composer) Refresh(ctx context.Context, ep attendance.Endpoint) (report.View, error) {
	c.mu.Lock()
	if !c.hasPage {
		c.mu.Unlock()
		return report.View{}, attendance.ErrNoQuery
	}
	q := c.committed
	q.SearchText = c.searchText
	c.mu.Unlock()

	return c.fetch(ctx, ep, q)
}

func (c *Composer) fetch(ctx context.Context, ep attendance.Endpoint, q attendance.QueryDescriptor) (report.View, error) {
	c.mu.Lock()
	c.version++
	version := c.version
	if c.cancel != nil {
		c.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	start := time.Now()
	raw, err := c.source.FetchReport(fetchCtx, ep, q.FetchKey())

	c.mu.Lock()
	if version != c.version {
		latest := c.version
		c.mu.Unlock()
		slog.Debug("Discarding superseded attendance response", "version", version, "latest", latest)
		return report.View{}, attendance.ErrStaleDescriptor
	}

	c.cancel = nil
	c.committed = q.FetchKey()
	c.searchText = q.SearchText
	c.viewVersion = version
	c.hasPage = true
	c.fetchedAt = c.now()

	if err != nil {
		c.failed = true
		c.fetchErr = err
		c.employees = nil
		c.result = attendance.ReconcileResult{}
		c.summary = nil
		c.rebuildLocked()
		view := c.view
		c.mu.Unlock()

		slog.Warn("Attendance fetch failed", "version", version, "error", err, "duration", time.Since(start))
		c.publish(view)
		return view, fmt.Errorf("%w: %w", attendance.ErrSourceFailed, err)
	}

	c.failed = false
	c.fetchErr = nil
	c.employees = raw.Data
	c.result = c.engine.Reconcile(raw.Data)
	c.summary = raw.Summary
	c.rebuildLocked()
	view := c.view
	c.mu.Unlock()

	slog.Debug("Attendance page committed",
		"version", version,
		"employees", len(raw.Data),
		"records", len(view.Records),
		"warnings", len(view.Warnings),
		"duration", time.Since(start),
	)
	c.publish(view)
	return view, nil
}

// SetSearch schedules a debounced re-filter of the fetched page.
func (c *Composer) SetSearch(text string) (report.SearchAccepted, error) {
	c.mu.Lock()
	if !c.hasPage {
		c.mu.Unlock()
		return report.SearchAccepted{}, attendance.ErrNoQuery
	}
	c.searchText = text
	version := c.viewVersion
	c.mu.Unlock()

	c.search.Trigger()
	return report.SearchAccepted{Version: version, Text: text}, nil
}

// FlushSearch applies a pending search immediately.
func (c *Composer) FlushSearch() bool {
	return c.search.Flush()
}

func (c *Composer) refilter() {
	c.mu.Lock()
	if !c.hasPage {
		c.mu.Unlock()
		return
	}
	c.rebuildLocked()
	view := c.view
	c.mu.Unlock()

	c.publish(view)
}

// View returns the last committed view.
func (c *Composer) View() report.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Export routes the descriptor to the Source's spreadsheet rendering and streams the
// artifact into sink. The artifact is never reconciled.
func (c *Composer) Export(ctx context.Context, ep attendance.Endpoint, owner string, q attendance.QueryDescriptor, sink ExportSink) (report.ExportResult, error) {
	if err := q.Validate(); err != nil {
		return report.ExportResult{}, err
	}

	file, err := c.source.ExportReport(ctx, ep, q.FetchKey())
	if err != nil {
		return report.ExportResult{}, fmt.Errorf("%w: %w", attendance.ErrSourceFailed, err)
	}
	defer file.Body.Close()

	result, err := sink.SaveExport(ctx, owner, file.Filename, file.ContentType, file.Body)
	if err != nil {
		return report.ExportResult{}, fmt.Errorf("failed to save export: %w", err)
	}

	return result, nil
}

// Close cancels any in-flight fetch and pending search.
func (c *Composer) Close() {
	c.search.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Composer) rebuildLocked() {
	employees := filterEmployees(c.employees, c.searchText)
	records := filterRecords(c.result.Records, c.searchText)

	status := report.ViewOK
	switch {
	case c.failed:
		status = report.ViewFailed
	case len(employees) == 0:
		status = report.ViewEmpty
	}

	descriptor := c.committed
	descriptor.SearchText = c.searchText

	warnings := c.result.Warnings
	if warnings == nil {
		warnings = []attendance.DataQualityWarning{}
	}

	view := report.View{
		Version:    c.viewVersion,
		Status:     status,
		Descriptor: descriptor,
		Records:    records,
		Warnings:   warnings,
		Stats:      CalculateStats(employees, records),
		Summary:    c.summary,
		FetchedAt:  c.fetchedAt.Format(time.RFC3339),
	}
	if c.fetchErr != nil {
		view.Error = c.fetchErr.Error()
	}
	if c.opts.Unresolved != nil {
		view.Unresolved = c.opts.Unresolved(descriptor.FilterSelection)
	}

	c.view = view
}

func (c *Composer) publish(view report.View) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(view)
	}
}

// matchesSearch is a case-insensitive substring match on name, region and area.
func matchesSearch(needle, name, region, area string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), needle) ||
		strings.Contains(strings.ToLower(region), needle) ||
		strings.Contains(strings.ToLower(area), needle)
}

func filterRecords(records []attendance.AttendanceRecord, search string) []attendance.AttendanceRecord {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]attendance.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if matchesSearch(needle, rec.EmployeeName, rec.RegionName, rec.AreaName) {
			out = append(out, rec)
		}
	}
	return out
}

func filterEmployees(employees []attendance.RawEmployeeAttendance, search string) []attendance.RawEmployeeAttendance {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]attendance.RawEmployeeAttendance, 0, len(employees))
	for _, emp := range employees {
		if matchesSearch(needle, emp.EmployeeName, emp.RegionName, emp.AreaName) {
			out = append(out, emp)
		}
	}
	return out
}
