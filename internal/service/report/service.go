package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/export"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/sse"
	attendanceService "github.com/cmlabs-hris/campaign-attendance-go/internal/service/attendance"
	hierarchyService "github.com/cmlabs-hris/campaign-attendance-go/internal/service/hierarchy"
	"github.com/go-chi/jwtauth/v5"
)

type Options struct {
	SourceBaseURL  string
	SearchDebounce time.Duration
	IdleTTL        time.Duration
	Location       *time.Location
}

type session struct {
	owner    string
	composer *attendanceService.Composer
	resolver *hierarchyService.Resolver
	lastSeen atomic.Int64
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

type ReportServiceImpl struct {
	source  attendance.Source
	options hierarchy.OptionSource
	sink    attendanceService.ExportSink
	hub     *sse.Hub
	engine  *attendanceService.Engine
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewReportService(
	source attendance.Source,
	options hierarchy.OptionSource,
	sink attendanceService.ExportSink,
	hub *sse.Hub,
	opts Options,
) report.ReportService {
	return &ReportServiceImpl{
		source:   source,
		options:  options,
		sink:     sink,
		hub:      hub,
		engine:   attendanceService.NewEngine(opts.Location),
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// principalFromContext extracts the user_id claim and the raw token from the request context
func (s *ReportServiceImpl) principalFromContext(ctx context.Context) (report.Principal, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return report.Principal{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	userID := jwt.UserIDFromClaims(claims)
	if userID == "" {
		return report.Principal{}, report.ErrMissingPrincipal
	}

	return report.Principal{UserID: userID, Token: jwt.RawTokenFromContext(ctx)}, nil
}

func (s *ReportServiceImpl) endpoint(p report.Principal) attendance.Endpoint {
	return attendance.Endpoint{BaseURL: s.opts.SourceBaseURL, Token: p.Token}
}

// session returns the caller's session, creating it on first use.
func (s *ReportServiceImpl) session(ctx context.Context) (*session, report.Principal, error) {
	p, err := s.principalFromContext(ctx)
	if err != nil {
		return nil, report.Principal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[p.UserID]
	if !ok {
		sess = s.newSession(p.UserID)
		s.sessions[p.UserID] = sess
		slog.Info("Report session opened", "user_id", p.UserID)
	}
	sess.touch(s.now())
	return sess, p, nil
}

func (s *ReportServiceImpl) newSession(owner string) *session {
	sess := &session{owner: owner}
	sess.resolver = hierarchyService.NewResolver(s.options, func(resp hierarchy.FiltersResponse) {
		s.hub.Publish(owner, report.EventFilters, resp)
	})
	sess.composer = attendanceService.NewComposer(s.source, s.engine, attendanceService.ComposerOptions{
		SearchDebounce: s.opts.SearchDebounce,
		OnChange: func(v report.View) {
			s.hub.Publish(owner, report.EventView, report.NewViewEvent(v))
		},
		Unresolved: sess.resolver.Unresolved,
	})
	return sess
}

func (s *ReportServiceImpl) Filters(ctx context.Context) (hierarchy.FiltersResponse, error) {
	sess, p, err := s.session(ctx)
	if err != nil {
		return hierarchy.FiltersResponse{}, err
	}

	// Session state must not depend on the caller staying connected
	snapshot, err := sess.resolver.EnsureInitialized(context.WithoutCancel(ctx), s.endpoint(p))
	if err != nil {
		slog.Warn("Filter options unavailable", "user_id", p.UserID, "error", err)
	}
	return snapshot, nil
}

func (s *ReportServiceImpl) SelectFilter(ctx context.Context, req hierarchy.SelectRequest) (hierarchy.FiltersResponse, error) {
	if err := req.Validate(); err != nil {
		return hierarchy.FiltersResponse{}, err
	}

	sess, p, err := s.session(ctx)
	if err != nil {
		return hierarchy.FiltersResponse{}, err
	}

	return sess.resolver.Select(context.WithoutCancel(ctx), s.endpoint(p), req.Level, req.ID)
}

func (s *ReportServiceImpl) ApplyQuery(ctx context.Context, q attendance.QueryDescriptor) (report.View, error) {
	sess, p, err := s.session(ctx)
	if err != nil {
		return report.View{}, err
	}

	// A descriptor without geographic filters uses the session's selection
	if q.FilterSelection == (attendance.FilterSelection{}) {
		q.FilterSelection = sess.resolver.Selection()
	}

	return sess.composer.Apply(context.WithoutCancel(ctx), s.endpoint(p), q)
}

func (s *ReportServiceImpl) Refresh(ctx context.Context) (report.View, error) {
	sess, p, err := s.session(ctx)
	if err != nil {
		return report.View{}, err
	}
	return sess.composer.Refresh(context.WithoutCancel(ctx), s.endpoint(p))
}

func (s *ReportServiceImpl) Search(ctx context.Context, req report.SearchRequest) (report.SearchAccepted, error) {
	if err := req.Validate(); err != nil {
		return report.SearchAccepted{}, err
	}

	sess, _, err := s.session(ctx)
	if err != nil {
		return report.SearchAccepted{}, err
	}
	return sess.composer.SetSearch(req.Text)
}

func (s *ReportServiceImpl) CurrentView(ctx context.Context) (report.View, error) {
	sess, _, err := s.session(ctx)
	if err != nil {
		return report.View{}, err
	}
	return sess.composer.View(), nil
}

func (s *ReportServiceImpl) Export(ctx context.Context, q attendance.QueryDescriptor) (report.ExportResult, error) {
	sess, p, err := s.session(ctx)
	if err != nil {
		return report.ExportResult{}, err
	}

	if q.FilterSelection == (attendance.FilterSelection{}) {
		q.FilterSelection = sess.resolver.Selection()
	}

	result, err := sess.composer.Export(ctx, s.endpoint(p), p.UserID, q, s.sink)
	if err != nil {
		return report.ExportResult{}, err
	}

	slog.Info("Attendance export saved", "user_id", p.UserID, "path", result.Path, "size", result.Size)
	return result, nil
}

func (s *ReportServiceImpl) RenderWorkbook(ctx context.Context) (report.RenderedFile, error) {
	view, err := s.renderableView(ctx)
	if err != nil {
		return report.RenderedFile{}, err
	}

	var buf bytes.Buffer
	if err := export.WriteRecordsWorkbook(&buf, view); err != nil {
		return report.RenderedFile{}, fmt.Errorf("%w: %w", report.ErrReportGenerationFailed, err)
	}

	return report.RenderedFile{
		Filename:    renderedName(view, "xlsx"),
		ContentType: export.ContentTypeXLSX,
		Content:     buf.Bytes(),
	}, nil
}

func (s *ReportServiceImpl) RenderSummaryPDF(ctx context.Context) (report.RenderedFile, error) {
	view, err := s.renderableView(ctx)
	if err != nil {
		return report.RenderedFile{}, err
	}

	var buf bytes.Buffer
	if err := export.WriteSummaryPDF(&buf, view, s.now()); err != nil {
		return report.RenderedFile{}, fmt.Errorf("%w: %w", report.ErrReportGenerationFailed, err)
	}

	return report.RenderedFile{
		Filename:    renderedName(view, "pdf"),
		ContentType: export.ContentTypePDF,
		Content:     buf.Bytes(),
	}, nil
}

func (s *ReportServiceImpl) renderableView(ctx context.Context) (report.View, error) {
	view, err := s.CurrentView(ctx)
	if err != nil {
		return report.View{}, err
	}
	if view.Status == report.ViewIdle {
		return report.View{}, attendance.ErrNoQuery
	}
	return view, nil
}

func renderedName(view report.View, ext string) string {
	return fmt.Sprintf("attendance_%s_%s_page%d.%s",
		view.Descriptor.StartDate,
		view.Descriptor.EndDate,
		view.Descriptor.Page,
		ext,
	)
}

func (s *ReportServiceImpl) Subscribe(ctx context.Context, userID string) (<-chan sse.Event, func()) {
	s.mu.Lock()
	if sess, ok := s.sessions[userID]; ok {
		sess.touch(s.now())
	}
	s.mu.Unlock()

	return s.hub.Subscribe(userID)
}

// SweepIdle closes sessions that have not been used for IdleTTL and have no open
// event stream.
func (s *ReportServiceImpl) SweepIdle(ctx context.Context) (int, error) {
	if s.opts.IdleTTL <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.opts.IdleTTL).UnixNano()

	s.mu.Lock()
	var idle []*session
	for owner, sess := range s.sessions {
		if sess.lastSeen.Load() > cutoff || s.hub.SubscriberCount(owner) > 0 {
			continue
		}
		delete(s.sessions, owner)
		idle = append(idle, sess)
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.composer.Close()
		s.hub.Close(sess.owner)
		slog.Info("Report session closed", "user_id", sess.owner, "reason", "idle")
	}
	return len(idle), ctx.Err()
}
