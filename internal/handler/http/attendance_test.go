package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/source"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/service/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type fakeReportService struct {
	mu sync.Mutex

	err        error
	view       report.View
	filters    hierarchy.FiltersResponse
	lastQuery  attendance.QueryDescriptor
	lastSelect hierarchy.SelectRequest
	lastSearch report.SearchRequest
	file       report.RenderedFile
	events     chan sse.Event
	subscriber string
}

func (f *fakeReportService) Filters(ctx context.Context) (hierarchy.FiltersResponse, error) {
	return f.filters, f.err
}

func (f *fakeReportService) SelectFilter(ctx context.Context, req hierarchy.SelectRequest) (hierarchy.FiltersResponse, error) {
	f.mu.Lock()
	f.lastSelect = req
	f.mu.Unlock()
	if err := req.Validate(); err != nil {
		return hierarchy.FiltersResponse{}, err
	}
	return f.filters, f.err
}

func (f *fakeReportService) ApplyQuery(ctx context.Context, q attendance.QueryDescriptor) (report.View, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	if err := q.Validate(); err != nil {
		return report.View{}, err
	}
	return f.view, f.err
}

func (f *fakeReportService) Refresh(ctx context.Context) (report.View, error) {
	return f.view, f.err
}

func (f *fakeReportService) Search(ctx context.Context, req report.SearchRequest) (report.SearchAccepted, error) {
	f.mu.Lock()
	f.lastSearch = req
	f.mu.Unlock()
	return report.SearchAccepted{Version: f.view.Version, Text: req.Text}, f.err
}

func (f *fakeReportService) CurrentView(ctx context.Context) (report.View, error) {
	return f.view, f.err
}

func (f *fakeReportService) Export(ctx context.Context, q attendance.QueryDescriptor) (report.ExportResult, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	return report.ExportResult{Filename: "attendance.xlsx", Path: "exports/u-1/attendance.xlsx"}, f.err
}

func (f *fakeReportService) RenderWorkbook(ctx context.Context) (report.RenderedFile, error) {
	return f.file, f.err
}

func (f *fakeReportService) RenderSummaryPDF(ctx context.Context) (report.RenderedFile, error) {
	return f.file, f.err
}

func (f *fakeReportService) Subscribe(ctx context.Context, userID string) (<-chan sse.Event, func()) {
	f.mu.Lock()
	f.subscriber = userID
	f.mu.Unlock()
	return f.events, func() {}
}

func (f *fakeReportService) SweepIdle(ctx context.Context) (int, error) {
	return 0, nil
}

type testEnv struct {
	router  http.Handler
	service *fakeReportService
	files   file.FileService
	jwt     jwt.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := &fakeReportService{events: make(chan sse.Event, 4)}
	jwtService := jwt.NewJWTService(testSecret)
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	files := file.NewFileService(store)

	router := NewRouter(jwtService, NewAttendanceHandler(svc, jwtService), NewFileHandler(files), RouterOptions{
		AppName:        "test",
		Env:            "test",
		AllowedOrigins: []string{"*"},
		FilesURL:       "http://localhost:8080/files",
	})
	return &testEnv{router: router, service: svc, files: files, jwt: jwtService}
}

func (e *testEnv) accessToken(t *testing.T) string {
	t.Helper()
	return e.tokenFor(t, "u-1")
}

func (e *testEnv) tokenFor(t *testing.T, userID string) string {
	t.Helper()
	_, token, err := e.jwt.JWTAuth().Encode(map[string]interface{}{
		"user_id": userID,
		"type":    jwt.TokenTypeAccess,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, "u-1", method, path, body)
}

func (e *testEnv) doAs(t *testing.T, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+e.tokenFor(t, userID))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page    int    `json:"page"`
		Version uint64 `json:"version"`
	} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRouter_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/records", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplyQuery(t *testing.T) {
	env := newTestEnv(t)
	env.service.view = report.View{Version: 3, Status: report.ViewOK}

	rec := env.do(t, http.MethodPut, "/api/v1/attendance/query",
		`{"start_date":"2024-03-01","end_date":"2024-03-31","area_id":"10","page":1,"page_size":20}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.True(t, body.Success)

	var view report.View
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Equal(t, uint64(3), view.Version)
	assert.Equal(t, "10", env.service.lastQuery.AreaID)
}

func TestApplyQuery_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/attendance/query", `{"start_date":"2024-03-31","end_date":"2024-03-01"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "end_date")
}

func TestApplyQuery_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPut, "/api/v1/attendance/query", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"stale descriptor", attendance.ErrStaleDescriptor, http.StatusConflict},
		{"superseded fetch", hierarchy.ErrSupersededFetch, http.StatusConflict},
		{"no query", attendance.ErrNoQuery, http.StatusNotFound},
		{"source failed", fmt.Errorf("%w: %w", attendance.ErrSourceFailed, &source.APIError{StatusCode: 500}), http.StatusBadGateway},
		{"source rejected token", fmt.Errorf("%w: %w", attendance.ErrSourceFailed, &source.APIError{StatusCode: 401}), http.StatusUnauthorized},
		{"generation failed", report.ErrReportGenerationFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.service.err = tt.err

			rec := env.do(t, http.MethodPost, "/api/v1/attendance/query/refresh", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, decode(t, rec).Success)
		})
	}
}

func TestSelectFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/attendance/filters/territory", `{"id":"100"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hierarchy.LevelTerritory, env.service.lastSelect.Level)
	assert.Equal(t, "100", env.service.lastSelect.ID)

	rec = env.do(t, http.MethodPut, "/api/v1/attendance/filters/country", `{"id":"1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSearch_Accepted(t *testing.T) {
	env := newTestEnv(t)
	env.service.view = report.View{Version: 7}

	rec := env.do(t, http.MethodPut, "/api/v1/attendance/query/search", `{"text":"ali"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted report.SearchAccepted
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &accepted))
	assert.Equal(t, "ali", accepted.Text)
	assert.Equal(t, uint64(7), accepted.Version)
}

func TestGetRecords_Meta(t *testing.T) {
	env := newTestEnv(t)
	env.service.view = report.View{
		Version:    5,
		Status:     report.ViewOK,
		Descriptor: attendance.QueryDescriptor{Page: 2, PageSize: 20},
	}

	rec := env.do(t, http.MethodGet, "/api/v1/attendance/records", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 2, body.Meta.Page)
	assert.Equal(t, uint64(5), body.Meta.Version)
}

func TestDownloadWorkbook(t *testing.T) {
	env := newTestEnv(t)
	env.service.file = report.RenderedFile{
		Filename:    "attendance_2024-03-01_2024-03-31_page1.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PK-content"),
	}

	rec := env.do(t, http.MethodGet, "/api/v1/attendance/records.xlsx", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, env.service.file.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance_2024-03-01_2024-03-31_page1.xlsx")
	assert.Equal(t, "PK-content", rec.Body.String())
}

func TestExport_Created(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/attendance/export", `{"start_date":"2024-03-01","end_date":"2024-03-31"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-03-01", env.service.lastQuery.StartDate)
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	// Access tokens cannot open the stream
	resp, err := http.Get(srv.URL + "/api/v1/attendance/events?token=" + env.accessToken(t))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tokenRec := env.do(t, http.MethodPost, "/api/v1/attendance/events/token", "")
	require.Equal(t, http.StatusOK, tokenRec.Code)
	var sseToken report.SSETokenResponse
	require.NoError(t, json.Unmarshal(decode(t, tokenRec).Data, &sseToken))
	require.NotEmpty(t, sseToken.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/attendance/events?token="+sseToken.Token, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	env.service.events <- sse.Event{ID: 1, Event: report.EventView, Data: report.ViewEvent{Version: 9}}

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 5 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	assert.Equal(t, "event: connected", lines[0])
	assert.Equal(t, "id: 1", lines[2])
	assert.Equal(t, "event: "+report.EventView, lines[3])
	assert.Contains(t, lines[4], `"version":9`)

	env.service.mu.Lock()
	assert.Equal(t, "u-1", env.service.subscriber)
	env.service.mu.Unlock()
}
