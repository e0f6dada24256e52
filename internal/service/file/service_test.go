package file

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/export"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*fileServiceImpl, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	return NewFileService(store).(*fileServiceImpl), store
}

func TestSaveExport_Workbook(t *testing.T) {
	svc, _ := newTestService(t)

	var buf bytes.Buffer
	require.NoError(t, export.WriteRawWorkbook(&buf, attendance.QueryDescriptor{StartDate: "2024-01-01", EndDate: "2024-01-31"}, []attendance.RawEmployeeAttendance{
		{EmployeeName: "Alice"},
	}))

	result, err := svc.SaveExport(context.Background(), "user-1", "Attendance Jan.xlsx", export.ContentTypeXLSX, &buf)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Path, "exports/user-1/Attendance_Jan-"))
	assert.True(t, strings.HasSuffix(result.Path, ".xlsx"))
	assert.Equal(t, "http://localhost:8080/files/"+result.Path, result.URL)
	assert.Equal(t, []string{"Attendance"}, result.Sheets)
	assert.Equal(t, 4, result.Rows)
	assert.NotZero(t, result.Size)
}

func TestSaveExport_EmptyBody(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.SaveExport(context.Background(), "user-1", "empty.xlsx", export.ContentTypeXLSX, strings.NewReader(""))
	assert.ErrorIs(t, err, attendance.ErrExportEmpty)

	objects, err := store.List(context.Background(), "exports")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestSaveExport_UnreadableWorkbookIsStillStored(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.SaveExport(context.Background(), "../evil", "report.xlsx", export.ContentTypeXLSX, strings.NewReader("not a zip"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Path, "exports/evil/report-"))
	assert.Nil(t, result.Sheets)
}

func TestPurgeExports(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveExport(ctx, "u1", "a.csv", "text/csv", strings.NewReader("a"))
	require.NoError(t, err)

	removed, err := svc.PurgeExports(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = svc.PurgeExports(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	objects, err := store.List(ctx, "exports")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Attendance_Jan_2024", sanitize("Attendance Jan 2024"))
	assert.Equal(t, "evil", sanitize("../evil"))
	assert.Equal(t, "", sanitize("///"))
}

func TestOpenExport_OwnFile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveExport(ctx, "user 1", "report.xlsx", export.ContentTypeXLSX, strings.NewReader("not a zip"))
	require.NoError(t, err)

	file, err := svc.OpenExport(ctx, "user 1", saved.Filename)
	require.NoError(t, err)
	defer file.Body.Close()

	body, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Equal(t, "not a zip", string(body))
	assert.Equal(t, saved.Filename, file.Filename)
	assert.Equal(t, export.ContentTypeXLSX, file.ContentType)
}

func TestOpenExport_StaysInsideOwnerDirectory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveExport(ctx, "u-2", "report.pdf", export.ContentTypePDF, strings.NewReader("%PDF"))
	require.NoError(t, err)

	cases := []string{
		saved.Filename,
		"",
		".",
		"..",
		"../u-2/" + saved.Filename,
		`..\u-2\` + saved.Filename,
	}
	for _, name := range cases {
		_, err := svc.OpenExport(ctx, "u-1", name)
		assert.ErrorIs(t, err, storage.ErrNotFound, "name %q", name)
	}

	_, err = svc.OpenExport(ctx, "///", saved.Filename)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteExport(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	saved, err := svc.SaveExport(ctx, "u-1", "a.csv", "text/csv", strings.NewReader("a"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExport(ctx, "u-2", saved.Filename))
	objects, err := store.List(ctx, "exports")
	require.NoError(t, err)
	assert.Len(t, objects, 1)

	require.NoError(t, svc.DeleteExport(ctx, "u-1", saved.Filename))
	objects, err = store.List(ctx, "exports")
	require.NoError(t, err)
	assert.Empty(t, objects)

	assert.ErrorIs(t, svc.DeleteExport(ctx, "u-1", "../u-1"), storage.ErrNotFound)
}
