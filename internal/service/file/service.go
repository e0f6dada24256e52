package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/export"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/storage"
	"github.com/google/uuid"
)

const exportsDir = "exports"

type FileService interface {
	// SaveExport stores an export artifact for owner under a unique name
	SaveExport(ctx context.Context, owner string, filename string, contentType string, body io.Reader) (report.ExportResult, error)

	// PurgeExports deletes artifacts older than maxAge and returns how many were removed
	PurgeExports(ctx context.Context, maxAge time.Duration) (int, error)

	// OpenExport opens one of owner's stored artifacts by file name
	OpenExport(ctx context.Context, owner string, name string) (attendance.ExportFile, error)

	// DeleteExport removes one of owner's stored artifacts
	DeleteExport(ctx context.Context, owner string, name string) error
}

type fileServiceImpl struct {
	storage storage.FileStorage
	now     func() time.Time
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
		now:     time.Now,
	}
}

// SaveExport streams body into storage. Spreadsheets are opened afterwards only to
// report their sheets and row count; their content is not interpreted.
func (s *fileServiceImpl) SaveExport(ctx context.Context, owner string, filename string, contentType string, body io.Reader) (report.ExportResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".xlsx"
	}
	base := sanitize(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "attendance-report"
	}

	// Generate path: exports/{owner}/{base}-{uuid}{ext}
	newFilename := fmt.Sprintf("%s-%s%s", base, uuid.New().String(), ext)
	objectPath := path.Join(exportsDir, OwnerDir(owner), newFilename)

	var inspect *bytes.Buffer
	if ext == ".xlsx" {
		inspect = new(bytes.Buffer)
		body = io.TeeReader(body, inspect)
	}

	obj, err := s.storage.Upload(ctx, body, objectPath, contentType)
	if err != nil {
		return report.ExportResult{}, fmt.Errorf("failed to upload export: %w", err)
	}
	if obj.Size == 0 {
		_ = s.storage.Delete(ctx, obj.Path)
		return report.ExportResult{}, attendance.ErrExportEmpty
	}

	url, err := s.storage.GetURL(ctx, obj.Path, 0)
	if err != nil {
		return report.ExportResult{}, fmt.Errorf("failed to build export URL: %w", err)
	}

	result := report.ExportResult{
		Filename:    newFilename,
		Path:        obj.Path,
		URL:         url,
		ContentType: contentType,
		Size:        obj.Size,
		GeneratedAt: s.now().Format(time.RFC3339),
	}

	if inspect != nil {
		info, err := export.InspectWorkbook(bytes.NewReader(inspect.Bytes()))
		if err != nil {
			slog.Warn("Stored export is not a readable workbook", "path", obj.Path, "error", err)
		} else {
			result.Sheets = info.Sheets
			result.Rows = info.Rows
		}
	}

	return result, nil
}

func (s *fileServiceImpl) PurgeExports(ctx context.Context, maxAge time.Duration) (int, error) {
	objects, err := s.storage.List(ctx, exportsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list exports: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, obj := range objects {
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := s.storage.Delete(ctx, obj.Path); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", obj.Path, err)
		}
		removed++
	}
	return removed, nil
}

func (s *fileServiceImpl) OpenExport(ctx context.Context, owner string, name string) (attendance.ExportFile, error) {
	objectPath, err := exportPath(owner, name)
	if err != nil {
		return attendance.ExportFile{}, err
	}

	body, err := s.storage.Download(ctx, objectPath)
	if err != nil {
		return attendance.ExportFile{}, err
	}
	return attendance.ExportFile{
		Filename:    name,
		ContentType: contentTypeFor(name),
		Body:        body,
	}, nil
}

func (s *fileServiceImpl) DeleteExport(ctx context.Context, owner string, name string) error {
	objectPath, err := exportPath(owner, name)
	if err != nil {
		return err
	}
	return s.storage.Delete(ctx, objectPath)
}

// OwnerDir is the directory segment that holds owner's exports.
func OwnerDir(owner string) string {
	return sanitize(owner)
}

// exportPath resolves name inside owner's directory. Anything but a plain file name
// is reported as not found so other owners' files and directories stay invisible.
func exportPath(owner, name string) (string, error) {
	dir := OwnerDir(owner)
	if dir == "" || name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return path.Join(exportsDir, dir, name), nil
}

func contentTypeFor(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx":
		return export.ContentTypeXLSX
	case ".pdf":
		return export.ContentTypePDF
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// sanitize keeps letters, digits, dash and underscore.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
