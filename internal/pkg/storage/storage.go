package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrInvalidPath = errors.New("invalid file path")
	ErrNotFound    = errors.New("file not found")
)

// Object describes a stored file.
type Object struct {
	Path    string
	Size    int64
	ModTime time.Time
}

type FileStorage interface {
	// Upload writes file under path and returns what was stored
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (Object, error)

	// Download retrieves a file
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a file; deleting a missing file is not an error
	Delete(ctx context.Context, path string) error

	// GetURL returns a URL the presentation layer can fetch the file from
	GetURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// List returns the files under prefix, recursively
	List(ctx context.Context, prefix string) ([]Object, error)
}
