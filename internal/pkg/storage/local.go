package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type LocalStorage struct {
	basePath string
	baseURL  string // e.g., "http://localhost:8080/files"
}

func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath is the directory files are stored under.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// resolve maps a storage path to a file inside basePath.
func (s *LocalStorage) resolve(path string) (string, string, error) {
	cleanPath := filepath.Clean(filepath.FromSlash(strings.TrimLeft(path, "/")))
	fullPath := filepath.Join(s.basePath, cleanPath)

	rel, err := filepath.Rel(s.basePath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return filepath.ToSlash(cleanPath), fullPath, nil
}

func (s *LocalStorage) Upload(ctx context.Context, file io.Reader, path string, contentType string) (Object, error) {
	cleanPath, fullPath, err := s.resolve(path)
	if err != nil {
		return Object{}, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Object{}, fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial artifact
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Object{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return Object{}, fmt.Errorf("failed to store file: %w", err)
	}

	return Object{Path: cleanPath, Size: size, ModTime: time.Now()}, nil
}

func (s *LocalStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	_, fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	_, fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) GetURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	cleanPath, _, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	// Local files are served statically, expiry does not apply
	return fmt.Sprintf("%s/%s", s.baseURL, cleanPath), nil
}

func (s *LocalStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	_, root, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	objects := []Object{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return fs.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return objects, nil
}
