package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBlobNotFound is returned when a stored path does not resolve to a file.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidPath rejects references escaping the base directory.
var ErrInvalidPath = errors.New("invalid blob path")

// LocalStorage keeps blobs on disk under a base directory. Returned paths are
// relative to that directory and are the only handle callers keep.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Put stores data under name and returns the opaque reference.
func (s *LocalStorage) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return filepath.ToSlash(name), nil
}

// Get reads the blob referenced by ref.
func (s *LocalStorage) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// SaveStream copies from reader into the target path.
func (s *LocalStorage) SaveStream(name string, r io.Reader) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write blob stream: %w", err)
	}
	return filepath.ToSlash(name), nil
}

// Open returns a read-only handle for the stored blob.
func (s *LocalStorage) Open(ref string) (*os.File, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return file, nil
}

// Stat reports metadata for a stored blob.
func (s *LocalStorage) Stat(ref string) (os.FileInfo, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	return info, nil
}

// Delete removes a stored blob if present.
func (s *LocalStorage) Delete(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files older than ttl and returns their references.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup blobs: %w", err)
	}
	return deleted, nil
}

// Path exposes the on-disk location for a reference.
func (s *LocalStorage) Path(ref string) string {
	path, err := s.resolve(ref)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(ref string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, ref)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
