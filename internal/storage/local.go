package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore implements Store using local disk. Suitable for development
// and single-node deployments; swap for S3Store in production.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a new LocalStore rooted at dir. If dir is empty,
// a subdirectory of os.TempDir() is used. The directory is created if it
// doesn't exist.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "adreel")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &LocalStore{dir: dir}, nil
}

// Dir returns the storage directory path.
func (s *LocalStore) Dir() string {
	return s.dir
}

// SaveVideo writes the video to disk and returns a file URL.
func (s *LocalStore) SaveVideo(ctx context.Context, key string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := filepath.Join(s.dir, key+".mp4")
	f, err := os.Create(path) // #nosec G304 - path is constructed internally
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write video file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close video file: %w", err)
	}

	return "file://" + path, nil
}

var _ Store = (*LocalStore)(nil)
