// Package storage persists finished videos so callers keep a stable
// reference after the operation registry evicts its in-memory buffers.
// It defines the Store interface (port) and implementations for local
// disk and S3.
package storage

import (
	"context"
	"io"
)

// Store defines the interface for persisting finished videos.
type Store interface {
	// SaveVideo persists the video bytes under the given key and
	// returns a stable URL for playback or download.
	SaveVideo(ctx context.Context, key string, data io.Reader) (url string, err error)
}
