package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/snapsync/internal/domain"
)

// Source is a read-only store of named byte streams addressed by relative path.
// The reference snapshot is only ever accessed through this interface.
type Source interface {
	// Read opens a file for reading
	// Caller is responsible for closing the reader
	// Returns domain.ErrNotFound if file doesn't exist
	// Returns domain.ErrNotFile if path is a directory
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns metadata for a single path
	// Returns domain.ErrNotFound if path doesn't exist
	Stat(ctx context.Context, path string) (domain.FileInfo, error)
}

// Adapter defines the interface for writable storage backends
// All implementations must handle path normalization internally
// and return domain-level errors for consistent error handling
type Adapter interface {
	Source

	// Write creates or overwrites a file
	// Parent directories are created automatically; a directory occupying
	// path is replaced by the file
	Write(ctx context.Context, path string, r io.Reader) error

	// Delete removes a file or empty directory
	// Returns domain.ErrNotFound if path doesn't exist
	Delete(ctx context.Context, path string) error

	// DeleteRecursive removes path and everything below it
	// An empty path clears the whole root; a missing path is not an error
	DeleteRecursive(ctx context.Context, path string) error

	// Close releases any resources held by the adapter
	Close() error
}
