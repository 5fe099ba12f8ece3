// Package billyfs adapts a go-billy filesystem to the storage adapter
// interfaces. It backs the reference snapshot: an OS directory shipped with
// the application in production, an in-memory tree in tests.
package billyfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/Ning0612/snapsync/internal/domain"
)

// Adapter implements adapter.Adapter on top of a billy.Filesystem
type Adapter struct {
	fs billy.Filesystem
}

// New wraps an existing billy filesystem
func New(fsys billy.Filesystem) *Adapter {
	return &Adapter{fs: fsys}
}

// NewOS returns an adapter rooted at dir on the host filesystem.
// dir must exist and be a directory.
func NewOS(dir string) (*Adapter, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}
	return New(osfs.New(dir, osfs.WithBoundOS())), nil
}

// NewInMemory returns an adapter over an empty in-memory filesystem
func NewInMemory() *Adapter {
	return New(memfs.New())
}

// Raw returns the underlying filesystem
//
//nolint:ireturn // exposing the billy filesystem is the point
func (a *Adapter) Raw() billy.Filesystem {
	return a.fs
}

// clean converts a relative slash path into a billy path, rejecting escapes
func clean(p string) (string, error) {
	if p == "" || p == "." {
		return "", nil
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", domain.ErrPermissionDenied
	}
	c := path.Clean(p)
	if c == ".." || strings.HasPrefix(c, "../") {
		return "", domain.ErrPermissionDenied
	}
	return c, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	name, err := clean(p)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(name)
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	f, err := a.fs.Open(name)
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, p string) (domain.FileInfo, error) {
	name, err := clean(p)
	if err != nil {
		return domain.FileInfo{}, err
	}
	if name == "" {
		name = "."
	}

	info, err := a.fs.Stat(name)
	if err != nil {
		return domain.FileInfo{}, mapError(err)
	}

	fi := domain.FileInfo{Path: p, IsDir: info.IsDir()}
	if !fi.IsDir {
		fi.Size = info.Size()
	}
	return fi, nil
}

// Write creates or overwrites a file
func (a *Adapter) Write(ctx context.Context, p string, r io.Reader) error {
	name, err := clean(p)
	if err != nil {
		return err
	}
	if name == "" {
		return domain.ErrNotFile
	}

	if dir := path.Dir(name); dir != "." {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return mapError(err)
		}
	}

	if info, err := a.fs.Stat(name); err == nil && info.IsDir() {
		if err := util.RemoveAll(a.fs, name); err != nil {
			return mapError(err)
		}
	}

	tmp, err := util.TempFile(a.fs, path.Dir(name), ".snapsync-")
	if err != nil {
		return mapError(err)
	}
	tmpName := tmp.Name()

	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = a.fs.Remove(tmpName)
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}

	if err := a.fs.Rename(tmpName, name); err != nil {
		_ = a.fs.Remove(tmpName)
		return mapError(err)
	}
	return nil
}

// Delete removes a file or empty directory
func (a *Adapter) Delete(ctx context.Context, p string) error {
	name, err := clean(p)
	if err != nil {
		return err
	}
	if name == "" {
		return domain.ErrPermissionDenied
	}
	return mapError(a.fs.Remove(name))
}

// DeleteRecursive removes path and everything under it.
// The root of a billy filesystem cannot be removed, so an empty path
// removes every child of the root instead.
func (a *Adapter) DeleteRecursive(ctx context.Context, p string) error {
	name, err := clean(p)
	if err != nil {
		return err
	}

	if name != "" {
		return mapError(util.RemoveAll(a.fs, name))
	}

	children, err := a.fs.ReadDir("/")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return mapError(err)
	}
	for _, child := range children {
		if err := util.RemoveAll(a.fs, child.Name()); err != nil {
			return fmt.Errorf("removing %s: %w", child.Name(), mapError(err))
		}
	}
	return nil
}

// Close releases any resources (no-op for billy filesystems)
func (a *Adapter) Close() error {
	return nil
}

// mapError converts filesystem errors to domain errors
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err), errors.Is(err, os.ErrNotExist):
		return domain.ErrNotFound
	case os.IsPermission(err):
		return domain.ErrPermissionDenied
	default:
		return err
	}
}
