package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ning0612/snapsync/internal/domain"
)

// tempSuffix marks in-flight writes; a crash can leave one behind next to its target
const tempSuffix = ".snapsync.tmp"

// Adapter implements the adapter.Adapter interface for local filesystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
// root must be an existing directory
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{root: absRoot}, nil
}

// NewWithCreate creates the root directory if needed and returns an adapter for it
func NewWithCreate(root string) (*Adapter, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, mapError(err)
	}
	return New(root)
}

// resolvePath safely resolves a relative path to absolute path within root
// Returns error if path attempts to escape root directory
func (a *Adapter) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return a.root, nil
	}

	relPath = filepath.Clean(filepath.FromSlash(relPath))

	if filepath.IsAbs(relPath) {
		return "", domain.ErrPermissionDenied
	}

	fullPath := filepath.Join(a.root, relPath)

	// filepath.Rel handles root="/data" vs fullPath="/data2"
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil {
		return "", domain.ErrPermissionDenied
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return file, nil
}

// Write creates or overwrites a file
func (a *Adapter) Write(ctx context.Context, path string, r io.Reader) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}
	if fullPath == a.root {
		return domain.ErrNotFile
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return mapError(err)
	}

	// Write to temp file first so readers never observe partial content
	tempPath := fullPath + tempSuffix
	file, err := os.Create(tempPath)
	if err != nil {
		return mapError(err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	// rename cannot replace a directory
	if info, err := os.Lstat(fullPath); err == nil && info.IsDir() {
		if err := os.RemoveAll(fullPath); err != nil {
			os.Remove(tempPath)
			return mapError(err)
		}
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return mapError(err)
	}

	return nil
}

// Delete removes a file or empty directory
func (a *Adapter) Delete(ctx context.Context, path string) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}
	if fullPath == a.root {
		return domain.ErrPermissionDenied
	}

	return mapError(os.Remove(fullPath))
}

// DeleteRecursive removes path and all of its contents.
// An empty path empties the root but keeps the root directory and its mode.
func (a *Adapter) DeleteRecursive(ctx context.Context, path string) error {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return err
	}

	if fullPath != a.root {
		return mapError(os.RemoveAll(fullPath))
	}

	entries, err := os.ReadDir(a.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return mapError(err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(a.root, entry.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", entry.Name(), mapError(err))
		}
	}
	return nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, path string) (domain.FileInfo, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return domain.FileInfo{}, mapError(err)
	}

	return fileInfoFromOS(path, info), nil
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func fileInfoFromOS(path string, info os.FileInfo) domain.FileInfo {
	fi := domain.FileInfo{
		Path:  filepath.ToSlash(path),
		IsDir: info.IsDir(),
	}
	if !fi.IsDir {
		fi.Size = info.Size()
	}
	return fi
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if os.IsNotExist(err) {
		return domain.ErrNotFound
	}
	if os.IsPermission(err) {
		return domain.ErrPermissionDenied
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && strings.Contains(pathErr.Err.Error(), "not a directory") {
		return domain.ErrNotDirectory
	}

	return err
}
