package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/testutil"
)

func TestNew_MissingRoot(t *testing.T) {
	dir := t.TempDir()

	_, err := New(filepath.Join(dir, "missing"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNew_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateTestFile(t, dir, "file", []byte("x"))

	_, err := New(path)
	if !errors.Is(err, domain.ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory, got %v", err)
	}
}

func TestNewWithCreate(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "a", "b")

	a, err := NewWithCreate(root)
	if err != nil {
		t.Fatalf("NewWithCreate failed: %v", err)
	}
	if info, err := os.Stat(a.Root()); err != nil || !info.IsDir() {
		t.Errorf("Expected root directory to exist: %v", err)
	}
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := a.Write(ctx, "nested/dir/file.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := a.Read(ctx, "nested/dir/file.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer r.Close()

	data, _ := io.ReadAll(r)
	if string(data) != "hello" {
		t.Errorf("Expected 'hello', got %q", data)
	}

	if _, err := os.Stat(filepath.Join(a.Root(), "nested", "dir", "file.txt"+tempSuffix)); !os.IsNotExist(err) {
		t.Error("temp file left behind after write")
	}
}

func TestWrite_ReplacesDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	a, _ := New(root)

	if err := os.MkdirAll(filepath.Join(root, "p", "child"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := a.Write(ctx, "p", strings.NewReader("now a file")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := a.Stat(ctx, "p")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsFile() {
		t.Error("Expected p to be a file after write")
	}
}

func TestRead_Directory(t *testing.T) {
	root := t.TempDir()
	a, _ := New(root)
	os.Mkdir(filepath.Join(root, "d"), 0755)

	_, err := a.Read(context.Background(), "d")
	if !errors.Is(err, domain.ErrNotFile) {
		t.Errorf("Expected ErrNotFile, got %v", err)
	}
}

func TestResolvePath_RejectsEscape(t *testing.T) {
	a, _ := New(t.TempDir())

	for _, p := range []string{"../outside", "a/../../outside", "/etc/passwd"} {
		if _, err := a.Stat(context.Background(), p); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("path %q: expected ErrPermissionDenied, got %v", p, err)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	a, _ := New(root)
	testutil.CreateTestFile(t, root, "f.txt", []byte("x"))

	if err := a.Delete(ctx, "f.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := a.Delete(ctx, "f.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := a.Delete(ctx, ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied deleting root, got %v", err)
	}
}

func TestDeleteRecursive(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	a, _ := New(root)
	testutil.CreateTestFile(t, root, "d/e/f.txt", []byte("x"))

	if err := a.DeleteRecursive(ctx, "d"); err != nil {
		t.Fatalf("DeleteRecursive failed: %v", err)
	}
	if _, err := a.Stat(ctx, "d"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected d to be gone, got %v", err)
	}

	// Missing paths are not an error
	if err := a.DeleteRecursive(ctx, "d"); err != nil {
		t.Errorf("DeleteRecursive on missing path failed: %v", err)
	}
}

func TestDeleteRecursive_RootKeepsDirectory(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "dest")
	a, err := NewWithCreate(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(root, 0o700); err != nil {
		t.Fatal(err)
	}
	testutil.CreateTestFile(t, root, "f.txt", []byte("x"))
	testutil.CreateTestFile(t, root, "nested/deep/g.txt", []byte("y"))

	if err := a.DeleteRecursive(ctx, ""); err != nil {
		t.Fatalf("DeleteRecursive failed: %v", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("root was removed: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o700 {
		t.Errorf("root mode = %v, want 0700", info.Mode().Perm())
	}
	if files := testutil.ListFiles(t, root); len(files) != 0 {
		t.Errorf("root not emptied: %v", files)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("root still has %d entries", len(entries))
	}

	if err := a.Write(ctx, "again.txt", strings.NewReader("y")); err != nil {
		t.Fatalf("Write after reset failed: %v", err)
	}
}
