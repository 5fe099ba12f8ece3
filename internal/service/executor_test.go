package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Ning0612/snapsync/internal/adapter/local"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/progress"
	"github.com/Ning0612/snapsync/internal/testutil"
)

func newTestExecutor(t *testing.T, reporter progress.Reporter) (*Executor, string, string) {
	t.Helper()
	refDir, destDir := t.TempDir(), t.TempDir()

	ref, err := local.New(refDir)
	if err != nil {
		t.Fatal(err)
	}
	dest, err := local.New(destDir)
	if err != nil {
		t.Fatal(err)
	}
	return NewExecutor(ref, dest, descName, reporter), refDir, destDir
}

func planOf(changes ...domain.Change) *domain.SyncPlan {
	return &domain.SyncPlan{Changes: changes}
}

func TestExecutor_RemoveSkipsDirectoriesAndMissing(t *testing.T) {
	e, _, destDir := newTestExecutor(t, nil)
	testutil.CreateTestFile(t, destDir, "dir/inner.txt", []byte("x"))
	testutil.CreateTestFile(t, destDir, "file.txt", []byte("x"))

	err := e.Apply(context.Background(), planOf(
		domain.Remove("dir", "h"),
		domain.Remove("missing.txt", "h"),
		domain.Remove("file.txt/below", "h"),
		domain.Remove("file.txt", "h"),
	), []byte("{}"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := testutil.ListFiles(t, destDir); len(got) != 2 || got[0] != descName || got[1] != "dir/inner.txt" {
		t.Errorf("destination files = %v", got)
	}
}

func TestExecutor_RemoveDirSkipsFilesAndMissing(t *testing.T) {
	e, _, destDir := newTestExecutor(t, nil)
	testutil.CreateTestFile(t, destDir, "tree/a/b.txt", []byte("x"))
	testutil.CreateTestFile(t, destDir, "plain", []byte("x"))

	err := e.Apply(context.Background(), planOf(
		domain.RemoveDir("plain"),
		domain.RemoveDir("gone"),
		domain.RemoveDir("tree"),
	), []byte("{}"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "tree")); !os.IsNotExist(err) {
		t.Errorf("tree should be removed recursively, stat err = %v", err)
	}
	if got := testutil.ReadTestFile(t, destDir, "plain"); got != "x" {
		t.Errorf("RemoveDir deleted a regular file")
	}
}

func TestExecutor_CreateReplacesDirectory(t *testing.T) {
	e, refDir, destDir := newTestExecutor(t, nil)
	testutil.CreateTestFile(t, refDir, "p", []byte("now a file"))
	testutil.CreateTestFile(t, destDir, "p/old.txt", []byte("old"))

	if err := e.Apply(context.Background(), planOf(domain.Modify("p", "", "h")), []byte("{}")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := testutil.ReadTestFile(t, destDir, "p"); got != "now a file" {
		t.Errorf("p = %q", got)
	}
}

func TestExecutor_ErrorNamesChange(t *testing.T) {
	e, _, destDir := newTestExecutor(t, nil)

	err := e.Apply(context.Background(), planOf(domain.Create("nested/absent.txt", "h")), []byte("{}"))
	if err == nil {
		t.Fatal("Apply() should fail for a missing reference file")
	}
	if !strings.HasPrefix(err.Error(), "change create on nested/absent.txt: ") {
		t.Errorf("error = %q", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error should wrap ErrNotFound: %v", err)
	}
	if files := testutil.ListFiles(t, destDir); len(files) != 0 {
		t.Errorf("descriptor written after failure: %v", files)
	}
}

func TestExecutor_EmptyPlanWritesDescriptor(t *testing.T) {
	e, _, destDir := newTestExecutor(t, nil)

	if err := e.Apply(context.Background(), planOf(), []byte("raw bytes")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := testutil.ReadTestFile(t, destDir, descName); got != "raw bytes" {
		t.Errorf("descriptor = %q, want the exact bytes", got)
	}
}

func TestExecutor_ReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var kinds []progress.UpdateType
	reporter := progress.NewCallbackReporter(func(u progress.Update) {
		mu.Lock()
		kinds = append(kinds, u.Type)
		mu.Unlock()
	})

	e, refDir, _ := newTestExecutor(t, reporter)
	testutil.CreateTestFile(t, refDir, "a.txt", []byte("abc"))

	err := e.Apply(context.Background(), planOf(
		domain.Remove("old", "h"),
		domain.Create("a.txt", "h"),
	), []byte("{}"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) < 4 || kinds[0] != progress.UpdateStart || kinds[len(kinds)-1] != progress.UpdateComplete {
		t.Errorf("unexpected update sequence: %v", kinds)
	}
	completes := 0
	for _, k := range kinds {
		if k == progress.UpdateComplete {
			completes++
		}
	}
	if completes != 2 {
		t.Errorf("got %d complete updates, want 2", completes)
	}
}
