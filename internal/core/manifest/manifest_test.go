package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/snapsync/internal/core/checksum"
	"github.com/Ning0612/snapsync/internal/core/diff"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/testutil"
)

func TestBuild_EntriesAndMarkers(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "a.txt", []byte("a"), 0o644))
	require.NoError(t, util.WriteFile(fs, "sub/deep/b.txt", []byte("b"), 0o644))
	require.NoError(t, fs.MkdirAll("empty", 0o755))
	require.NoError(t, util.WriteFile(fs, "descriptor.json", []byte("{}"), 0o644))

	d, err := Build(context.Background(), fs, Options{Exclude: []string{"descriptor.json"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "empty", "sub", "sub/deep", "sub/deep/b.txt"}, d.Paths())

	h, _ := d.Entry("sub/deep/b.txt")
	assert.Equal(t, testutil.HashOf("b"), h)
	for _, marker := range []string{"empty", "sub", "sub/deep"} {
		h, _ := d.Entry(marker)
		assert.True(t, domain.IsDirMarker(h), "%s should be a directory marker", marker)
	}
	assert.NotEmpty(t, d.WholeHash())
}

func TestBuild_WholeHashTracksContent(t *testing.T) {
	ctx := context.Background()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "f", []byte("1"), 0o644))

	first, err := Build(ctx, fs, Options{})
	require.NoError(t, err)
	again, err := Build(ctx, fs, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.WholeHash(), again.WholeHash())

	require.NoError(t, util.WriteFile(fs, "f", []byte("2"), 0o644))
	changed, err := Build(ctx, fs, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, first.WholeHash(), changed.WholeHash())

	changes := diff.Diff(first, changed)
	require.Len(t, changes, 1)
	assert.Equal(t, domain.ChangeModify, changes[0].Kind)
}

func TestBuild_MD5(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "hello", []byte("hello world"), 0o644))

	d, err := Build(context.Background(), fs, Options{Algorithm: checksum.MD5})
	require.NoError(t, err)

	h, _ := d.Entry("hello")
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", h)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(context.Background(), memfs.New(), Options{Algorithm: "sha1"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "f", []byte("x"), 0o644))
	_, err = Build(ctx, fs, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildDir(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateTestFile(t, dir, "x/y.txt", []byte("y"))

	d, err := BuildDir(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x/y.txt"}, d.Paths())

	_, err = BuildDir(context.Background(), filepath.Join(dir, "x", "y.txt"), Options{})
	assert.ErrorIs(t, err, domain.ErrNotDirectory)

	_, err = BuildDir(context.Background(), filepath.Join(dir, "missing"), Options{})
	assert.True(t, os.IsNotExist(err))
}

func TestWholeHash_OrderIndependent(t *testing.T) {
	a, err := WholeHash(checksum.SHA256, map[string]string{"a": "1", "b": ""})
	require.NoError(t, err)
	b, err := WholeHash(checksum.SHA256, map[string]string{"b": "", "a": "1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := WholeHash(checksum.SHA256, map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
