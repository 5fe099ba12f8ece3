// Package manifest produces descriptors from a directory tree. It is the
// producer side of the descriptor format and is not used during a sync.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/Ning0612/snapsync/internal/core/checksum"
	"github.com/Ning0612/snapsync/internal/domain"
)

// Options configures Build
type Options struct {
	// Algorithm hashes file content; defaults to SHA256
	Algorithm checksum.Algorithm

	// Exclude lists root-relative paths left out of the descriptor,
	// normally the descriptor file itself
	Exclude []string

	Calculator checksum.Calculator
}

// Build walks fsys and returns a descriptor with one entry per file (its
// content hash) and per directory (a blank marker). The whole hash is
// derived from the sorted entry list, so equal trees give equal hashes.
func Build(ctx context.Context, fsys billy.Filesystem, opts Options) (domain.Descriptor, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = checksum.SHA256
	}
	if !checksum.IsSupported(opts.Algorithm) {
		return domain.Descriptor{}, fmt.Errorf("unsupported algorithm: %s", opts.Algorithm)
	}
	if opts.Calculator == nil {
		opts.Calculator = checksum.NewDefaultCalculator()
	}

	b := &builder{
		fs:      fsys,
		opts:    opts,
		exclude: make(map[string]bool, len(opts.Exclude)),
		entries: make(map[string]string),
	}
	for _, p := range opts.Exclude {
		b.exclude[path.Clean(strings.ReplaceAll(p, "\\", "/"))] = true
	}

	if err := b.walk(ctx, ""); err != nil {
		return domain.Descriptor{}, err
	}

	whole, err := WholeHash(opts.Algorithm, b.entries)
	if err != nil {
		return domain.Descriptor{}, err
	}
	return domain.NewDescriptor(whole, b.entries), nil
}

// BuildDir builds a descriptor for a directory on the host filesystem
func BuildDir(ctx context.Context, dir string, opts Options) (domain.Descriptor, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return domain.Descriptor{}, err
	}
	if !info.IsDir() {
		return domain.Descriptor{}, fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	}
	return Build(ctx, osfs.New(dir, osfs.WithBoundOS()), opts)
}

// WholeHash hashes "path\x00hash\n" for every entry in path order
func WholeHash(algo checksum.Algorithm, entries map[string]string) (string, error) {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString(p)
		sb.WriteByte(0)
		sb.WriteString(entries[p])
		sb.WriteByte('\n')
	}
	return checksum.Sum(algo, []byte(sb.String()))
}

type builder struct {
	fs      billy.Filesystem
	opts    Options
	exclude map[string]bool
	entries map[string]string
}

func (b *builder) walk(ctx context.Context, dir string) error {
	name := dir
	if name == "" {
		name = "/"
	}
	children, err := b.fs.ReadDir(name)
	if err != nil {
		return fmt.Errorf("reading directory %q: %w", dir, err)
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := path.Join(dir, child.Name())
		if b.exclude[rel] {
			continue
		}

		if child.IsDir() {
			b.entries[rel] = ""
			if err := b.walk(ctx, rel); err != nil {
				return err
			}
			continue
		}

		sum, err := b.hashFile(ctx, rel)
		if err != nil {
			return err
		}
		b.entries[rel] = sum
	}
	return nil
}

func (b *builder) hashFile(ctx context.Context, rel string) (string, error) {
	f, err := b.fs.Open(rel)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	sum, err := b.opts.Calculator.Calculate(ctx, f, b.opts.Algorithm)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", rel, err)
	}
	return sum, nil
}
