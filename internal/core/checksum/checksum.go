// Package checksum hashes file content for descriptor entries.
package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Algorithm is a content hashing algorithm
type Algorithm string

const (
	// MD5 is accepted for descriptors produced by older tooling
	MD5 Algorithm = "md5"
	// SHA256 is the default
	SHA256 Algorithm = "sha256"
)

// Options configures the calculator
type Options struct {
	// MaxSize rejects inputs larger than this many bytes (0 = unlimited)
	MaxSize int64
	// BufferSize is the streaming read size
	BufferSize int
}

// DefaultOptions hashes inputs of any size in 32KB chunks
func DefaultOptions() Options {
	return Options{
		BufferSize: 32 * 1024,
	}
}

// Calculator computes content hashes
type Calculator interface {
	// Calculate hashes everything read from reader, stopping early if ctx ends
	Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error)
}

// DefaultCalculator streams input through the hasher
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

// ParseAlgorithm parses a case-insensitive algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(s))
	if !IsSupported(algo) {
		return "", fmt.Errorf("unsupported algorithm: %s", s)
	}
	return algo, nil
}

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	switch algo {
	case MD5, SHA256:
		return true
	default:
		return false
	}
}

func newHasher(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

// Calculate implements the Calculator interface
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}

	src := reader
	if c.opts.MaxSize > 0 {
		src = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := src.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("input exceeds maximum size (%d bytes)", c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sum hashes an in-memory value
func Sum(algo Algorithm, data []byte) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
