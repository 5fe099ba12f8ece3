package descriptor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Ning0612/snapsync/internal/adapter"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/logger"
)

// Load reads and decodes the descriptor stored under name
func Load(ctx context.Context, src adapter.Source, name string) (domain.Descriptor, error) {
	data, err := ReadRaw(ctx, src, name)
	if err != nil {
		return domain.Descriptor{}, err
	}
	return Decode(name, data)
}

// ReadRaw returns the undecoded descriptor bytes stored under name
func ReadRaw(ctx context.Context, src adapter.Source, name string) ([]byte, error) {
	info, err := src.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	if !info.IsFile() {
		return nil, domain.ErrNotFile
	}

	r, err := src.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// LoadReference loads the bundled reference descriptor.
// The reference is authoritative: every failure is returned wrapped in
// domain.ErrReferenceParse.
func LoadReference(ctx context.Context, src adapter.Source, name string) (domain.Descriptor, []byte, error) {
	data, err := ReadRaw(ctx, src, name)
	if err != nil {
		return domain.Descriptor{}, nil, fmt.Errorf("%w: reading %s: %v", domain.ErrReferenceParse, name, err)
	}

	d, err := Decode(name, data)
	if err != nil {
		return domain.Descriptor{}, nil, fmt.Errorf("%w: %s: %w", domain.ErrReferenceParse, name, err)
	}
	return d, data, nil
}

// LoadDestination loads the local state descriptor.
// Local state is best effort: a missing, unreadable or corrupt descriptor
// yields the empty descriptor and a full install.
func LoadDestination(ctx context.Context, store adapter.Source, name string) domain.Descriptor {
	d, err := Load(ctx, store, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Get().Debug("no local descriptor, treating destination as empty", "descriptor", name)
		} else {
			logger.Get().Warn("local descriptor unusable, treating destination as empty",
				"descriptor", name,
				"error", err,
			)
		}
		return domain.EmptyDescriptor()
	}
	return d
}
