package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Ning0612/snapsync/internal/adapter"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/logger"
	"github.com/Ning0612/snapsync/internal/progress"
)

// Executor applies a sync plan to the destination and then records the
// reference descriptor as the new local state. Nothing is rolled back on
// failure; the descriptor is only written once every change succeeded.
type Executor struct {
	reference      adapter.Source
	destination    adapter.Adapter
	descriptorName string
	reporter       progress.Reporter
}

// NewExecutor creates an executor copying from reference into destination
func NewExecutor(reference adapter.Source, destination adapter.Adapter, descriptorName string, reporter progress.Reporter) *Executor {
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	return &Executor{
		reference:      reference,
		destination:    destination,
		descriptorName: descriptorName,
		reporter:       reporter,
	}
}

// Apply runs every change in plan order, then persists descriptorBytes.
// ctx is checked before each change and before the final write; a cancelled
// run leaves the previous descriptor in place.
func (e *Executor) Apply(ctx context.Context, plan *domain.SyncPlan, descriptorBytes []byte) error {
	e.reporter.SetTotal(len(plan.Changes))

	for _, change := range plan.Changes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.applyChange(ctx, change); err != nil {
			e.reporter.Error(err)
			return fmt.Errorf("change %s on %s: %w", change.Kind, change.Path, err)
		}
		e.reporter.Complete()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Written even for an empty plan so the local copy stays byte-identical
	if err := e.destination.Write(ctx, e.descriptorName, bytes.NewReader(descriptorBytes)); err != nil {
		return fmt.Errorf("persisting descriptor %s: %w", e.descriptorName, err)
	}

	return nil
}

func (e *Executor) applyChange(ctx context.Context, change domain.Change) error {
	switch change.Kind {
	case domain.ChangeRemove:
		e.reporter.Start(change, 0)
		info, found, err := e.statDestination(ctx, change.Path)
		if err != nil || !found {
			return err
		}
		if info.IsDir {
			logger.Get().Debug("skipping remove, path is a directory", "path", change.Path)
			return nil
		}
		return e.destination.Delete(ctx, change.Path)

	case domain.ChangeRemoveDir:
		e.reporter.Start(change, 0)
		info, found, err := e.statDestination(ctx, change.Path)
		if err != nil || !found {
			return err
		}
		if !info.IsDir {
			logger.Get().Debug("skipping directory remove, path is a file", "path", change.Path)
			return nil
		}
		return e.destination.DeleteRecursive(ctx, change.Path)

	case domain.ChangeCreate, domain.ChangeModify:
		return e.copyFromReference(ctx, change)

	default:
		return fmt.Errorf("unknown change kind: %d", change.Kind)
	}
}

// statDestination reports found=false for a path that does not exist,
// including one whose parent is a regular file
func (e *Executor) statDestination(ctx context.Context, path string) (domain.FileInfo, bool, error) {
	info, err := e.destination.Stat(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotDirectory) {
			return domain.FileInfo{}, false, nil
		}
		return domain.FileInfo{}, false, err
	}
	return info, true, nil
}

func (e *Executor) copyFromReference(ctx context.Context, change domain.Change) error {
	var size int64
	if info, err := e.reference.Stat(ctx, change.Path); err == nil {
		size = info.Size
	}
	e.reporter.Start(change, size)

	r, err := e.reference.Read(ctx, change.Path)
	if err != nil {
		return fmt.Errorf("reading reference: %w", err)
	}
	defer r.Close()

	return e.destination.Write(ctx, change.Path, progress.NewProgressReader(r, e.reporter))
}
