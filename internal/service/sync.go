package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Ning0612/snapsync/internal/adapter"
	"github.com/Ning0612/snapsync/internal/core/descriptor"
	"github.com/Ning0612/snapsync/internal/core/planner"
	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/lock"
	"github.com/Ning0612/snapsync/internal/logger"
	"github.com/Ning0612/snapsync/internal/progress"
	"github.com/Ning0612/snapsync/internal/state"
)

// HistoryRecorder stores finished runs; *state.Manager implements it
type HistoryRecorder interface {
	SaveRun(ctx context.Context, run state.Run) error
}

// Options configures a SyncService; zero values select defaults
type Options struct {
	// DescriptorName is the descriptor file in both roots
	DescriptorName string

	// Guard serializes runs; share one guard between services on the same destination
	Guard *lock.Guard

	Planner  planner.Planner
	Reporter progress.Reporter
	History  HistoryRecorder
}

// Result describes a completed run
type Result struct {
	Plan     *domain.SyncPlan
	Duration time.Duration
}

// SyncService keeps a destination directory in line with a reference snapshot
type SyncService struct {
	reference      adapter.Source
	destination    adapter.Adapter
	descriptorName string
	guard          *lock.Guard
	planner        planner.Planner
	executor       *Executor
	history        HistoryRecorder
}

// NewSyncService creates a sync service over the given roots
func NewSyncService(reference adapter.Source, destination adapter.Adapter, opts Options) *SyncService {
	if opts.DescriptorName == "" {
		opts.DescriptorName = descriptor.DefaultName
	}
	if opts.Guard == nil {
		opts.Guard = lock.NewGuard()
	}
	if opts.Planner == nil {
		opts.Planner = planner.NewDefaultPlanner()
	}

	return &SyncService{
		reference:      reference,
		destination:    destination,
		descriptorName: opts.DescriptorName,
		guard:          opts.Guard,
		planner:        opts.Planner,
		executor:       NewExecutor(reference, destination, opts.DescriptorName, opts.Reporter),
		history:        opts.History,
	}
}

// Guard returns the guard serializing this service's runs
func (s *SyncService) Guard() *lock.Guard {
	return s.guard
}

// Sync brings the destination in line with the reference.
// Concurrent callers wait for the running sync, then diff against its result.
func (s *SyncService) Sync(ctx context.Context) (*Result, error) {
	return s.run(ctx, state.OperationSync)
}

// ResetAndSync empties the destination root and reinstalls the reference.
// The reference descriptor is validated first, so a broken reference never
// destroys the destination.
func (s *SyncService) ResetAndSync(ctx context.Context) (*Result, error) {
	return s.run(ctx, state.OperationReset)
}

// Plan computes the pending changes without touching the destination
func (s *SyncService) Plan(ctx context.Context) (*domain.SyncPlan, error) {
	release, err := s.guard.Acquire(ctx, "plan")
	if err != nil {
		return nil, err
	}
	defer release()

	reference, _, err := descriptor.LoadReference(ctx, s.reference, s.descriptorName)
	if err != nil {
		return nil, err
	}
	destination := descriptor.LoadDestination(ctx, s.destination, s.descriptorName)

	return s.planner.Plan(destination, reference), nil
}

func (s *SyncService) run(ctx context.Context, op state.Operation) (*Result, error) {
	log := logger.With("operation", string(op))

	release, err := s.guard.Acquire(ctx, string(op))
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	plan, err := s.syncLocked(ctx, log, op == state.OperationReset)
	end := time.Now()

	s.record(ctx, state.NewRun(op, start, end, plan, err))

	if err != nil {
		log.Error("sync failed", "error", err)
		return nil, err
	}

	return &Result{Plan: plan, Duration: end.Sub(start)}, nil
}

// syncLocked is the sync body; the caller holds the guard
func (s *SyncService) syncLocked(ctx context.Context, log logger.Logger, reset bool) (*domain.SyncPlan, error) {
	reference, raw, err := descriptor.LoadReference(ctx, s.reference, s.descriptorName)
	if err != nil {
		return nil, err
	}

	if reset {
		log.Info("resetting destination")
		if err := s.destination.DeleteRecursive(ctx, ""); err != nil {
			return nil, fmt.Errorf("resetting destination: %w", err)
		}
	}

	destination := descriptor.LoadDestination(ctx, s.destination, s.descriptorName)
	plan := s.planner.Plan(destination, reference)

	for _, change := range plan.Changes {
		log.Info("change", "kind", change.Kind.String(), "path", change.Path)
	}

	if err := s.executor.Apply(ctx, plan, raw); err != nil {
		return plan, err
	}

	log.Info("sync completed",
		"reference", plan.ReferenceHash,
		"creates", plan.Stats.Creates,
		"modifies", plan.Stats.Modifies,
		"removes", plan.Stats.Removes,
		"dir_removes", plan.Stats.DirRemoves,
	)

	return plan, nil
}

// record stores the run; history problems never fail a sync
func (s *SyncService) record(ctx context.Context, run state.Run) {
	if s.history == nil {
		return
	}
	// The run may have been cancelled; the record should still land
	if err := s.history.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Get().Warn("failed to record sync history", "error", err)
	}
}

// Close releases both adapters
func (s *SyncService) Close() error {
	var lastErr error
	if c, ok := s.reference.(io.Closer); ok {
		if err := c.Close(); err != nil {
			lastErr = err
		}
	}
	if err := s.destination.Close(); err != nil {
		lastErr = err
	}
	return lastErr
}

var _ io.Closer = (*SyncService)(nil)
