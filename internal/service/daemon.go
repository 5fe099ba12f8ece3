package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ning0612/snapsync/internal/logger"
	"github.com/Ning0612/snapsync/internal/scheduler"
	"github.com/Ning0612/snapsync/internal/state"
)

// DaemonService keeps a SyncService running under a scheduler
type DaemonService struct {
	mu        sync.RWMutex
	scheduler scheduler.Scheduler
	syncSvc   *SyncService
	history   *state.Manager
}

// DaemonStatus represents the current daemon status
type DaemonStatus struct {
	Running        bool
	SchedulerStats *scheduler.Status
	LastSuccess    *state.Run
}

// NewDaemonService creates a daemon around syncSvc; history may be nil
func NewDaemonService(syncSvc *SyncService, history *state.Manager) (*DaemonService, error) {
	if syncSvc == nil {
		return nil, fmt.Errorf("sync service cannot be nil")
	}

	return &DaemonService{
		syncSvc: syncSvc,
		history: history,
	}, nil
}

// Start creates the scheduler described by cfg and starts it
func (d *DaemonService) Start(ctx context.Context, cfg scheduler.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		return fmt.Errorf("daemon is already running")
	}

	sched, err := scheduler.New(cfg, scheduler.RunnerFunc(d.runSync))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	d.scheduler = sched
	return nil
}

// runSync is the scheduled job; failures are kept in scheduler stats and history
func (d *DaemonService) runSync(ctx context.Context) error {
	result, err := d.syncSvc.Sync(ctx)
	if err != nil {
		return err
	}
	if !result.Plan.UpToDate() {
		logger.Get().Info("scheduled sync applied changes",
			"changes", result.Plan.Stats.Total,
			"duration", result.Duration.String(),
		)
	}
	return nil
}

// Stop stops the scheduler and waits for a running sync to finish
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler == nil {
		return fmt.Errorf("daemon is not running")
	}

	if err := d.scheduler.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	d.scheduler = nil
	return nil
}

// Status returns the current daemon status
func (d *DaemonService) Status(ctx context.Context) *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{}

	if d.scheduler != nil {
		status.SchedulerStats = d.scheduler.Status()
		status.Running = status.SchedulerStats.Running
	}

	if d.history != nil {
		if last, err := d.history.LastSuccess(ctx); err == nil {
			status.LastSuccess = last
		}
	}

	return status
}

// Close stops the scheduler and releases the sync service and history
func (d *DaemonService) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error

	if d.scheduler != nil {
		// Already stopped by context cancellation is fine
		_ = d.scheduler.Stop()
		d.scheduler = nil
	}

	if err := d.syncSvc.Close(); err != nil {
		lastErr = err
	}

	if d.history != nil {
		if err := d.history.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
