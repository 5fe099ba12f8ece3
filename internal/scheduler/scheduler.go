// Package scheduler re-runs the sync in the background, either on a fixed
// interval or when the reference directory changes.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler defines the interface for sync schedulers
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler and waits for a running sync
	Stop() error

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Mode selects the scheduler implementation
type Mode string

const (
	ModeInterval Mode = "interval"
	ModeWatch    Mode = "fsnotify"
)

// Config contains scheduler configuration
type Config struct {
	Mode Mode

	// Interval between runs (interval mode)
	Interval time.Duration

	// WatchDir is the directory observed for changes (watch mode)
	WatchDir string

	// Debounce is the quiet period after the last event before a run (watch mode)
	Debounce time.Duration

	// RunOnStart triggers one run as soon as the scheduler starts
	RunOnStart bool
}

// SyncRunner is what schedulers execute
type SyncRunner interface {
	RunSync(ctx context.Context) error
}

// RunnerFunc adapts a function to SyncRunner
type RunnerFunc func(ctx context.Context) error

// RunSync calls f(ctx)
func (f RunnerFunc) RunSync(ctx context.Context) error {
	return f(ctx)
}

// runStats tracks run counters shared by every scheduler
type runStats struct {
	mu             sync.RWMutex
	lastRunTime    time.Time
	nextRunTime    time.Time
	totalRuns      int
	successfulRuns int
	failedRuns     int
	lastError      string
}

// execute runs the sync once and records the outcome
func (s *runStats) execute(ctx context.Context, runner SyncRunner, next time.Duration) {
	s.mu.Lock()
	s.lastRunTime = time.Now()
	s.totalRuns++
	if next > 0 {
		s.nextRunTime = time.Now().Add(next)
	}
	s.mu.Unlock()

	err := runner.RunSync(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failedRuns++
		s.lastError = err.Error()
	} else {
		s.successfulRuns++
		s.lastError = ""
	}
}

func (s *runStats) setNext(t time.Time) {
	s.mu.Lock()
	s.nextRunTime = t
	s.mu.Unlock()
}

func (s *runStats) status(running bool) *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Status{
		Running:        running,
		LastRunTime:    s.lastRunTime,
		NextRunTime:    s.nextRunTime,
		TotalRuns:      s.totalRuns,
		SuccessfulRuns: s.successfulRuns,
		FailedRuns:     s.failedRuns,
		LastError:      s.lastError,
	}
}
