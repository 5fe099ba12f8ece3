package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ning0612/snapsync/internal/logger"
)

// WatchScheduler runs the sync after the watched directory has been quiet
// for the debounce period. fsnotify is not recursive, so every directory
// below WatchDir is added, including ones created later.
type WatchScheduler struct {
	config  Config
	runner  SyncRunner
	stats   runStats
	watcher *fsnotify.Watcher

	mu          sync.RWMutex
	running     bool
	stopped     bool
	stopOnce    sync.Once
	closeOnce   sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewWatchScheduler creates a scheduler observing config.WatchDir
func NewWatchScheduler(config Config, runner SyncRunner) (*WatchScheduler, error) {
	if config.WatchDir == "" {
		return nil, fmt.Errorf("watch directory cannot be empty")
	}
	if config.Debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %v", config.Debounce)
	}
	if runner == nil {
		return nil, fmt.Errorf("sync runner cannot be nil")
	}

	info, err := os.Stat(config.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory is not a directory: %s", config.WatchDir)
	}

	return &WatchScheduler{
		config:      config,
		runner:      runner,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}, nil
}

// Start registers the watches and begins the event loop
func (s *WatchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := addTree(watcher, s.config.WatchDir); err != nil {
		watcher.Close()
		return err
	}

	s.watcher = watcher
	s.running = true

	go s.run(ctx)

	logger.Get().Info("watch scheduler started",
		"dir", s.config.WatchDir,
		"debounce", s.config.Debounce.String(),
	)
	return nil
}

// addTree watches root and every directory below it
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (s *WatchScheduler) run(ctx context.Context) {
	defer s.closeOnce.Do(func() {
		s.watcher.Close()
		s.mu.Lock()
		s.stopped = true
		s.running = false
		s.mu.Unlock()
		close(s.stoppedChan)
	})

	log := logger.With("component", "watch")

	if s.config.RunOnStart {
		s.stats.execute(ctx, s.runner, 0)
	}

	// Stopped until the first event arrives
	timer := time.NewTimer(s.config.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(s.watcher, event.Name); err != nil {
						log.Warn("could not watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			log.Debug("reference changed", "path", event.Name, "op", event.Op.String())

			timer.Reset(s.config.Debounce)
			s.stats.setNext(time.Now().Add(s.config.Debounce))

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "error", err)

		case <-timer.C:
			s.stats.execute(ctx, s.runner, 0)
			s.stats.setNext(time.Time{})
		}
	}
}

// Stop gracefully stops the scheduler
func (s *WatchScheduler) Stop() error {
	s.mu.RLock()
	if !s.running {
		s.mu.RUnlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.RUnlock()

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	<-s.stoppedChan
	return nil
}

// Status returns the current scheduler status
func (s *WatchScheduler) Status() *Status {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	return s.stats.status(running)
}

// New builds the scheduler selected by config.Mode
//
//nolint:ireturn // callers only need the Scheduler behavior
func New(config Config, runner SyncRunner) (Scheduler, error) {
	switch config.Mode {
	case ModeInterval, "":
		s, err := NewIntervalScheduler(config, runner)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ModeWatch:
		s, err := NewWatchScheduler(config, runner)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown scheduler mode: %s", config.Mode)
	}
}
