package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/snapsync/internal/domain"
)

// HolderInfo contains metadata about the current lock holder
type HolderInfo struct {
	Operation string
	Since     time.Time
}

// Guard serializes sync operations within one process.
// It is a single-slot semaphore: Acquire blocks until the slot is free.
// There is no cross-process coordination.
type Guard struct {
	slot chan struct{}

	mu     sync.Mutex
	holder *HolderInfo
}

// NewGuard creates an unlocked guard
func NewGuard() *Guard {
	return &Guard{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the guard is free or ctx is done.
// The returned release func must be called exactly once; extra calls are no-ops.
func (g *Guard) Acquire(ctx context.Context, operation string) (func(), error) {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.take(operation), nil
}

// TryAcquire acquires the guard without waiting.
// Returns a *LockError wrapping domain.ErrSyncInProgress if it is held.
func (g *Guard) TryAcquire(operation string) (func(), error) {
	select {
	case g.slot <- struct{}{}:
		return g.take(operation), nil
	default:
		return nil, &LockError{
			Holder: g.Holder(),
			Reason: "guard is held by another operation",
		}
	}
}

// Holder returns information about the current holder, or nil if free
func (g *Guard) Holder() *HolderInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holder == nil {
		return nil
	}
	info := *g.holder
	return &info
}

// IsLocked reports whether the guard is currently held
func (g *Guard) IsLocked() bool {
	return g.Holder() != nil
}

func (g *Guard) take(operation string) func() {
	g.mu.Lock()
	g.holder = &HolderInfo{Operation: operation, Since: time.Now()}
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.holder = nil
			g.mu.Unlock()
			<-g.slot
		})
	}
}

// LockError represents an error when the guard cannot be acquired
type LockError struct {
	Holder *HolderInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by %s since %s)",
			e.Reason,
			e.Holder.Operation,
			e.Holder.Since.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

// Unwrap lets errors.Is match domain.ErrSyncInProgress
func (e *LockError) Unwrap() error {
	return domain.ErrSyncInProgress
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	_, ok := err.(*LockError)
	return ok
}
