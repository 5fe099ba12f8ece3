package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/testutil"
)

func TestAcquireRelease(t *testing.T) {
	guard := NewGuard()

	release, err := guard.Acquire(context.Background(), "sync")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if !guard.IsLocked() {
		t.Error("guard should be held")
	}
	holder := guard.Holder()
	if holder == nil || holder.Operation != "sync" {
		t.Errorf("unexpected holder: %+v", holder)
	}

	release()

	if guard.IsLocked() {
		t.Error("guard should not be held after release")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	guard := NewGuard()

	release, _ := guard.Acquire(context.Background(), "sync")
	release()
	release()

	// A second holder must not be released by the stale func
	release2, err := guard.TryAcquire("reset")
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	release()
	if !guard.IsLocked() {
		t.Error("stale release freed a newer holder")
	}
	release2()
}

func TestTryAcquire_Held(t *testing.T) {
	guard := NewGuard()

	release, _ := guard.Acquire(context.Background(), "sync")
	defer release()

	_, err := guard.TryAcquire("reset")
	if err == nil {
		t.Fatal("expected error acquiring held guard")
	}
	if !IsLockError(err) {
		t.Errorf("expected LockError, got %T", err)
	}
	if !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestAcquire_BlocksUntilReleased(t *testing.T) {
	guard := NewGuard()

	release, _ := guard.Acquire(context.Background(), "first")

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		r, err := guard.Acquire(context.Background(), "second")
		if err != nil {
			t.Errorf("second Acquire failed: %v", err)
			return
		}
		acquired.Store(true)
		r()
	}()

	time.Sleep(50 * time.Millisecond)
	if acquired.Load() {
		t.Fatal("second caller acquired a held guard")
	}

	release()
	testutil.AssertEventually(t, time.Second, acquired.Load, "second caller never acquired")
	<-done
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	guard := NewGuard()

	release, _ := guard.Acquire(context.Background(), "first")
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := guard.Acquire(ctx, "second")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestAcquire_SerializesConcurrentCallers(t *testing.T) {
	guard := NewGuard()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := guard.Acquire(context.Background(), "sync")
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most 1 holder at a time, saw %d", maxInside)
	}
}

func TestLockError_Message(t *testing.T) {
	err := &LockError{
		Holder: &HolderInfo{Operation: "reset", Since: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		Reason: "busy",
	}

	want := "cannot acquire lock: busy (held by reset since 2026-01-02T03:04:05Z)"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	bare := &LockError{Reason: "busy"}
	if bare.Error() != "cannot acquire lock: busy" {
		t.Errorf("unexpected message: %q", bare.Error())
	}
}
