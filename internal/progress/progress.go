// Package progress reports per-change progress of a sync run.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Ning0612/snapsync/internal/domain"
)

// Reporter receives progress events from the executor
type Reporter interface {
	// SetTotal announces the number of changes in the plan
	SetTotal(totalChanges int)
	// Start begins a change; size is the byte count to copy (0 for removals)
	Start(change domain.Change, size int64)
	// Update reports bytes copied so far for the current change
	Update(bytesTransferred int64)
	// Complete marks the current change as applied
	Complete()
	// Error reports that the current change failed
	Error(err error)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update is a progress snapshot
type Update struct {
	Type             UpdateType
	Kind             domain.ChangeKind
	Path             string
	CurrentBytes     int64
	CurrentTotal     int64
	ChangesCompleted int
	ChangesTotal     int
	BytesCompleted   int64
	BytesPerSecond   float64
	Error            error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateProgress
	UpdateComplete
	UpdateError
)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	callback         Callback
	mu               sync.Mutex
	current          domain.Change
	currentTotal     int64
	changesTotal     int
	changesCompleted int
	bytesCompleted   int64
	startTime        time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// SetTotal sets the number of changes to apply
func (r *CallbackReporter) SetTotal(totalChanges int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changesTotal = totalChanges
	r.changesCompleted = 0
	r.bytesCompleted = 0
}

// snapshot must be called with mu held
func (r *CallbackReporter) snapshot(t UpdateType) Update {
	return Update{
		Type:             t,
		Kind:             r.current.Kind,
		Path:             r.current.Path,
		CurrentTotal:     r.currentTotal,
		ChangesCompleted: r.changesCompleted,
		ChangesTotal:     r.changesTotal,
		BytesCompleted:   r.bytesCompleted,
	}
}

// emit calls the callback outside the lock so callbacks may call back in
func (r *CallbackReporter) emit(update Update) {
	if r.callback != nil {
		r.callback(update)
	}
}

// Start begins tracking a change
func (r *CallbackReporter) Start(change domain.Change, size int64) {
	r.mu.Lock()
	r.current = change
	r.currentTotal = size
	r.startTime = time.Now()
	update := r.snapshot(UpdateStart)
	r.mu.Unlock()

	r.emit(update)
}

// Update reports bytes copied for the current change
func (r *CallbackReporter) Update(bytesTransferred int64) {
	r.mu.Lock()
	update := r.snapshot(UpdateProgress)
	update.CurrentBytes = bytesTransferred
	update.BytesCompleted += bytesTransferred
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 {
		update.BytesPerSecond = float64(bytesTransferred) / elapsed
	}
	r.mu.Unlock()

	r.emit(update)
}

// Complete marks the current change as applied
func (r *CallbackReporter) Complete() {
	r.mu.Lock()
	r.changesCompleted++
	r.bytesCompleted += r.currentTotal
	update := r.snapshot(UpdateComplete)
	update.CurrentBytes = r.currentTotal
	r.mu.Unlock()

	r.emit(update)
}

// Error reports a failure on the current change
func (r *CallbackReporter) Error(err error) {
	r.mu.Lock()
	update := r.snapshot(UpdateError)
	update.Error = err
	r.mu.Unlock()

	r.emit(update)
}

// ProgressReader wraps an io.Reader to track read progress
type ProgressReader struct {
	reader      io.Reader
	reporter    Reporter
	transferred int64
}

// NewProgressReader creates a new progress-tracking reader
func NewProgressReader(r io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   r,
		reporter: reporter,
	}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.reporter != nil {
			pr.reporter.Update(pr.transferred)
		}
	}
	return n, err
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalChanges int)              {}
func (NullReporter) Start(change domain.Change, size int64) {}
func (NullReporter) Update(bytesTransferred int64)          {}
func (NullReporter) Complete()                              {}
func (NullReporter) Error(err error)                        {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatCount renders "completed/total" with a percentage
func FormatCount(completed, total int) string {
	if total == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d (%3.0f%%)", completed, total, float64(completed)*100/float64(total))
}
