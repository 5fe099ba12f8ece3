// Package state persists the history of sync runs in a SQLite database.
package state

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/Ning0612/snapsync/internal/domain"
	"github.com/Ning0612/snapsync/internal/logger"
)

// DBName is the database file created inside the history directory
const DBName = "snapsync.db"

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Operation names the orchestrator entry point that produced a run
type Operation string

const (
	OperationSync  Operation = "sync"
	OperationReset Operation = "reset"
)

// Status is the outcome of a run
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Run is a single recorded sync execution
type Run struct {
	ID            int64
	Operation     Operation
	StartTime     time.Time
	EndTime       time.Time
	Status        Status
	ReferenceHash string
	Creates       int
	Modifies      int
	Removes       int
	DirRemoves    int
	Error         string
}

// Changes returns the total number of applied changes
func (r Run) Changes() int {
	return r.Creates + r.Modifies + r.Removes + r.DirRemoves
}

// Duration returns how long the run took
func (r Run) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// NewRun fills a Run from a plan; plan may be nil when planning failed
func NewRun(op Operation, start, end time.Time, plan *domain.SyncPlan, runErr error) Run {
	run := Run{
		Operation: op,
		StartTime: start,
		EndTime:   end,
		Status:    StatusSuccess,
	}
	if plan != nil {
		run.ReferenceHash = plan.ReferenceHash
		run.Creates = plan.Stats.Creates
		run.Modifies = plan.Stats.Modifies
		run.Removes = plan.Stats.Removes
		run.DirRemoves = plan.Stats.DirRemoves
	}
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	return run
}

// Manager handles run history persistence
type Manager struct {
	db *sql.DB
}

// NewManager opens (creating if needed) the history database in dataDir
// and applies pending migrations.
func NewManager(ctx context.Context, dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection avoids "database is locked" between the scheduler and CLI
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	m := &Manager{db: db}
	if err := m.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return m, nil
}

func (m *Manager) migrate(ctx context.Context) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("could not set dialect 'sqlite3': %w", err)
	}
	goose.SetLogger(logger.GooseLogger{})
	goose.SetBaseFS(embedMigrations)

	if err := goose.UpContext(ctx, m.db, "migrations"); err != nil {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// SaveRun records a run
func (m *Manager) SaveRun(ctx context.Context, run Run) error {
	if run.Status != StatusSuccess && run.Status != StatusFailed {
		return fmt.Errorf("invalid status: %s (must be 'success' or 'failed')", run.Status)
	}
	if run.Operation != OperationSync && run.Operation != OperationReset {
		return fmt.Errorf("invalid operation: %s (must be 'sync' or 'reset')", run.Operation)
	}

	query := `
		INSERT INTO runs (operation, start_time, end_time, status, reference_hash,
			creates, modifies, removes, dir_removes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.ExecContext(ctx, query,
		string(run.Operation),
		run.StartTime,
		run.EndTime,
		string(run.Status),
		run.ReferenceHash,
		run.Creates,
		run.Modifies,
		run.Removes,
		run.DirRemoves,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

const selectRuns = `
	SELECT id, operation, start_time, end_time, status, reference_hash,
		creates, modifies, removes, dir_removes, error
	FROM runs
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var op, status string
	err := s.Scan(
		&run.ID,
		&op,
		&run.StartTime,
		&run.EndTime,
		&status,
		&run.ReferenceHash,
		&run.Creates,
		&run.Modifies,
		&run.Removes,
		&run.DirRemoves,
		&run.Error,
	)
	run.Operation = Operation(op)
	run.Status = Status(status)
	return run, err
}

// Recent returns up to limit runs, newest first
func (m *Manager) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, selectRuns+" ORDER BY start_time DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// LastSuccess returns the most recent successful run, or nil if none
func (m *Manager) LastSuccess(ctx context.Context) (*Run, error) {
	row := m.db.QueryRowContext(ctx, selectRuns+" WHERE status = 'success' ORDER BY start_time DESC, id DESC LIMIT 1")

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &run, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
