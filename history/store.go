package history

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kbukum/wmorder/component"
	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// Run statuses.
const (
	RunRunning     = "running"
	RunSucceeded   = "succeeded"
	RunFailed      = "failed"
	RunInterrupted = "interrupted"
)

// Config is the history section of the application configuration.
type Config struct {
	// Enabled turns the run ledger on.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path" json:"path"`
}

// ApplyDefaults fills an unset path with DefaultPath.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath()
	}
}

// DefaultPath returns the ledger location under the user cache directory,
// or .wmorder/history.db when there is none.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".wmorder", "history.db")
	}
	return filepath.Join(dir, "wmorder", "history.db")
}

// NewRunID returns a time-ordered identifier for a run.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Run is one invocation of plan or build.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Root       string    `json:"root"`
	Target     string    `json:"target"`
	Digest     string    `json:"digest"`
	Units      int       `json:"units"`
	Workers    int       `json:"workers"`
	DryRun     bool      `json:"dry_run"`
	Status     string    `json:"status"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// UnitRecord is the outcome of one unit within a run.
type UnitRecord struct {
	RunID    string        `json:"run_id"`
	Seq      int           `json:"seq"`
	Dir      string        `json:"dir"`
	Kind     string        `json:"kind"`
	Output   string        `json:"output"`
	Status   string        `json:"status"`
	Worker   int           `json:"worker"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Store is the sqlite run ledger. It is a component: Start opens the
// database and Stop closes it.
type Store struct {
	path string
	mu   sync.RWMutex
	conn *sql.DB
	log  *logger.Logger
}

var (
	_ component.Component   = (*Store)(nil)
	_ component.Describable = (*Store)(nil)
)

// New creates a store for the database at path without opening it.
func New(path string) *Store {
	return &Store{path: path, log: logger.Get("history")}
}

// Open creates a store and opens the database immediately.
func Open(ctx context.Context, path string) (*Store, error) {
	s := New(path)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Name implements component.Component.
func (s *Store) Name() string { return "history" }

// Describe implements component.Describable.
func (s *Store) Describe() component.Description {
	return component.Description{Name: "Run history", Type: "sqlite", Details: s.path}
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Start creates the database directory, opens the database and applies the
// pragmas and schema.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.StorageError("open", err).WithDetail("path", s.path)
		}
	}
	conn, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.StorageError("open", err).WithDetail("path", s.path)
	}
	conn.SetMaxOpenConns(1)

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return errors.StorageError("open", err).WithDetail("pragma", pragma)
		}
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return errors.StorageError("migrate", err).WithDetail("path", s.path)
	}

	s.conn = conn
	s.log.Debug("history opened", logger.Fields("path", s.path))
	return nil
}

// Stop closes the database.
func (s *Store) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return errors.StorageError("close", err)
	}
	return nil
}

// Health implements component.Component.
func (s *Store) Health(ctx context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not open"}
	}
	if err := s.conn.PingContext(ctx); err != nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

func (s *Store) db() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, errors.StorageError("query", sql.ErrConnDone)
	}
	return s.conn, nil
}

// BeginRun records a run as running. A missing ID or start time is filled
// in; the stored run is returned.
func (s *Store) BeginRun(ctx context.Context, run Run) (Run, error) {
	conn, err := s.db()
	if err != nil {
		return run, err
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunRunning

	_, err = conn.ExecContext(ctx,
		`INSERT INTO runs (id, started_ms, root, target, digest, units, workers, dry_run, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.Root, run.Target, run.Digest,
		run.Units, run.Workers, run.DryRun, run.Status,
	)
	if err != nil {
		return run, errors.StorageError("begin run", err).WithDetail("run_id", run.ID)
	}
	return run, nil
}

// RecordUnit stores the outcome of one unit.
func (s *Store) RecordUnit(ctx context.Context, rec UnitRecord) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx,
		`INSERT INTO unit_results (run_id, seq, dir, kind, output, status, worker, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.Dir, rec.Kind, rec.Output, rec.Status,
		rec.Worker, rec.Duration.Milliseconds(), rec.Error,
	)
	if err != nil {
		return errors.StorageError("record unit", err).WithDetails(map[string]any{"run_id": rec.RunID, "unit": rec.Dir})
	}
	return nil
}

// FinishRun stores the final status and counters of run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	conn, err := s.db()
	if err != nil {
		return err
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := conn.ExecContext(ctx,
		`UPDATE runs SET finished_ms = ?, status = ?, succeeded = ?, failed = ?, skipped = ?, error = ?
		 WHERE id = ?`,
		run.FinishedAt.UnixMilli(), run.Status, run.Succeeded, run.Failed, run.Skipped, run.Error, run.ID,
	)
	if err != nil {
		return errors.StorageError("finish run", err).WithDetail("run_id", run.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.StorageError("finish run", sql.ErrNoRows).WithDetail("run_id", run.ID)
	}
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT id, started_ms, COALESCE(finished_ms, 0), root, target, digest, units, workers,
		        dry_run, status, succeeded, failed, skipped, error
		 FROM runs ORDER BY started_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.StorageError("list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedMs, finishedMs int64
		if err := rows.Scan(&r.ID, &startedMs, &finishedMs, &r.Root, &r.Target, &r.Digest, &r.Units,
			&r.Workers, &r.DryRun, &r.Status, &r.Succeeded, &r.Failed, &r.Skipped, &r.Error); err != nil {
			return nil, errors.StorageError("list runs", err)
		}
		r.StartedAt = time.UnixMilli(startedMs)
		if finishedMs > 0 {
			r.FinishedAt = time.UnixMilli(finishedMs)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("list runs", err)
	}
	return runs, nil
}

// Units returns the unit outcomes of a run in sequence order.
func (s *Store) Units(ctx context.Context, runID string) ([]UnitRecord, error) {
	conn, err := s.db()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT run_id, seq, dir, kind, output, status, worker, duration_ms, error
		 FROM unit_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.StorageError("list units", err)
	}
	defer rows.Close()

	var out []UnitRecord
	for rows.Next() {
		var (
			rec UnitRecord
			ms  int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Dir, &rec.Kind, &rec.Output, &rec.Status,
			&rec.Worker, &ms, &rec.Error); err != nil {
			return nil, errors.StorageError("list units", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("list units", err)
	}
	return out, nil
}
