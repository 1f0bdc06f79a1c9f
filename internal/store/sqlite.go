package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hunse/nengo/internal/scenario"
)

// RunStore persists scenario results to a SQLite database.
type RunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// RunInfo is the stored metadata of one run.
type RunInfo struct {
	ID        int64
	Name      string
	Seed      int64
	DT        float64
	Duration  float64
	Steps     int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Sample is one recorded probe row.
type Sample struct {
	Time float64
	Data []float64
}

// Open creates or opens the run database at dir/nengo.db.
func Open(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dbPath := filepath.Join(dir, "nengo.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with a single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return &RunStore{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *RunStore) Path() string { return s.dbPath }

// SaveResult stores a finished run and all of its probe samples in one
// transaction, returning the new run's id.
func (s *RunStore) SaveResult(ctx context.Context, res *scenario.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row, err := tx.ExecContext(ctx, `
		INSERT INTO runs (name, seed, dt, duration, steps, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.Name, res.Seed, res.DT, res.Duration, res.Steps,
		float64(res.Elapsed)/float64(time.Millisecond),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert run %q: %w", res.Name, err)
	}
	runID, err := row.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO samples (run_id, probe, t, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()

	for _, pr := range res.Probes {
		for i, t := range pr.Times {
			data, err := json.Marshal(pr.Data[i])
			if err != nil {
				return 0, fmt.Errorf("encode sample: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, runID, pr.Target, t, string(data)); err != nil {
				return 0, fmt.Errorf("insert sample %s@%g: %w", pr.Target, t, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run %q: %w", res.Name, err)
	}
	return runID, nil
}

// ListRuns returns all stored runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, seed, dt, duration, steps, elapsed_ms, created_at
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// GetRun returns the metadata of one run.
func (s *RunStore) GetRun(ctx context.Context, id int64) (*RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, seed, dt, duration, steps, elapsed_ms, created_at
		FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("run %d not found", id)
	}
	info, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Probes returns the distinct probe targets recorded for a run, in name
// order.
func (s *RunStore) Probes(ctx context.Context, runID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT probe FROM samples WHERE run_id = ? ORDER BY probe", runID)
	if err != nil {
		return nil, fmt.Errorf("list probes for run %d: %w", runID, err)
	}
	defer rows.Close()

	var probes []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		probes = append(probes, p)
	}
	return probes, rows.Err()
}

// Samples returns one probe's recorded rows for a run, in time order.
func (s *RunStore) Samples(ctx context.Context, runID int64, probe string) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT t, data FROM samples WHERE run_id = ? AND probe = ? ORDER BY t", runID, probe)
	if err != nil {
		return nil, fmt.Errorf("load samples %s for run %d: %w", probe, runID, err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			t    float64
			data string
		)
		if err := rows.Scan(&t, &data); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		var vals []float64
		if err := json.Unmarshal([]byte(data), &vals); err != nil {
			return nil, fmt.Errorf("decode sample %s@%g: %w", probe, t, err)
		}
		samples = append(samples, Sample{Time: t, Data: vals})
	}
	return samples, rows.Err()
}

// DeleteRun removes a run and its samples.
func (s *RunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

func scanRun(rows *sql.Rows) (RunInfo, error) {
	var (
		info      RunInfo
		elapsedMS float64
		createdAt string
	)
	if err := rows.Scan(&info.ID, &info.Name, &info.Seed, &info.DT,
		&info.Duration, &info.Steps, &elapsedMS, &createdAt); err != nil {
		return RunInfo{}, fmt.Errorf("scan run: %w", err)
	}
	info.Elapsed = time.Duration(elapsedMS * float64(time.Millisecond))
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return RunInfo{}, fmt.Errorf("parse run timestamp: %w", err)
	}
	info.CreatedAt = ts
	return info, nil
}
