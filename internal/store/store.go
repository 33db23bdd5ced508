// Package store keeps an SQLite history of inference and evaluation runs so
// reruns of the same direction can be compared.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS inference_runs (
		id TEXT PRIMARY KEY,
		split TEXT NOT NULL,
		pair TEXT NOT NULL,
		direction TEXT NOT NULL,
		backend TEXT NOT NULL,
		model TEXT NOT NULL,
		prompts INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		retries INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id TEXT PRIMARY KEY,
		split TEXT NOT NULL,
		pair TEXT NOT NULL,
		direction TEXT NOT NULL,
		backend TEXT NOT NULL,
		model TEXT NOT NULL,
		chrf REAL NOT NULL,
		segments INTEGER NOT NULL,
		off_target INTEGER NOT NULL DEFAULT -1,
		signature TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_inference_lookup ON inference_runs(split, pair, direction);
	CREATE INDEX IF NOT EXISTS idx_evaluation_lookup ON evaluation_runs(split, pair, direction);
	`

	_, err := s.db.Exec(schema)
	return err
}

type InferenceRun struct {
	ID        string
	Split     string
	Pair      string
	Direction string
	Backend   string
	Model     string
	Prompts   int
	Failures  int
	Retries   int
	Duration  time.Duration
	CreatedAt time.Time
}

// EvaluationRun records one scored direction. OffTarget is -1 when
// detection was not performed.
type EvaluationRun struct {
	ID        string
	Split     string
	Pair      string
	Direction string
	Backend   string
	Model     string
	ChrF      float64
	Segments  int
	OffTarget int
	Signature string
	CreatedAt time.Time
}

// Filter narrows list queries; empty fields match everything.
type Filter struct {
	Split     string
	Pair      string
	Direction string
	Limit     int
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Split != "" {
		conds = append(conds, "split = ?")
		args = append(args, f.Split)
	}
	if f.Pair != "" {
		conds = append(conds, "pair = ?")
		args = append(args, f.Pair)
	}
	if f.Direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, f.Direction)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f Filter) limit() string {
	if f.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", f.Limit)
}

func stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = time.Now().UTC()
	}
}

// SaveInferenceRun inserts run, assigning an ID and timestamp if unset.
func (s *Store) SaveInferenceRun(ctx context.Context, run *InferenceRun) error {
	stamp(&run.ID, &run.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inference_runs (id, split, pair, direction, backend, model, prompts, failures, retries, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Split, run.Pair, run.Direction, run.Backend, run.Model,
		run.Prompts, run.Failures, run.Retries, run.Duration.Milliseconds(), run.CreatedAt)
	return err
}

// SaveEvaluationRun inserts run, assigning an ID and timestamp if unset.
func (s *Store) SaveEvaluationRun(ctx context.Context, run *EvaluationRun) error {
	stamp(&run.ID, &run.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluation_runs (id, split, pair, direction, backend, model, chrf, segments, off_target, signature, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Split, run.Pair, run.Direction, run.Backend, run.Model,
		run.ChrF, run.Segments, run.OffTarget, run.Signature, run.CreatedAt)
	return err
}

// ListInferenceRuns returns matching runs, newest first.
func (s *Store) ListInferenceRuns(ctx context.Context, f Filter) ([]InferenceRun, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, split, pair, direction, backend, model, prompts, failures, retries, duration_ms, created_at FROM inference_runs`+
			where+` ORDER BY created_at DESC`+f.limit(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []InferenceRun
	for rows.Next() {
		var r InferenceRun
		var ms int64
		if err := rows.Scan(&r.ID, &r.Split, &r.Pair, &r.Direction, &r.Backend, &r.Model, &r.Prompts, &r.Failures, &r.Retries, &ms, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListEvaluationRuns returns matching runs, newest first.
func (s *Store) ListEvaluationRuns(ctx context.Context, f Filter) ([]EvaluationRun, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, split, pair, direction, backend, model, chrf, segments, off_target, COALESCE(signature, ''), created_at FROM evaluation_runs`+
			where+` ORDER BY created_at DESC`+f.limit(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []EvaluationRun
	for rows.Next() {
		var r EvaluationRun
		if err := rows.Scan(&r.ID, &r.Split, &r.Pair, &r.Direction, &r.Backend, &r.Model, &r.ChrF, &r.Segments, &r.OffTarget, &r.Signature, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LatestEvaluation returns the newest evaluation of a direction, or false.
func (s *Store) LatestEvaluation(ctx context.Context, split, pair, direction string) (*EvaluationRun, bool, error) {
	runs, err := s.ListEvaluationRuns(ctx, Filter{Split: split, Pair: pair, Direction: direction, Limit: 1})
	if err != nil {
		return nil, false, err
	}
	if len(runs) == 0 {
		return nil, false, nil
	}
	return &runs[0], true, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
