// Package store keeps the sqlite run history: one row per translation run
// with its outcome. Document text is never stored.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/valpere/doctran/internal"
)

var ErrNotFound = errors.New("run not found")

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
	CREATE TABLE IF NOT EXISTS translation_runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		output_path TEXT,
		target_lang TEXT NOT NULL,
		model_id TEXT,
		chunks INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error_kind TEXT,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON translation_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_lang ON translation_runs(target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts run and returns its ID, generating one when empty.
func (s *Store) SaveRun(ctx context.Context, run internal.TranslationRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_runs (id, input_path, output_path, target_lang, model_id, chunks, status, error_kind, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.OutputPath, run.TargetLang, run.ModelID, run.Chunks,
		run.Status, run.ErrorKind, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// GetRun returns the run with the given ID or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (*internal.TranslationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM translation_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]internal.TranslationRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM translation_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.TranslationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// RunStats summarises the run history.
type RunStats struct {
	TotalRuns   int
	Succeeded   int
	Failed      int
	TotalChunks int
	ByLanguage  map[string]int
}

// Stats returns summary statistics for the run history.
func (s *Store) Stats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{ByLanguage: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(chunks), 0)
		FROM translation_runs`, internal.RunSucceeded, internal.RunFailed).Scan(
		&stats.TotalRuns,
		&stats.Succeeded,
		&stats.Failed,
		&stats.TotalChunks,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT target_lang, COUNT(*) FROM translation_runs GROUP BY target_lang`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, err
		}
		stats.ByLanguage[lang] = n
	}

	return stats, rows.Err()
}

// DeleteRun permanently removes a run by ID.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ClearRuns removes all runs.
func (s *Store) ClearRuns(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_runs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

const runColumns = `id, input_path, COALESCE(output_path, ''), target_lang, COALESCE(model_id, ''), chunks, status,
	COALESCE(error_kind, ''), COALESCE(error, ''), started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*internal.TranslationRun, error) {
	var r internal.TranslationRun
	err := sc.Scan(&r.ID, &r.InputPath, &r.OutputPath, &r.TargetLang, &r.ModelID, &r.Chunks,
		&r.Status, &r.ErrorKind, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
