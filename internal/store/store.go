// Package store handles SQLite persistence of exported session reports.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/neurocursor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for archived reports.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			micro_stress_events INTEGER NOT NULL,
			high_load_ms INTEGER NOT NULL,
			sample_count INTEGER NOT NULL,
			average_focus REAL NOT NULL,
			score INTEGER NOT NULL,
			profile TEXT NOT NULL,
			summary TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_ended_at ON reports(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport stores a report. Saving the same session again replaces it.
func (s *Store) SaveReport(ctx context.Context, report model.ArchivedReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, started_at, ended_at, duration_ms, micro_stress_events, high_load_ms, sample_count, average_focus, score, profile, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms,
			micro_stress_events = excluded.micro_stress_events,
			high_load_ms = excluded.high_load_ms,
			sample_count = excluded.sample_count,
			average_focus = excluded.average_focus,
			score = excluded.score,
			profile = excluded.profile,
			summary = excluded.summary`,
		report.ID,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.EndedAt.UTC().Format(time.RFC3339Nano),
		report.DurationMs,
		report.MicroStressEvents,
		report.HighLoadMs,
		report.SampleCount,
		report.AverageFocus,
		report.Score,
		report.Profile.String(),
		report.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}
	return nil
}

// ListReports returns archived reports ordered oldest first.
func (s *Store) ListReports(ctx context.Context, filter model.HistoryFilter) ([]model.ArchivedReport, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT * FROM (
			SELECT id, started_at, ended_at, duration_ms, micro_stress_events, high_load_ms,
				sample_count, average_focus, score, profile, summary
			FROM reports
			WHERE %s
			ORDER BY ended_at DESC
			LIMIT ?
		) ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var reports []model.ArchivedReport
	for rows.Next() {
		var r model.ArchivedReport
		var startedAt, endedAt, profile string
		if err := rows.Scan(&r.ID, &startedAt, &endedAt, &r.DurationMs, &r.MicroStressEvents, &r.HighLoadMs,
			&r.SampleCount, &r.AverageFocus, &r.Score, &profile, &r.Summary); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		r.Profile = model.ParseProfile(profile)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
