package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/flowlint/internal/ir"
)

// RunDiagnostic is one stored finding of a run.
type RunDiagnostic struct {
	RunID       string        `json:"run_id"`
	Ordinal     int           `json:"ordinal"`
	Fingerprint string        `json:"fingerprint"`
	Diagnostic  ir.Diagnostic `json:"diagnostic"`
}

// CodeCount is the number of stored findings carrying one code.
type CodeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

const runColumns = `id, seq, source_hash, tool, has_errors, error_count, warning_count`

// ListRuns returns recorded runs, most recent first.
// A limit of zero or less returns every run.
// Returns an empty slice (not nil) when nothing has been recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM validation_runs ORDER BY seq DESC, id COLLATE BINARY DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM validation_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// LatestRunForSource returns the most recent run over the given source text.
func (s *Store) LatestRunForSource(ctx context.Context, source string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM validation_runs
		WHERE source_hash = ?
		ORDER BY seq DESC
		LIMIT 1
	`, ir.SourceHash(source))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run for source: %w", ErrRunNotFound)
	}
	return run, err
}

// ReadRunDiagnostics returns the findings of a run in report order.
// Returns an empty slice (not nil) for a run without findings.
func (s *Store) ReadRunDiagnostics(ctx context.Context, runID string) ([]RunDiagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, ordinal, fingerprint, payload
		FROM run_diagnostics
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run diagnostics: %w", err)
	}
	defer rows.Close()

	out := []RunDiagnostic{}
	for rows.Next() {
		var (
			rd      RunDiagnostic
			payload string
		)
		if err := rows.Scan(&rd.RunID, &rd.Ordinal, &rd.Fingerprint, &payload); err != nil {
			return nil, fmt.Errorf("scan run diagnostic: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rd.Diagnostic); err != nil {
			return nil, fmt.Errorf("decode run diagnostic %d: %w", rd.Ordinal, err)
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run diagnostics: %w", err)
	}
	return out, nil
}

// DiffRuns compares two runs by fingerprint. Added holds findings of to
// that from lacks; resolved holds findings of from that to lacks.
func (s *Store) DiffRuns(ctx context.Context, fromID, toID string) (added, resolved []RunDiagnostic, err error) {
	from, err := s.ReadRunDiagnostics(ctx, fromID)
	if err != nil {
		return nil, nil, err
	}
	to, err := s.ReadRunDiagnostics(ctx, toID)
	if err != nil {
		return nil, nil, err
	}
	return subtract(to, from), subtract(from, to), nil
}

// subtract returns the entries of a whose fingerprint is absent from b,
// counting duplicates.
func subtract(a, b []RunDiagnostic) []RunDiagnostic {
	remaining := make(map[string]int, len(b))
	for _, d := range b {
		remaining[d.Fingerprint]++
	}
	out := []RunDiagnostic{}
	for _, d := range a {
		if remaining[d.Fingerprint] > 0 {
			remaining[d.Fingerprint]--
			continue
		}
		out = append(out, d)
	}
	return out
}

// CodeCounts returns how often each code was recorded, most frequent first.
func (s *Store) CodeCounts(ctx context.Context) ([]CodeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, COUNT(*)
		FROM run_diagnostics
		GROUP BY code
		ORDER BY COUNT(*) DESC, code COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query code counts: %w", err)
	}
	defer rows.Close()

	counts := []CodeCount{}
	for rows.Next() {
		var c CodeCount
		if err := rows.Scan(&c.Code, &c.Count); err != nil {
			return nil, fmt.Errorf("scan code count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate code counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.SourceHash,
		&run.Tool,
		&run.HasErrors,
		&run.ErrorCount,
		&run.WarningCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
