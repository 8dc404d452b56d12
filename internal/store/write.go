package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/flowlint/internal/ir"
)

// Run is one recorded validation call.
type Run struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	SourceHash   string `json:"source_hash"`
	Tool         string `json:"tool"`
	HasErrors    bool   `json:"has_errors"`
	ErrorCount   int    `json:"error_count"`
	WarningCount int    `json:"warning_count"`
}

// RecordRun stores the result of validating source with the named tool.
// Diagnostics are written in report order: errors first, then warnings.
// The run id is a UUIDv7 and seq is one past the highest recorded seq.
func (s *Store) RecordRun(ctx context.Context, tool, source string, res ir.Result) (Run, error) {
	run := Run{
		ID:           uuid.Must(uuid.NewV7()).String(),
		SourceHash:   ir.SourceHash(source),
		Tool:         tool,
		HasErrors:    res.HasErrors,
		ErrorCount:   len(res.Errors),
		WarningCount: len(res.Warnings),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM validation_runs",
	).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO validation_runs
		(id, seq, source_hash, tool, has_errors, error_count, warning_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.SourceHash,
		run.Tool,
		run.HasErrors,
		run.ErrorCount,
		run.WarningCount,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	for i, d := range res.All() {
		payload, err := ir.MarshalCanonical(d)
		if err != nil {
			return Run{}, fmt.Errorf("record run: diagnostic %d: %w", i, err)
		}
		fp, err := ir.DiagnosticFingerprint(d)
		if err != nil {
			return Run{}, fmt.Errorf("record run: diagnostic %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_diagnostics
			(run_id, ordinal, fingerprint, code, severity, line, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			fp,
			d.Code,
			string(d.Severity),
			d.Line,
			string(payload),
		)
		if err != nil {
			return Run{}, fmt.Errorf("record run: diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}
