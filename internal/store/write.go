package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/spanrule/internal/ir"
)

// WriteRun inserts a run record. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	return writeRun(ctx, s.db, run)
}

// WriteMatch inserts a rule match. The run must exist (foreign key
// constraint). Duplicate IDs are silently ignored.
func (s *Store) WriteMatch(ctx context.Context, rec ir.MatchRecord) error {
	return writeMatch(ctx, s.db, rec)
}

// WriteSpans records spans created (removed=false) or removed by a run.
func (s *Store) WriteSpans(ctx context.Context, runID string, spans []ir.Span, removed bool) error {
	for _, sp := range spans {
		if err := writeSpan(ctx, s.db, runID, sp, removed); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun writes a run with its matches and span changes in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, run ir.Run, matches []ir.MatchRecord, created, removed []ir.Span) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeRun(ctx, tx, run); err != nil {
		return err
	}
	for _, rec := range matches {
		if rec.RunID != run.ID {
			return fmt.Errorf("save run: match %s belongs to run %s", rec.ID, rec.RunID)
		}
		if err := writeMatch(ctx, tx, rec); err != nil {
			return err
		}
	}
	for _, sp := range created {
		if err := writeSpan(ctx, tx, run.ID, sp, false); err != nil {
			return err
		}
	}
	for _, sp := range removed {
		if err := writeSpan(ctx, tx, run.ID, sp, true); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeRun(ctx context.Context, db execer, run ir.Run) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, script_name, script_hash, document_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.ScriptName,
		run.ScriptHash,
		run.DocumentHash,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

func writeMatch(ctx context.Context, db execer, rec ir.MatchRecord) error {
	var begin, end sql.NullInt64
	if rec.Cover != nil {
		begin = sql.NullInt64{Int64: int64(rec.Cover.Begin), Valid: true}
		end = sql.NullInt64{Int64: int64(rec.Cover.End), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO rule_matches
		(id, run_id, rule, seq, matched, cover_begin, cover_end, tree, tree_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.RunID,
		rec.Rule,
		rec.Seq,
		rec.Matched,
		begin,
		end,
		rec.Tree,
		rec.TreeHash,
	)
	if err != nil {
		return fmt.Errorf("write match %s: %w", rec.ID, err)
	}
	return nil
}

func writeSpan(ctx context.Context, db execer, runID string, sp ir.Span, removed bool) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO spans
		(run_id, span_id, type, begin_offset, end_offset, removed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		sp.ID,
		sp.Type,
		sp.Begin,
		sp.End,
		removed,
	)
	if err != nil {
		return fmt.Errorf("write span %d: %w", sp.ID, err)
	}
	return nil
}
