package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/queryir"
	"github.com/roach88/spanrule/internal/querysql"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, script_name, script_hash, document_hash, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, script_name, script_hash, document_hash, engine_version, ir_version
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// NextRunSeq returns the seq for a new run: one past the largest stored.
func (s *Store) NextRunSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next run seq: %w", err)
	}
	return seq, nil
}

// ReadMatches returns the matches of a run in the order they finished.
// With matchedOnly, unmatched attempts are left out.
func (s *Store) ReadMatches(ctx context.Context, runID string, matchedOnly bool) ([]ir.MatchRecord, error) {
	filter := []queryir.Predicate{queryir.Eq("run_id", ir.String(runID))}
	if matchedOnly {
		filter = append(filter, queryir.Eq("matched", ir.Bool(true)))
	}
	query, args, err := querysql.Compile(queryir.Select{
		From:   "rule_matches",
		Fields: matchColumns,
		Filter: queryir.All(filter...),
	})
	if err != nil {
		return nil, err
	}
	return s.queryMatches(ctx, query, args...)
}

// FindMatchesByHash returns every stored match with the given tree hash,
// across runs, ordered by run seq then match seq.
func (s *Store) FindMatchesByHash(ctx context.Context, hash string) ([]ir.MatchRecord, error) {
	return s.queryMatches(ctx, `
		SELECT m.id, m.run_id, m.rule, m.seq, m.matched, m.cover_begin, m.cover_end, m.tree, m.tree_hash
		FROM rule_matches m
		JOIN runs r ON m.run_id = r.id
		WHERE m.tree_hash = ?
		ORDER BY r.seq ASC, m.seq ASC, m.id COLLATE BINARY ASC
	`, hash)
}

func (s *Store) queryMatches(ctx context.Context, query string, args ...any) ([]ir.MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	matches := []ir.MatchRecord{}
	for rows.Next() {
		var (
			rec        ir.MatchRecord
			begin, end sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Rule, &rec.Seq, &rec.Matched,
			&begin, &end, &rec.Tree, &rec.TreeHash); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if begin.Valid && end.Valid {
			rec.Cover = &ir.Span{Type: ir.AnnotationType, Begin: int(begin.Int64), End: int(end.Int64)}
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// ReadSpans returns the spans a run created and removed, created first,
// each in document order.
func (s *Store) ReadSpans(ctx context.Context, runID string) ([]ir.SpanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, span_id, type, begin_offset, end_offset, removed
		FROM spans
		WHERE run_id = ?
		ORDER BY removed ASC, begin_offset ASC, end_offset DESC, span_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	spans := []ir.SpanRecord{}
	for rows.Next() {
		var rec ir.SpanRecord
		if err := rows.Scan(&rec.RunID, &rec.Span.ID, &rec.Span.Type,
			&rec.Span.Begin, &rec.Span.End, &rec.Removed); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		spans = append(spans, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return spans, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.Run, error) {
	var run ir.Run
	err := row.Scan(&run.ID, &run.Seq, &run.ScriptName, &run.ScriptHash,
		&run.DocumentHash, &run.EngineVersion, &run.IRVersion)
	return run, err
}
