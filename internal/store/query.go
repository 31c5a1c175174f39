package store

import (
	"context"
	"fmt"

	"github.com/roach88/spanrule/internal/queryir"
	"github.com/roach88/spanrule/internal/querysql"
)

// matchColumns is the column order queryMatches scans.
var matchColumns = []string{
	"id", "run_id", "rule", "seq", "matched", "cover_begin", "cover_end", "tree", "tree_hash",
}

// Count returns how many rows satisfy q.
func (s *Store) Count(ctx context.Context, q queryir.Count) (int, error) {
	query, args, err := querysql.Compile(q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}
	return n, nil
}
