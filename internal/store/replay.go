package store

import (
	"context"
	"fmt"

	"github.com/roach88/spanrule/internal/ir"
)

// Divergence is one position where a replay differs from the stored run.
type Divergence struct {
	Seq      int64  `json:"seq"`
	Stored   string `json:"stored,omitempty"`   // Tree hash, empty if missing
	Replayed string `json:"replayed,omitempty"` // Tree hash, empty if missing
}

// ReplayResult compares a stored run with a fresh application of the same
// script to the same document.
type ReplayResult struct {
	RunID       string       `json:"run_id"`
	Compared    int          `json:"compared"`
	Divergences []Divergence `json:"divergences"`
}

// Identical reports whether the replay reproduced every stored match.
func (r ReplayResult) Identical() bool { return len(r.Divergences) == 0 }

// Replay checks fresh match records against the stored run. Records are
// compared by seq on rule, matched flag, and tree hash; match IDs are
// ignored since they are not part of the fingerprint.
func (s *Store) Replay(ctx context.Context, runID string, fresh []ir.MatchRecord) (ReplayResult, error) {
	if _, err := s.ReadRun(ctx, runID); err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	stored, err := s.ReadMatches(ctx, runID, false)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	result := ReplayResult{RunID: runID, Divergences: []Divergence{}}
	for i := 0; i < max(len(stored), len(fresh)); i++ {
		var d Divergence
		switch {
		case i >= len(fresh):
			d = Divergence{Seq: stored[i].Seq, Stored: stored[i].TreeHash}
		case i >= len(stored):
			d = Divergence{Seq: int64(i + 1), Replayed: fresh[i].TreeHash}
		default:
			result.Compared++
			a, b := stored[i], fresh[i]
			if a.Rule == b.Rule && a.Matched == b.Matched && a.TreeHash == b.TreeHash {
				continue
			}
			d = Divergence{Seq: a.Seq, Stored: a.TreeHash, Replayed: b.TreeHash}
		}
		result.Divergences = append(result.Divergences, d)
	}
	return result, nil
}
