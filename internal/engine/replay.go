package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/store"
	"github.com/roach88/spanrule/internal/stream"
)

var (
	// ErrNoStore is returned by Replay on an engine without a store.
	ErrNoStore = errors.New("no store attached")
	// ErrScriptChanged means the script differs from the one the run used.
	ErrScriptChanged = errors.New("script changed since run")
	// ErrDocumentChanged means the document differs from the one the run used.
	ErrDocumentChanged = errors.New("document changed since run")
)

// Replay applies sc to doc again under the identity of a stored run and
// compares the fresh matches with the stored ones. Nothing is written.
//
// Replay is structural: the same code path as Run, with the run's ID
// reused so match IDs line up. doc must be in its initial state.
func (e *Engine) Replay(ctx context.Context, runID string, sc *rule.Script, doc *stream.Document) (store.ReplayResult, error) {
	if e.store == nil {
		return store.ReplayResult{}, ErrNoStore
	}
	run, err := e.store.ReadRun(ctx, runID)
	if err != nil {
		return store.ReplayResult{}, err
	}
	if ir.ScriptHash(sc.Source) != run.ScriptHash {
		return store.ReplayResult{}, fmt.Errorf("replay %s: %w", runID, ErrScriptChanged)
	}
	docHash, err := ir.DocumentHash(doc.Text(), doc.Spans())
	if err != nil {
		return store.ReplayResult{}, fmt.Errorf("hash document: %w", err)
	}
	if docHash != run.DocumentHash {
		return store.ReplayResult{}, fmt.Errorf("replay %s: %w", runID, ErrDocumentChanged)
	}

	res, err := e.apply(ctx, run, sc, doc)
	if err != nil {
		return store.ReplayResult{}, fmt.Errorf("replay %s: %w", runID, err)
	}
	result, err := e.store.Replay(ctx, runID, res.Matches)
	if err != nil {
		return store.ReplayResult{}, err
	}
	e.logger.Debug("replay done", "run", runID, "compared", result.Compared, "divergences", len(result.Divergences))
	return result, nil
}
