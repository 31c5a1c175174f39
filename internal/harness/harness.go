package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/spanrule/internal/compiler"
	"github.com/roach88/spanrule/internal/engine"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/script"
	"github.com/roach88/spanrule/internal/store"
	"github.com/roach88/spanrule/internal/stream"
	"github.com/roach88/spanrule/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with deterministic span and run IDs.
type Harness struct {
	store   *store.Store
	spanIDs *testutil.SpanIDs
	runIDs  *testutil.FixedIDGenerator
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the descriptor, compile the script, build the document
// 3. Apply the script through the engine
// 4. Evaluate assertions against the outcome
//
// A failure to load or apply is returned as an error unless the scenario
// expects it.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		spanIDs: testutil.NewSpanIDs(1),
		runIDs:  testutil.NewFixedIDGenerator(scenario.RunID),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	res, doc, runErr := h.execute(ctx, scenario)

	result := NewResult()
	if scenario.ExpectError != "" {
		switch {
		case runErr == nil:
			result.AddError(fmt.Sprintf("expected error containing %q, run succeeded", scenario.ExpectError))
		case !strings.Contains(runErr.Error(), scenario.ExpectError):
			result.AddError(fmt.Sprintf("expected error containing %q, got: %v", scenario.ExpectError, runErr))
		}
		return result, nil
	}
	if runErr != nil {
		return nil, runErr
	}

	h.collect(result, res, doc)

	actx := &AssertionContext{
		Store:    st,
		Ctx:      ctx,
		Document: doc,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

// execute loads the scenario inputs and runs them through the engine.
func (h *Harness) execute(ctx context.Context, s *Scenario) (*engine.Result, *stream.Document, error) {
	ts := ir.NewTypeSystem()

	opts := []script.Option{script.WithLogger(h.logger)}
	if s.Types != "" {
		d, err := compiler.Load(s.Types)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load types: %w", err)
		}
		opts = append(opts, script.WithDescriptor(d))
	}

	sc, err := h.compile(s, ts, opts)
	if err != nil {
		return nil, nil, err
	}

	doc, err := h.document(s, ts)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(
		engine.WithStore(h.store),
		engine.WithConfig(s.Engine.Config()),
		engine.WithRunIDs(h.runIDs),
		engine.WithLogger(h.logger),
	)
	res, err := eng.Run(ctx, sc, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to run script: %w", err)
	}
	h.logger.Info("scenario run completed",
		"scenario", s.Name,
		"run_id", res.Run.ID,
		"matches", len(res.Matches),
	)
	return res, doc, nil
}

func (h *Harness) compile(s *Scenario, ts *ir.TypeSystem, opts []script.Option) (*rule.Script, error) {
	if s.Script != "" {
		sc, err := script.Load(s.Script, ts, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to compile script: %w", err)
		}
		return sc, nil
	}
	sc, err := script.Compile(s.Name+".ruta", s.Source, ts, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	return sc, nil
}

func (h *Harness) document(s *Scenario, ts *ir.TypeSystem) (*stream.Document, error) {
	seq := stream.WithSequencer(h.spanIDs)
	if s.Document.File == "" {
		doc, err := s.Document.Build(ts, seq)
		if err != nil {
			return nil, fmt.Errorf("failed to build document: %w", err)
		}
		return doc, nil
	}
	doc, err := stream.LoadDocument(s.Document.File, ts, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", filepath.Base(s.Document.File), err)
	}
	return doc, nil
}

// collect copies the engine result into the scenario result.
func (h *Harness) collect(result *Result, res *engine.Result, doc *stream.Document) {
	result.RunID = res.Run.ID
	for _, rec := range res.Matches {
		text := ""
		if rec.Cover != nil {
			text = doc.CoveredText(*rec.Cover)
		}
		result.AddMatchTrace(rec, text)
	}
	for _, s := range res.Created {
		result.AddSpanTrace(s, doc.CoveredText(s), false)
	}
	for _, s := range res.Removed {
		result.AddSpanTrace(s, doc.CoveredText(s), true)
	}
	if res.Variables != nil {
		result.Variables = res.Variables
	}
}
