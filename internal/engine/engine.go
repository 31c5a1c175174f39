package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/spanrule/internal/config"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/store"
	"github.com/roach88/spanrule/internal/stream"
)

// Engine applies scripts to documents and optionally persists the runs.
type Engine struct {
	store  *store.Store
	cfg    *config.Config
	runIDs rule.IDGenerator
	crowd  rule.Crowd
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists every successful run to st.
func WithStore(st *store.Store) Option {
	return func(e *Engine) { e.store = st }
}

// WithConfig sets the engine settings. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithRunIDs sets how runs are named.
func WithRunIDs(g rule.IDGenerator) Option {
	return func(e *Engine) { e.runIDs = g }
}

// WithCrowd sets the condition and action observer.
func WithCrowd(c rule.Crowd) Option {
	return func(e *Engine) { e.crowd = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		runIDs: rule.UUIDv7Generator{},
		crowd:  rule.NopCrowd{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = config.Default()
	}
	return e
}

// Result is the outcome of one run.
type Result struct {
	Run       ir.Run
	Applies   []*rule.RuleApply
	Matches   []ir.MatchRecord
	Created   []ir.Span
	Removed   []ir.Span
	Document  *stream.Document
	Variables ir.Object
}

// MatchedCount returns the number of successful matches.
func (r *Result) MatchedCount() int {
	n := 0
	for _, m := range r.Matches {
		if m.Matched {
			n++
		}
	}
	return n
}

// Run applies sc to doc. The document is modified in place.
func (e *Engine) Run(ctx context.Context, sc *rule.Script, doc *stream.Document) (*Result, error) {
	run, err := e.newRun(ctx, sc, doc)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("run start", "run", run.ID, "seq", run.Seq, "script", run.ScriptName, "rules", len(sc.Rules))

	res, err := e.apply(ctx, run, sc, doc)
	if err != nil {
		return res, fmt.Errorf("run %s: %w", run.ID, err)
	}

	if e.store != nil {
		if err := e.store.SaveRun(ctx, res.Run, res.Matches, res.Created, res.Removed); err != nil {
			return res, fmt.Errorf("run %s: %w", run.ID, err)
		}
	}
	e.logger.Debug("run done", "run", run.ID, "matches", len(res.Matches), "matched", res.MatchedCount(),
		"created", len(res.Created), "removed", len(res.Removed))
	return res, nil
}

func (e *Engine) newRun(ctx context.Context, sc *rule.Script, doc *stream.Document) (ir.Run, error) {
	docHash, err := ir.DocumentHash(doc.Text(), doc.Spans())
	if err != nil {
		return ir.Run{}, fmt.Errorf("hash document: %w", err)
	}
	seq := int64(1)
	if e.store != nil {
		if seq, err = e.store.NextRunSeq(ctx); err != nil {
			return ir.Run{}, err
		}
	}
	return ir.Run{
		ID:            e.runIDs.Generate(),
		Seq:           seq,
		ScriptName:    sc.Name,
		ScriptHash:    ir.ScriptHash(sc.Source),
		DocumentHash:  docHash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, nil
}

// apply runs the rules under run's identity without persisting anything.
func (e *Engine) apply(ctx context.Context, run ir.Run, sc *rule.Script, doc *stream.Document) (*Result, error) {
	before := doc.Spans()
	opts := append(e.cfg.RuleOptions(),
		rule.WithIDGenerator(rule.NewSequenceGenerator(run.ID)),
		rule.WithLogger(e.logger),
	)
	applies, applyErr := sc.Apply(ctx, stream.New(doc, e.cfg.StreamOptions()...), e.crowd, opts...)

	res := &Result{Run: run, Applies: applies, Document: doc}
	if sc.Block != nil {
		res.Variables = sc.Block.Env.Snapshot()
	}
	res.Created, res.Removed = store.SpanChanges(before, doc.Spans())

	matches, err := store.MatchRecords(run.ID, applies)
	if err != nil {
		return res, err
	}
	res.Matches = matches
	return res, applyErr
}
