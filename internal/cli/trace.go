package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	RunID       string
	Hash        string
	MatchedOnly bool
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Matches int `json:"matches"`
	Matched int `json:"matched"`
	Failed  int `json:"failed"`
	Created int `json:"created"`
	Removed int `json:"removed"`
}

// TraceResult holds the complete trace output of one run.
type TraceResult struct {
	Run     ir.Run          `json:"run"`
	Matches []MatchOutput   `json:"matches"`
	Spans   []ir.SpanRecord `json:"spans"`
	Stats   TraceStats      `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show stored runs and their rule matches",
		Long: `Query the runs recorded by "spanrule run --db".

Without --run, lists every run in order. With --run, shows the run's rule
matches in the order they finished and the spans it created or removed.
With --hash, lists the matches of any run whose tree has that fingerprint.

Examples:
  spanrule trace --db ./spanrule.db
  spanrule trace --db ./spanrule.db --run 0192...
  spanrule trace --db ./spanrule.db --run 0192... --matched --format json
  spanrule trace --db ./spanrule.db --hash 3fa1...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to trace")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "find matches by tree hash")
	cmd.Flags().BoolVar(&opts.MatchedOnly, "matched", false, "show successful matches only")
	cmd.MarkFlagsMutuallyExclusive("run", "hash")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case opts.Hash != "":
		return traceHash(ctx, formatter, st, opts.Hash)
	case opts.RunID != "":
		return traceRun(ctx, formatter, st, opts.RunID, opts.MatchedOnly)
	default:
		return listRuns(ctx, formatter, st)
	}
}

func listRuns(ctx context.Context, f *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}
	if runs == nil {
		runs = []ir.Run{}
	}
	if f.JSON() {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		f.Text("No runs found.")
		return nil
	}
	for _, r := range runs {
		f.Text("%4d  %s  %s  script=%s", r.Seq, r.ID, shortHash(r.DocumentHash), r.ScriptName)
	}
	return nil
}

func traceRun(ctx context.Context, f *OutputFormatter, st *store.Store, runID string, matchedOnly bool) error {
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	recs, err := st.ReadMatches(ctx, runID, matchedOnly)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore, "failed to read matches", err)
	}
	spans, err := st.ReadSpans(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore, "failed to read spans", err)
	}
	if spans == nil {
		spans = []ir.SpanRecord{}
	}

	result := TraceResult{Run: run, Matches: matchOutputs(nil, recs), Spans: spans}
	result.Stats = traceStats(result.Matches, spans)

	if f.JSON() {
		return f.Success(result)
	}

	f.Text("Run %s (seq %d) script=%s", run.ID, run.Seq, run.ScriptName)
	f.Text("  script hash:   %s", run.ScriptHash)
	f.Text("  document hash: %s", run.DocumentHash)
	f.Text("  engine %s, ir %s", run.EngineVersion, run.IRVersion)
	f.Text("")
	f.Text("Matches:")
	for _, m := range result.Matches {
		f.Text("  %s %s", formatMatch(m), shortHash(m.Hash))
	}
	if len(spans) > 0 {
		f.Text("")
		f.Text("Spans:")
		for _, s := range spans {
			verb := "created"
			if s.Removed {
				verb = "removed"
			}
			f.Text("  %s %s", verb, s.Span)
		}
	}
	f.Text("")
	f.Text("Stats: %d matches (%d matched, %d failed), %d created, %d removed",
		result.Stats.Matches, result.Stats.Matched, result.Stats.Failed, result.Stats.Created, result.Stats.Removed)
	return nil
}

func traceHash(ctx context.Context, f *OutputFormatter, st *store.Store, hash string) error {
	recs, err := st.FindMatchesByHash(ctx, hash)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStore, "failed to find matches", err)
	}
	out := matchOutputs(nil, recs)
	if f.JSON() {
		return f.Success(out)
	}
	if len(recs) == 0 {
		f.Text("No matches with hash %s", hash)
		return nil
	}
	for i, rec := range recs {
		f.Text("%s %s", rec.RunID, formatMatch(out[i]))
	}
	return nil
}

func traceStats(matches []MatchOutput, spans []ir.SpanRecord) TraceStats {
	var stats TraceStats
	stats.Matches = len(matches)
	for _, m := range matches {
		if m.Matched {
			stats.Matched++
		} else {
			stats.Failed++
		}
	}
	for _, s := range spans {
		if s.Removed {
			stats.Removed++
		} else {
			stats.Created++
		}
	}
	return stats
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
